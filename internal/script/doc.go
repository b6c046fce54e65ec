// Package script interprets the conversations of a case.
//
// A [Conversation] is an ordered [ActionList] played one frame at a time:
// [Conversation.Begin] starts a run against an [Env] of collaborators and
// each [Conversation.Update] executes instant actions until one has to
// wait for the player or for time to pass. Actions move a program counter
// forward by one unless they name a target index.
//
// [Interrogation] adds statements the player can press, present evidence
// to and navigate between. [Confrontation] builds on it with topics and a
// health gauge for both sides; losing all player health jumps to the
// defeat branch.
//
// Script bugs surface as errors wrapping [ErrAuthoring]. Conversations are
// decoded from a tagged document through [Load], and their mutable state
// round-trips through [Annotations].
//
// A Conversation is not safe for concurrent use.
package script
