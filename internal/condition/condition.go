// Package condition implements the boolean conditions scripts branch on.
//
// A [Condition] is evaluated against an [Env] that exposes the case state.
// Conditions are built once when a script loads and are evaluated any number
// of times afterwards. The built-in variants cover flags, evidence and the
// current partner and combine with [And], [Or] and [Not]. [Lua] evaluates an
// arbitrary Lua expression for conditions the built-ins cannot express.
package condition

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned when a condition is malformed.
var ErrInvalid = errors.New("condition: invalid")

// Env is the read-only view of the case state conditions evaluate against.
type Env interface {
	IsFlagSet(id string) bool
	IsEvidenceEnabled(id string) bool
	CurrentPartner() string
}

// Condition is a boolean predicate over an [Env].
type Condition interface {
	// Evaluate returns the value of the condition. An error means the
	// condition could not be evaluated at all.
	Evaluate(env Env) (bool, error)

	// String renders the condition for logs and error messages.
	String() string
}

// FlagSet is true when the flag is set.
type FlagSet struct{ Flag string }

// Evaluate implements [Condition].
func (c FlagSet) Evaluate(env Env) (bool, error) { return env.IsFlagSet(c.Flag), nil }

func (c FlagSet) String() string { return fmt.Sprintf("flag(%s)", c.Flag) }

// EvidenceEnabled is true when the evidence is in the court record.
type EvidenceEnabled struct{ Evidence string }

// Evaluate implements [Condition].
func (c EvidenceEnabled) Evaluate(env Env) (bool, error) {
	return env.IsEvidenceEnabled(c.Evidence), nil
}

func (c EvidenceEnabled) String() string { return fmt.Sprintf("evidence(%s)", c.Evidence) }

// PartnerIs is true when the current partner is Partner.
type PartnerIs struct{ Partner string }

// Evaluate implements [Condition].
func (c PartnerIs) Evaluate(env Env) (bool, error) {
	return env.CurrentPartner() == c.Partner, nil
}

func (c PartnerIs) String() string { return fmt.Sprintf("partner(%s)", c.Partner) }

// Not negates its operand.
type Not struct{ Cond Condition }

// Evaluate implements [Condition].
func (c Not) Evaluate(env Env) (bool, error) {
	if c.Cond == nil {
		return false, fmt.Errorf("%w: not without operand", ErrInvalid)
	}
	v, err := c.Cond.Evaluate(env)
	return !v, err
}

func (c Not) String() string {
	if c.Cond == nil {
		return "not()"
	}
	return "not(" + c.Cond.String() + ")"
}

// And is true when every operand is true. It short-circuits.
type And []Condition

// Evaluate implements [Condition].
func (c And) Evaluate(env Env) (bool, error) {
	if len(c) == 0 {
		return false, fmt.Errorf("%w: and without operands", ErrInvalid)
	}
	for _, sub := range c {
		v, err := sub.Evaluate(env)
		if err != nil || !v {
			return false, err
		}
	}
	return true, nil
}

func (c And) String() string { return join("and", c) }

// Or is true when any operand is true. It short-circuits.
type Or []Condition

// Evaluate implements [Condition].
func (c Or) Evaluate(env Env) (bool, error) {
	if len(c) == 0 {
		return false, fmt.Errorf("%w: or without operands", ErrInvalid)
	}
	for _, sub := range c {
		v, err := sub.Evaluate(env)
		if err != nil {
			return false, err
		}
		if v {
			return true, nil
		}
	}
	return false, nil
}

func (c Or) String() string { return join("or", c) }

func join(op string, cs []Condition) string {
	s := op + "("
	for i, c := range cs {
		if i > 0 {
			s += ", "
		}
		s += c.String()
	}
	return s + ")"
}
