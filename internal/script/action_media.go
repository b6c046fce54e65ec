package script

import (
	"github.com/MrWong99/casescript/pkg/audio"
	"github.com/MrWong99/casescript/pkg/stage"
)

// AudioOp selects what an [AudioControl] does to its channel.
type AudioOp int

const (
	AudioPlay AudioOp = iota
	AudioPause
	AudioResume
	AudioStop
)

// AudioControl plays, pauses, resumes or stops the music or ambiance
// channel. With Preserve set, the channel is left as is when the run ends
// instead of being restored to what was playing before it began.
type AudioControl struct {
	base
	Channel  audio.Channel
	Op       AudioOp
	TrackID  string
	Instant  bool
	Preserve bool
}

// Execute implements [SingleAction].
func (a *AudioControl) Execute(s *State) error {
	p := s.env.Audio
	switch a.Op {
	case AudioPlay:
		p.Play(a.Channel, a.TrackID)
		s.paused[a.Channel] = false
	case AudioPause:
		p.Pause(a.Channel, a.Instant)
		s.paused[a.Channel] = true
	case AudioResume:
		p.Resume(a.Channel, a.Instant)
		s.paused[a.Channel] = false
	case AudioStop:
		p.Stop(a.Channel, a.Instant)
		s.paused[a.Channel] = false
	}
	if a.Preserve {
		s.preserve(a.Channel)
	}
	return nil
}

// PlaySound plays a one-shot sound effect.
type PlaySound struct {
	base
	SoundID string
}

// Execute implements [SingleAction].
func (a *PlaySound) Execute(s *State) error {
	s.env.Audio.PlaySound(a.SoundID)
	return nil
}

// FieldAnimation starts or stops a field animation.
type FieldAnimation struct {
	base
	AnimationID string
	Stop        bool
}

// Execute implements [SingleAction].
func (a *FieldAnimation) Execute(s *State) error {
	if a.Stop {
		s.env.Stage.StopAnimation(a.AnimationID)
	} else {
		s.env.Stage.StartAnimation(a.AnimationID)
	}
	return nil
}

// SceneTransition requests a scene change (move to a location or zoomed
// view, exit the encounter, end the case). The request is handed to the
// scene driver when the run finishes; a later request replaces an earlier
// one.
type SceneTransition struct {
	base
	Transition stage.Transition
}

// Execute implements [SingleAction].
func (a *SceneTransition) Execute(s *State) error {
	s.transitionTo(a.Transition)
	return nil
}

// restoreTrack puts ch back to playing id, resuming it when this run paused
// the same track.
func (s *State) restoreTrack(ch audio.Channel, id string, instant bool) {
	p := s.env.Audio
	switch {
	case p.Current(ch) == id:
		if s.paused[ch] {
			p.Resume(ch, instant)
			s.paused[ch] = false
		}
	case id == "":
		p.Stop(ch, instant)
	default:
		p.Play(ch, id)
	}
}
