// Package audio defines the music, ambiance and sound-effect capability the
// script interpreter consumes.
//
// Decoding and mixing live behind [Player]; the interpreter only asks for
// tracks by id and remembers what was playing so it can restore it when a
// conversation ends. Music and ambiance are independent looping channels.
package audio

// Channel selects one of the two looping audio channels.
type Channel int

const (
	// Music is the background music channel.
	Music Channel = iota

	// Ambiance is the environmental loop channel.
	Ambiance
)

// String returns the human-readable name of the channel.
func (c Channel) String() string {
	switch c {
	case Music:
		return "music"
	case Ambiance:
		return "ambiance"
	default:
		return "unknown"
	}
}

// Player plays music, ambiance and one-shot sounds.
//
// The instant flag selects a hard cut over a fade. Implementations are only
// called from the update goroutine.
type Player interface {
	// Play starts track id on ch, replacing whatever was playing.
	Play(ch Channel, id string)

	// Pause pauses ch, keeping its current track.
	Pause(ch Channel, instant bool)

	// Resume resumes a paused ch.
	Resume(ch Channel, instant bool)

	// Stop stops ch and forgets its current track.
	Stop(ch Channel, instant bool)

	// Current returns the track loaded on ch, or "" when nothing is loaded.
	Current(ch Channel) string

	// PlaySound plays a one-shot sound effect.
	PlaySound(id string)
}
