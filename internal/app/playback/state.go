// Package playback provides the playback state machine for a track catalog.
package playback

// State represents the transport state.
type State int

const (
	StateStopped State = iota // Nothing has played yet, or a selection failed to start
	StatePlaying              // Source is producing audio
	StatePaused               // Source is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
