package audio

import "errors"

// PlayerState represents the current state of a player.
type PlayerState int32

const (
	StateStopped PlayerState = iota
	StatePlaying
	StatePaused
	StateClosed
)

// String returns the string representation of the state
func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyAudio is returned when Play is called with no data.
	ErrEmptyAudio = errors.New("audio data is empty")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("player is closed")
)
