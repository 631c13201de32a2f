package session

import (
	"time"

	"github.com/dgnsrekt/shadow/internal/voice"
)

// Phase is the scheduler's current step.
type Phase int

const (
	// PhaseWaitingForRecorder gates everything until the recorder is ready.
	PhaseWaitingForRecorder Phase = iota
	// PhaseStarting is the lead-in before the first clip.
	PhaseStarting
	// PhaseListening plays the clip for the current position.
	PhaseListening
	// PhaseWaiting is the silent "repeat after me" window.
	PhaseWaiting
	// PhasePaused freezes Listening or Waiting.
	PhasePaused
	// PhaseFinished is terminal.
	PhaseFinished
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWaitingForRecorder:
		return "waiting for recorder"
	case PhaseStarting:
		return "starting"
	case PhaseListening:
		return "listening"
	case PhaseWaiting:
		return "waiting"
	case PhasePaused:
		return "paused"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Position is a point on the playback odometer. Repeat is the least
// significant digit, then Voice, then Sentence. All three are 0-based.
type Position struct {
	Sentence int
	Voice    int
	Repeat   int
}

// Next returns the following position. done is true when the sentence
// digit rolls past the last sentence.
func (p Position) Next(voices []voice.Applied, sentences int) (next Position, done bool) {
	next = p
	next.Repeat++
	if len(voices) == 0 || next.Repeat >= repeatsOf(voices[next.Voice]) {
		next.Repeat = 0
		next.Voice++
	}
	if next.Voice >= len(voices) {
		next.Voice = 0
		next.Sentence++
	}
	return next, next.Sentence >= sentences
}

func repeatsOf(v voice.Applied) int {
	if v.Repeat < 1 {
		return 1
	}
	return v.Repeat
}

// Event is published to the observer on every phase change.
type Event struct {
	Phase    Phase
	Position Position
	// Wait is the length of the current Waiting window.
	Wait time.Duration
	// Clip is the duration of the clip being played.
	Clip time.Duration
	// Skipped is set when the position had no audio and was passed over.
	Skipped bool
	Err     error
}

// machine validates phase transitions.
type machine struct {
	current     Phase
	transitions map[Phase][]Phase
}

func newMachine() *machine {
	return &machine{
		current: PhaseWaitingForRecorder,
		transitions: map[Phase][]Phase{
			PhaseWaitingForRecorder: {PhaseStarting, PhaseFinished},
			PhaseStarting:           {PhaseListening, PhaseFinished},
			PhaseListening:          {PhaseListening, PhaseWaiting, PhasePaused, PhaseFinished},
			PhaseWaiting:            {PhaseListening, PhasePaused, PhaseFinished},
			PhasePaused:             {PhaseListening, PhaseWaiting, PhaseFinished},
		},
	}
}

// transition moves to the given phase and reports whether that was
// allowed. Disallowed transitions leave the phase unchanged.
func (m *machine) transition(to Phase) bool {
	for _, allowed := range m.transitions[m.current] {
		if allowed == to {
			m.current = to
			return true
		}
	}
	return false
}
