package voice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Speed bounds accepted by the provider.
const (
	MinSpeed = 0.7
	MaxSpeed = 1.2
)

// Voice is one entry of a provider voice catalog.
type Voice struct {
	VoiceID     string
	Name        string
	Category    string
	Description string
	Labels      map[string]string
}

// Applied is one configured voice actor in a session's playback sequence.
// ID identifies the slot, not the voice: the same provider voice may be
// applied twice with different settings.
type Applied struct {
	ID      string  `json:"id"`
	VoiceID string  `json:"voiceId"`
	Name    string  `json:"name"`
	Speed   float64 `json:"speed"`
	Repeat  int     `json:"repeat"`

	// Display toggles applied while this voice is playing.
	ShowTranslation bool `json:"showTranslation"`
	ShowWords       bool `json:"showWords"`
}

// NewApplied returns an applied voice with a fresh slot id.
func NewApplied(voiceID, name string, speed float64, repeat int) Applied {
	return Applied{
		ID:      uuid.NewString(),
		VoiceID: voiceID,
		Name:    name,
		Speed:   speed,
		Repeat:  repeat,

		ShowTranslation: true,
		ShowWords:       true,
	}
}

// Validate checks the speed and repeat ranges.
func (a Applied) Validate() error {
	if a.VoiceID == "" {
		return errors.New("voice id is required")
	}
	if a.Speed < MinSpeed || a.Speed > MaxSpeed {
		return fmt.Errorf("speed %.2f out of range [%.1f, %.1f]", a.Speed, MinSpeed, MaxSpeed)
	}
	if a.Repeat < 1 {
		return fmt.Errorf("repeat must be at least 1, got %d", a.Repeat)
	}
	return nil
}

// ParseApplied parses a "voiceID[:speed[:repeat]]" specification. The name
// is taken from the registry when the voice has a preset. A voice may also
// be given by preset id, e.g. "rachel:0.9:2".
func ParseApplied(spec string, reg *Registry) (Applied, error) {
	parts := strings.Split(spec, ":")
	if len(parts) > 3 || parts[0] == "" {
		return Applied{}, fmt.Errorf("invalid voice %q: want voiceID[:speed[:repeat]]", spec)
	}

	voiceID, name := parts[0], parts[0]
	if reg != nil {
		if p, ok := reg.Get(voiceID); ok {
			voiceID, name = p.VoiceID, p.Name
		} else if p, ok := reg.ForVoice(voiceID); ok {
			name = p.Name
		}
	}

	speed, repeat := 1.0, 1
	if len(parts) > 1 && parts[1] != "" {
		f, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return Applied{}, fmt.Errorf("invalid speed in %q: %w", spec, err)
		}
		speed = f
	}
	if len(parts) > 2 && parts[2] != "" {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return Applied{}, fmt.Errorf("invalid repeat in %q: %w", spec, err)
		}
		repeat = n
	}

	a := NewApplied(voiceID, name, speed, repeat)
	if err := a.Validate(); err != nil {
		return Applied{}, fmt.Errorf("invalid voice %q: %w", spec, err)
	}
	return a, nil
}

// ClampSpeed limits speed to the range the provider accepts.
func ClampSpeed(speed float64) float64 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}
