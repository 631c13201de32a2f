package tts

import (
	"time"

	"github.com/dgnsrekt/shadow/internal/voice"
)

// EngineType represents the provider selection
type EngineType string

const (
	// EngineElevenLabs is the ElevenLabs HTTP API.
	EngineElevenLabs EngineType = "elevenlabs"

	// EngineMock returns deterministic silent audio without network access.
	EngineMock EngineType = "mock"
)

// ParseEngine validates an engine name.
func ParseEngine(name string) (EngineType, error) {
	switch EngineType(name) {
	case EngineElevenLabs, "":
		return EngineElevenLabs, nil
	case EngineMock:
		return EngineMock, nil
	default:
		return "", ErrInvalidEngine
	}
}

// DefaultModelID is the synthesis model used when none is configured.
const DefaultModelID = "eleven_multilingual_v2"

// VoiceSettings is the per-call parameter bundle sent to the provider.
type VoiceSettings struct {
	Stability       float64
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
	Speed           float64
}

// SettingsFor combines a voice's preset settings with a speed and a
// stability value.
func SettingsFor(s voice.Settings, speed, stability float64) VoiceSettings {
	return VoiceSettings{
		Stability:       stability,
		SimilarityBoost: s.SimilarityBoost,
		Style:           s.Style,
		SpeakerBoost:    s.SpeakerBoost,
		Speed:           speed,
	}
}

// Request is one synthesis call.
type Request struct {
	Text     string
	VoiceID  string
	ModelID  string
	Settings VoiceSettings
}

// Result is the audio for a request.
type Result struct {
	Audio    []byte
	Duration time.Duration
	// Fingerprint is the global cache key the audio is stored under.
	Fingerprint string
	// Cached is true when the provider was not contacted.
	Cached bool
}
