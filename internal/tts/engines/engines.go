package engines

import (
	"fmt"

	"github.com/dgnsrekt/shadow/internal/tts"
)

// New returns the provider selected by engine.
func New(engine tts.EngineType, config ElevenLabsConfig) (tts.Provider, error) {
	switch engine {
	case tts.EngineElevenLabs:
		el, err := NewElevenLabsEngine(config)
		if err != nil {
			return nil, err
		}
		return el, nil
	case tts.EngineMock:
		return NewMockEngine(), nil
	default:
		return nil, fmt.Errorf("%w: %q", tts.ErrInvalidEngine, engine)
	}
}
