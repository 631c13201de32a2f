// Package tts turns lesson text into audio. The Gate resolves requests
// against the global asset cache and calls a Provider only on a miss.
package tts

import (
	"context"

	"github.com/dgnsrekt/shadow/internal/voice"
)

// Provider is a remote (or stub) text-to-speech service.
// Implementations live in the engines package.
type Provider interface {
	// Synthesize returns the raw audio bytes for one request.
	// Speed in the request is already clamped to the provider range.
	// Errors should be *SynthesisError so callers can classify them.
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// Voices lists the voices available to the configured account.
	Voices(ctx context.Context) ([]voice.Voice, error)

	// Info describes the provider.
	Info() ProviderInfo
}

// ProviderInfo describes a synthesis provider.
type ProviderInfo struct {
	Name     string // e.g. "elevenlabs", "mock"
	Format   string // audio container the provider returns: "mp3" or "wav"
	IsOnline bool   // whether the provider needs network access
}
