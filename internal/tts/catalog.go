package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/shadow/internal/voice"
)

// DefaultVoicesTimeout bounds a voice catalog request.
const DefaultVoicesTimeout = 10 * time.Second

// Catalog is the outcome of a voice listing.
type Catalog struct {
	Voices []voice.Voice
	// Fallback is true when the provider refused the listing and the
	// built-in preset table was returned instead.
	Fallback bool
	// Warning explains the fallback to the user.
	Warning string
}

// FetchVoices lists the provider's voices. When the key lacks permission to
// list voices, the registry's presets are returned instead.
func FetchVoices(ctx context.Context, p Provider, reg *voice.Registry, timeout time.Duration) (Catalog, error) {
	if timeout <= 0 {
		timeout = DefaultVoicesTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	voices, err := p.Voices(ctx)
	if err == nil {
		return Catalog{Voices: voices}, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return Catalog{}, Generic(fmt.Sprintf("voice fetch timeout (%s)", timeout), err)
	}
	if needsFallback(err) {
		return Catalog{
			Voices:   reg.Catalog(),
			Fallback: true,
			Warning:  "API key lacks voices_read permission; using the built-in voice presets",
		}, nil
	}
	return Catalog{}, Classify(err)
}

func needsFallback(err error) bool {
	if se := Classify(err); se.Status == 401 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "missing_permissions") || strings.Contains(msg, "401")
}
