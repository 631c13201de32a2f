package tts

import (
	"time"

	"github.com/dgnsrekt/shadow/internal/audio"
)

// IsWAV reports whether audio starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return audio.IsWAV(data)
}

// ProbeDuration measures the playback length of a synthesized clip by
// decoding it.
func ProbeDuration(data []byte) (time.Duration, error) {
	return audio.Duration(data)
}
