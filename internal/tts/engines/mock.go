package engines

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/dgnsrekt/shadow/internal/tts"
	"github.com/dgnsrekt/shadow/internal/voice"
)

const (
	mockSampleRate    = 22050
	mockBitsPerSample = 16
	// mockRunesPerSecond approximates a relaxed reading pace.
	mockRunesPerSecond = 15
)

// MockEngine is an offline provider that returns silent WAV clips whose
// length scales with the text. It is used for demos and tests.
type MockEngine struct {
	mu    sync.Mutex
	calls int

	// Err, when set, is returned by every call.
	Err error
}

// NewMockEngine creates a mock engine.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Synthesize returns a silent mono 16-bit WAV.
func (e *MockEngine) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.calls++
	err := e.Err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	speed := req.Settings.Speed
	if speed <= 0 {
		speed = 1
	}
	seconds := float64(utf8.RuneCountInString(req.Text)) / mockRunesPerSecond / speed
	seconds = math.Max(seconds, 0.5)
	return SilentWAV(int(seconds * mockSampleRate)), nil
}

// Voices returns the built-in catalog.
func (e *MockEngine) Voices(ctx context.Context) ([]voice.Voice, error) {
	return voice.NewDefaultRegistry().Catalog(), nil
}

// Info returns engine capabilities.
func (e *MockEngine) Info() tts.ProviderInfo {
	return tts.ProviderInfo{
		Name:   string(tts.EngineMock),
		Format: "wav",
	}
}

// Calls returns how many times Synthesize was invoked.
func (e *MockEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// SilentWAV encodes n zero samples as a mono 16-bit PCM WAV file.
func SilentWAV(n int) []byte {
	dataSize := n * mockBitsPerSample / 8
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(buf[24:28], mockSampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], mockSampleRate*mockBitsPerSample/8)
	binary.LittleEndian.PutUint16(buf[32:34], mockBitsPerSample/8)
	binary.LittleEndian.PutUint16(buf[34:36], mockBitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	return buf
}
