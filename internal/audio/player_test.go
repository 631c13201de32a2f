package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/faiface/beep"
)

// silentWAV returns a mono 16-bit clip of d at rate Hz.
func silentWAV(d time.Duration, rate int) []byte {
	n := int(d.Seconds() * float64(rate))
	data := n * 2
	buf := make([]byte, 44+data)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+data))
	copy(buf[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], 1)
	binary.LittleEndian.PutUint32(buf[24:], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:], uint32(rate*2))
	binary.LittleEndian.PutUint16(buf[32:], 2)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(data))
	return buf
}

func TestPlayerConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    PlayerConfig
		expectErr bool
	}{
		{"default", DefaultPlayerConfig(), false},
		{"48000Hz mono", PlayerConfig{SampleRate: 48000, Channels: 1, BufferSize: time.Millisecond, Poll: time.Millisecond}, false},
		{"invalid sample rate", PlayerConfig{SampleRate: 22050, Channels: 1, BufferSize: time.Millisecond, Poll: time.Millisecond}, true},
		{"invalid channels", PlayerConfig{SampleRate: 44100, Channels: 3, BufferSize: time.Millisecond, Poll: time.Millisecond}, true},
		{"zero buffer", PlayerConfig{SampleRate: 44100, Channels: 2, Poll: time.Millisecond}, true},
		{"zero poll", PlayerConfig{SampleRate: 44100, Channels: 2, BufferSize: time.Millisecond}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.config)
			if tt.expectErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDecodeAndDuration(t *testing.T) {
	clip := silentWAV(1500*time.Millisecond, 22050)

	if !IsWAV(clip) || IsMP3(clip) {
		t.Fatal("format sniffing failed")
	}
	d, err := Duration(clip)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if d != 1500*time.Millisecond {
		t.Errorf("got %v, want 1.5s", d)
	}

	if _, err := Duration([]byte("garbage")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("got %v, want ErrUnknownFormat", err)
	}
	if !IsMP3([]byte("ID3\x04")) || !IsMP3([]byte{0xFF, 0xFB, 0x90}) {
		t.Error("MP3 sniffing failed")
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestPCMStream(t *testing.T) {
	samples := [][2]float64{{0.5, -0.5}, {2, -2}, {0, 0}}
	closed := false
	stream := &pcmStream{
		source:   beep.StreamerFunc(streamSlice(samples)),
		closer:   closerFunc(func() error { closed = true; return nil }),
		channels: 2,
	}

	buf := make([]byte, 64)
	n, err := stream.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(samples)*4 {
		t.Fatalf("got %d bytes, want %d", n, len(samples)*4)
	}

	left := int16(binary.LittleEndian.Uint16(buf[0:]))
	right := int16(binary.LittleEndian.Uint16(buf[2:]))
	if left != 16383 || right != -16383 {
		t.Errorf("got %d/%d, want 16383/-16383", left, right)
	}
	if clipped := int16(binary.LittleEndian.Uint16(buf[4:])); clipped != 32767 {
		t.Errorf("out-of-range sample not clamped: %d", clipped)
	}

	if _, err := stream.Read(buf); err != io.EOF {
		t.Errorf("got %v, want EOF", err)
	}
	stream.Close()
	if !closed {
		t.Error("decoder not closed")
	}
}

func streamSlice(samples [][2]float64) func([][2]float64) (int, bool) {
	var mu sync.Mutex
	pos := 0
	return func(buf [][2]float64) (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if pos >= len(samples) {
			return 0, false
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, true
	}
}
