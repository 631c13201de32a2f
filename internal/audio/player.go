package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/faiface/beep"
)

// Player plays encoded clips on the system audio device using oto.
//
// Play returns a channel that is closed when the clip has been heard to the
// end. A clip that is stopped or replaced never closes its channel.
type Player struct {
	// OTO context - initialized once and reused
	context *oto.Context

	// Current playback state
	player *oto.Player
	stream *pcmStream
	done   chan struct{}

	state      atomic.Int32 // PlayerState
	generation atomic.Uint64
	volume     float64

	sampleRate beep.SampleRate
	channels   int
	poll       time.Duration

	mu sync.Mutex
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int           // device rate: 44100 or 48000 Hz
	Channels   int           // 1 = mono, 2 = stereo
	BufferSize time.Duration // device buffer
	Poll       time.Duration // how often completion is checked
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		Channels:   2,
		BufferSize: 100 * time.Millisecond,
		Poll:       20 * time.Millisecond,
	}
}

// NewPlayer opens the audio device.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   config.BufferSize,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	p := &Player{
		context:    ctx,
		volume:     1,
		sampleRate: beep.SampleRate(config.SampleRate),
		channels:   config.Channels,
		poll:       config.Poll,
	}
	p.state.Store(int32(StateStopped))
	return p, nil
}

func validateConfig(config PlayerConfig) error {
	// OTO only supports specific sample rates reliably
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}
	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}
	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	if config.Poll <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

// Play decodes clip and starts playing it, replacing any current clip.
func (p *Player) Play(clip []byte) (<-chan struct{}, error) {
	if len(clip) == 0 {
		return nil, ErrEmptyAudio
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if PlayerState(p.state.Load()) == StateClosed {
		return nil, ErrClosed
	}
	p.stopLocked()

	streamer, format, err := Decode(clip)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}

	var source beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		source = beep.Resample(4, format.SampleRate, p.sampleRate, streamer)
	}

	stream := &pcmStream{source: source, closer: streamer, channels: p.channels}
	player := p.context.NewPlayer(stream)
	player.SetVolume(p.volume)

	done := make(chan struct{})
	p.player = player
	p.stream = stream
	p.done = done
	gen := p.generation.Add(1)

	player.Play()
	p.state.Store(int32(StatePlaying))

	go p.watch(gen, player, done)
	return done, nil
}

// watch closes done once the oto player drains, unless the clip was
// stopped or replaced first.
func (p *Player) watch(gen uint64, player *oto.Player, done chan struct{}) {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for range ticker.C {
		if p.generation.Load() != gen {
			return
		}
		if PlayerState(p.state.Load()) == StatePaused || player.IsPlaying() {
			continue
		}

		p.mu.Lock()
		if p.generation.Load() != gen {
			p.mu.Unlock()
			return
		}
		p.releaseLocked()
		p.state.Store(int32(StateStopped))
		p.mu.Unlock()

		close(done)
		return
	}
}

// Pause pauses the current playback.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s := PlayerState(p.state.Load()); s != StatePlaying {
		return fmt.Errorf("cannot pause: player is %s", s)
	}
	p.state.Store(int32(StatePaused))
	p.player.Pause()
	return nil
}

// Resume continues the paused clip.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s := PlayerState(p.state.Load()); s != StatePaused {
		return fmt.Errorf("cannot resume: player is %s", s)
	}
	p.player.Play()
	p.state.Store(int32(StatePlaying))
	return nil
}

// Stop abandons the current clip. Its done channel is never closed.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	return nil
}

func (p *Player) stopLocked() {
	s := PlayerState(p.state.Load())
	if s == StateStopped || s == StateClosed {
		return
	}
	p.generation.Add(1)
	if p.player != nil {
		p.player.Pause()
	}
	p.releaseLocked()
	p.state.Store(int32(StateStopped))
}

func (p *Player) releaseLocked() {
	if p.player != nil {
		p.player.Close() //nolint:errcheck
		p.player = nil
	}
	if p.stream != nil {
		p.stream.Close() //nolint:errcheck
		p.stream = nil
	}
	p.done = nil
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume
	if p.player != nil {
		p.player.SetVolume(volume)
	}
	return nil
}

// State returns the current player state.
func (p *Player) State() PlayerState {
	return PlayerState(p.state.Load())
}

// Close stops playback. The player cannot be reused.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	// oto.Context has no Close in v3; it is released with the process.
	p.context = nil
	p.state.Store(int32(StateClosed))
	return nil
}

// pcmStream adapts a beep stream to the signed 16-bit little-endian
// interleaved byte stream oto reads.
type pcmStream struct {
	source   beep.Streamer
	closer   io.Closer
	channels int
	buf      [][2]float64

	mu     sync.Mutex
	closed bool
}

func (s *pcmStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}

	frameSize := 2 * s.channels
	frames := len(p) / frameSize
	if frames == 0 {
		return 0, nil
	}
	if cap(s.buf) < frames {
		s.buf = make([][2]float64, frames)
	}
	buf := s.buf[:frames]

	n, ok := s.source.Stream(buf)
	if !ok && n == 0 {
		return 0, io.EOF
	}

	off := 0
	for i := 0; i < n; i++ {
		if s.channels == 1 {
			putSample(p[off:], (buf[i][0]+buf[i][1])/2)
		} else {
			putSample(p[off:], buf[i][0])
			putSample(p[off+2:], buf[i][1])
		}
		off += frameSize
	}
	return off, nil
}

func (s *pcmStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closer.Close()
}

func putSample(dst []byte, v float64) {
	v = math.Max(-1, math.Min(1, v))
	binary.LittleEndian.PutUint16(dst, uint16(int16(v*math.MaxInt16)))
}
