package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MockPlayer simulates playback without producing sound.
//
// By default clips only finish when the test calls Finish. With AutoFinish
// set, each clip finishes on its own after its decoded duration, which
// makes the player usable on machines without an audio device.
type MockPlayer struct {
	// AutoFinish ends clips after their duration in wall-clock time.
	AutoFinish bool
	// Fallback is used by AutoFinish for clips that cannot be decoded.
	Fallback time.Duration

	state atomic.Int32 // PlayerState

	current   []byte
	done      chan struct{}
	timer     *time.Timer
	remaining time.Duration
	startedAt time.Time

	// Test callbacks
	callbacks MockCallbacks

	// Simulated failures
	playErr error

	// Metrics for testing
	playCount   atomic.Int64
	pauseCount  atomic.Int64
	resumeCount atomic.Int64
	stopCount   atomic.Int64

	played [][]byte
	mu     sync.Mutex
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnPlay   func(clip []byte)
	OnPause  func()
	OnResume func()
	OnStop   func()
}

// DefaultMockPlayer creates a mock player whose clips finish only on Finish.
func DefaultMockPlayer() *MockPlayer {
	mp := &MockPlayer{Fallback: time.Second}
	mp.state.Store(int32(StateStopped))
	return mp
}

// NewMockPlayer creates a mock player with custom callbacks.
func NewMockPlayer(callbacks MockCallbacks) *MockPlayer {
	mp := DefaultMockPlayer()
	mp.callbacks = callbacks
	return mp
}

// NewSilentPlayer returns a mock that plays clips in real time.
func NewSilentPlayer() *MockPlayer {
	mp := DefaultMockPlayer()
	mp.AutoFinish = true
	return mp
}

// FailNextPlay makes the following Play calls return err until cleared
// with nil.
func (mp *MockPlayer) FailNextPlay(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.playErr = err
}

// Play starts simulated playback of clip.
func (mp *MockPlayer) Play(clip []byte) (<-chan struct{}, error) {
	if len(clip) == 0 {
		return nil, ErrEmptyAudio
	}

	mp.mu.Lock()
	if PlayerState(mp.state.Load()) == StateClosed {
		mp.mu.Unlock()
		return nil, ErrClosed
	}
	if mp.playErr != nil {
		err := mp.playErr
		mp.mu.Unlock()
		return nil, err
	}
	mp.stopLocked(false)

	mp.current = clip
	mp.done = make(chan struct{})
	mp.played = append(mp.played, clip)
	mp.state.Store(int32(StatePlaying))
	mp.playCount.Add(1)
	done := mp.done

	if mp.AutoFinish {
		d, err := Duration(clip)
		if err != nil || d <= 0 {
			d = mp.Fallback
		}
		mp.remaining = d
		mp.armLocked()
	}
	cb := mp.callbacks.OnPlay
	mp.mu.Unlock()

	if cb != nil {
		cb(clip)
	}
	return done, nil
}

func (mp *MockPlayer) armLocked() {
	done := mp.done
	mp.startedAt = time.Now()
	mp.timer = time.AfterFunc(mp.remaining, func() {
		mp.mu.Lock()
		defer mp.mu.Unlock()
		if mp.done == done && PlayerState(mp.state.Load()) == StatePlaying {
			mp.finishLocked()
		}
	})
}

// Finish ends the current clip as if it had played to the end.
func (mp *MockPlayer) Finish() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.done == nil {
		return errors.New("no clip is playing")
	}
	mp.finishLocked()
	return nil
}

func (mp *MockPlayer) finishLocked() {
	if mp.timer != nil {
		mp.timer.Stop()
		mp.timer = nil
	}
	close(mp.done)
	mp.done = nil
	mp.current = nil
	mp.state.Store(int32(StateStopped))
}

// Pause pauses the current playback.
func (mp *MockPlayer) Pause() error {
	mp.mu.Lock()
	if s := PlayerState(mp.state.Load()); s != StatePlaying {
		mp.mu.Unlock()
		return fmt.Errorf("cannot pause: player is %s", s)
	}
	if mp.timer != nil {
		mp.timer.Stop()
		mp.timer = nil
		mp.remaining -= time.Since(mp.startedAt)
	}
	mp.state.Store(int32(StatePaused))
	mp.pauseCount.Add(1)
	cb := mp.callbacks.OnPause
	mp.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Resume resumes paused playback.
func (mp *MockPlayer) Resume() error {
	mp.mu.Lock()
	if s := PlayerState(mp.state.Load()); s != StatePaused {
		mp.mu.Unlock()
		return fmt.Errorf("cannot resume: player is %s", s)
	}
	mp.state.Store(int32(StatePlaying))
	mp.resumeCount.Add(1)
	if mp.AutoFinish {
		mp.armLocked()
	}
	cb := mp.callbacks.OnResume
	mp.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Stop abandons the current clip without closing its done channel.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	stopped := mp.stopLocked(true)
	cb := mp.callbacks.OnStop
	mp.mu.Unlock()

	if stopped && cb != nil {
		cb()
	}
	return nil
}

func (mp *MockPlayer) stopLocked(count bool) bool {
	s := PlayerState(mp.state.Load())
	if s == StateStopped || s == StateClosed {
		return false
	}
	if mp.timer != nil {
		mp.timer.Stop()
		mp.timer = nil
	}
	mp.done = nil
	mp.current = nil
	mp.state.Store(int32(StateStopped))
	if count {
		mp.stopCount.Add(1)
	}
	return true
}

// Close releases the player.
func (mp *MockPlayer) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.stopLocked(false)
	mp.state.Store(int32(StateClosed))
	return nil
}

// State returns the current player state.
func (mp *MockPlayer) State() PlayerState {
	return PlayerState(mp.state.Load())
}

// IsPlaying returns whether a clip is playing.
func (mp *MockPlayer) IsPlaying() bool {
	return mp.State() == StatePlaying
}

// Current returns the clip being played, or nil.
func (mp *MockPlayer) Current() []byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.current
}

// Played returns every clip passed to Play, in order.
func (mp *MockPlayer) Played() [][]byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([][]byte, len(mp.played))
	copy(out, mp.played)
	return out
}

// GetMetrics returns playback metrics for testing.
func (mp *MockPlayer) GetMetrics() (plays, pauses, resumes, stops int64) {
	return mp.playCount.Load(), mp.pauseCount.Load(), mp.resumeCount.Load(), mp.stopCount.Load()
}
