package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dgnsrekt/shadow/internal/lesson"
	"github.com/dgnsrekt/shadow/internal/tts"
	"github.com/dgnsrekt/shadow/internal/voice"
)

// Snapshot is the state the driver waits on.
type Snapshot struct {
	HasCredentials bool
	Voices         []voice.Voice
	Lesson         *lesson.Lesson
	// LessonErr is set when the lesson could not be loaded or watched.
	LessonErr error
	// VoicesErr is set when the voice catalog could not be fetched.
	VoicesErr error
}

// Err returns the first failure that prevents the snapshot from ever
// becoming ready.
func (s Snapshot) Err() error {
	if s.LessonErr != nil {
		return s.LessonErr
	}
	return s.VoicesErr
}

// Ready reports whether every prerequisite is present.
func (s Snapshot) Ready() bool {
	return s.HasCredentials && len(s.Voices) > 0 && s.Lesson != nil
}

// Environment holds the prerequisites of an automated run and broadcasts
// every change.
type Environment struct {
	mu      sync.Mutex
	snap    Snapshot
	changed chan struct{}
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment {
	return &Environment{changed: make(chan struct{})}
}

// Snapshot returns the current state.
func (e *Environment) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Changed returns a channel that is closed on the next update. Take the
// channel before reading the snapshot so no update is missed.
func (e *Environment) Changed() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changed
}

// SetCredentials records whether an API key is configured.
func (e *Environment) SetCredentials(ok bool) {
	e.update(func(s *Snapshot) { s.HasCredentials = ok })
}

// SetVoices records the provider voice catalog.
func (e *Environment) SetVoices(voices []voice.Voice) {
	e.update(func(s *Snapshot) { s.Voices = voices })
}

// SetVoicesErr records that the voice catalog is unavailable.
func (e *Environment) SetVoicesErr(err error) {
	e.update(func(s *Snapshot) { s.VoicesErr = err })
}

// SetLesson records the loaded lesson, or the error that prevented it.
func (e *Environment) SetLesson(l *lesson.Lesson, err error) {
	e.update(func(s *Snapshot) {
		s.Lesson = l
		s.LessonErr = err
	})
}

func (e *Environment) update(fn func(*Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.snap)
	close(e.changed)
	e.changed = make(chan struct{})
}

// LoadVoices fetches the voice catalog into env. A fetch failure is
// published as VoicesErr.
func LoadVoices(ctx context.Context, env *Environment, p tts.Provider, reg *voice.Registry, timeout time.Duration, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	cat, err := tts.FetchVoices(ctx, p, reg, timeout)
	if err != nil {
		logger.Error("unable to fetch voices", "err", err)
		env.SetVoicesErr(fmt.Errorf("fetching voices: %w", err))
		return
	}
	if cat.Fallback {
		logger.Warn(cat.Warning)
	}
	env.SetVoices(cat.Voices)
}

// WatchLesson loads the lesson behind ref into env. A local file that does
// not exist yet is watched until it appears. WatchLesson returns once the
// lesson was loaded, loading failed, or ctx ended. Every failure other
// than cancellation is published as LessonErr.
func WatchLesson(ctx context.Context, env *Environment, ref string, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	err := watchLesson(ctx, env, ref, logger)
	if err != nil && ctx.Err() == nil && env.Snapshot().LessonErr == nil {
		env.SetLesson(nil, err)
	}
	return err
}

func watchLesson(ctx context.Context, env *Environment, ref string, logger *log.Logger) error {
	if lesson.IsRemote(ref) {
		l, err := lesson.Load(ctx, ref)
		env.SetLesson(l, err)
		return err
	}

	path, err := lesson.ResolvePath(ref)
	if err != nil {
		env.SetLesson(nil, err)
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close() //nolint:errcheck

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	// The file may have appeared before the watch was added.
	if _, err := os.Stat(path); err == nil {
		return loadInto(ctx, env, path)
	}
	logger.Info("waiting for lesson file", "path", path)

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("lesson watcher closed")
			}
			logger.Warn("lesson watcher error", "err", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("lesson watcher closed")
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Create|fsnotify.Write) {
				continue
			}
			l, err := lesson.Load(ctx, path)
			if err != nil {
				// Likely a partial write; wait for the next event.
				logger.Debug("lesson not readable yet", "path", path, "err", err)
				continue
			}
			env.SetLesson(l, nil)
			return nil
		}
	}
}

func loadInto(ctx context.Context, env *Environment, path string) error {
	l, err := lesson.Load(ctx, path)
	env.SetLesson(l, err)
	return err
}
