package download

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/dgnsrekt/shadow/internal/cache"
	"github.com/dgnsrekt/shadow/internal/lesson"
	"github.com/dgnsrekt/shadow/internal/sessions"
	"github.com/dgnsrekt/shadow/internal/tts"
	"github.com/dgnsrekt/shadow/internal/voice"
)

// ErrNoLesson is returned when DownloadAll is called without a lesson.
var ErrNoLesson = errors.New("no lesson loaded")

// Resolver returns synthesized audio for a request.
type Resolver interface {
	Resolve(ctx context.Context, req tts.Request) (tts.Result, error)
}

// BindingStore persists session bindings.
type BindingStore interface {
	PutSessionBinding(ctx context.Context, b *cache.SessionBinding) error
}

// SessionCreator creates session metadata rows.
type SessionCreator interface {
	Create(ctx context.Context, tx *gorm.DB, l *lesson.Lesson) (*sessions.Session, error)
}

// Orchestrator fills the asset cache and session bindings for a lesson.
// Sentences and voices are processed strictly in order, one call at a time.
type Orchestrator struct {
	resolver Resolver
	bindings BindingStore
	sessions SessionCreator
	registry *voice.Registry
	logger   *log.Logger

	mu        sync.Mutex
	sessionOf map[*lesson.Lesson]uint
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator.
func New(resolver Resolver, bindings BindingStore, creator SessionCreator, registry *voice.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver:  resolver,
		bindings:  bindings,
		sessions:  creator,
		registry:  registry,
		logger:    log.Default(),
		sessionOf: make(map[*lesson.Lesson]uint),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Attach associates an already stored session with l, so downloads for a
// lesson reopened from history reuse its id.
func (o *Orchestrator) Attach(l *lesson.Lesson, sessionID uint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessionOf[l] = sessionID
}

// SessionID returns the session created for l, if any.
func (o *Orchestrator) SessionID(l *lesson.Lesson) (uint, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id, ok := o.sessionOf[l]
	return id, ok
}

// DownloadAll synthesizes and binds every (sentence, voice) slot of l.
//
// progress receives round((i+1)/N*100) after sentence i, ending at 100.
// A value equal to the previous report is not repeated.
// The first failure aborts the pass; the returned error is a
// *tts.SynthesisError. Cancellation is honored between sentences.
func (o *Orchestrator) DownloadAll(ctx context.Context, l *lesson.Lesson, voices []voice.Applied, modelID string, progress func(int)) (uint, error) {
	if l == nil {
		return 0, tts.Generic("cannot download", ErrNoLesson)
	}
	if progress == nil {
		progress = func(int) {}
	}
	if modelID == "" {
		modelID = tts.DefaultModelID
	}

	sessionID, err := o.ensureSession(ctx, l)
	if err != nil {
		return 0, err
	}

	total := l.Len()
	last := -1
	report := func(p int) {
		if p != last {
			last = p
			progress(p)
		}
	}
	o.logger.Info("download started", "session", sessionID, "sentences", total, "voices", len(voices))

	for i, sentence := range l.Sentences {
		if err := ctx.Err(); err != nil {
			return sessionID, tts.Classify(err)
		}

		stability := sentence.EffectiveStability()
		for _, v := range voices {
			if err := o.bind(ctx, sessionID, sentence, v, modelID, stability); err != nil {
				o.logger.Error("download aborted", "session", sessionID, "sentence", sentence.Index, "voice", v.VoiceID, "err", err)
				return sessionID, err
			}
		}
		report(percent(i+1, total))
	}

	report(100)
	o.logger.Info("download finished", "session", sessionID)
	return sessionID, nil
}

func (o *Orchestrator) bind(ctx context.Context, sessionID uint, s lesson.Sentence, v voice.Applied, modelID string, stability float64) error {
	settings := tts.SettingsFor(o.registry.Settings(v.VoiceID), v.Speed, stability)

	res, err := o.resolver.Resolve(ctx, tts.Request{
		Text:     s.English,
		VoiceID:  v.VoiceID,
		ModelID:  modelID,
		Settings: settings,
	})
	if err != nil {
		return tts.Classify(err)
	}

	binding := &cache.SessionBinding{
		ID:              cache.BindingKey(sessionID, s.Index, v.VoiceID, modelID, v.Speed, stability, settings.SimilarityBoost),
		SessionID:       sessionID,
		SentenceIndex:   s.Index,
		VoiceID:         v.VoiceID,
		ModelID:         modelID,
		Speed:           v.Speed,
		Stability:       stability,
		SimilarityBoost: settings.SimilarityBoost,
		Fingerprint:     res.Fingerprint,
		Audio:           res.Audio,
		Duration:        res.Duration,
	}
	if err := o.bindings.PutSessionBinding(ctx, binding); err != nil {
		return tts.Generic("unable to save session audio", err)
	}
	o.logger.Debug("bound", "key", binding.ID, "cached", res.Cached)
	return nil
}

func (o *Orchestrator) ensureSession(ctx context.Context, l *lesson.Lesson) (uint, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if id, ok := o.sessionOf[l]; ok {
		return id, nil
	}
	row, err := o.sessions.Create(ctx, nil, l)
	if err != nil {
		return 0, tts.Generic("unable to create session", err)
	}
	o.sessionOf[l] = row.ID
	return row.ID, nil
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
