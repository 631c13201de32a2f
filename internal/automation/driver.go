package automation

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/shadow/internal/lesson"
	"github.com/dgnsrekt/shadow/internal/session"
	"github.com/dgnsrekt/shadow/internal/voice"
)

// FallbackVoiceID is the slot id of the last-resort voice.
const FallbackVoiceID = "auto-voice-1"

// Downloader prepares a lesson for playback.
type Downloader interface {
	DownloadAll(ctx context.Context, l *lesson.Lesson, voices []voice.Applied, modelID string, progress func(int)) (uint, error)
}

// SessionRunner plays a downloaded session.
type SessionRunner interface {
	RunSession(ctx context.Context, cfg session.Config) error
}

// PresetSource lists the session presets the user saved.
type PresetSource interface {
	Saved() ([]voice.SessionPreset, error)
}

// Plan is the voice configuration an automated run uses.
type Plan struct {
	Voices           []voice.Applied
	ModelID          string
	FollowDelayRatio float64
	// Source names where the voices came from.
	Source string
}

// Driver runs the automated download-then-play sequence.
type Driver struct {
	env        *Environment
	downloader Downloader
	runner     SessionRunner
	triggers   *TriggerStore
	presets    PresetSource
	plan       Plan
	progress   func(int)
	logger     *log.Logger

	mu      sync.Mutex
	lastErr error
}

// Option configures a Driver.
type Option func(*Driver)

// WithTriggerStore clears the stored trigger after a successful download.
func WithTriggerStore(s *TriggerStore) Option { return func(d *Driver) { d.triggers = s } }

// WithPresets supplies saved presets for the voice fallback.
func WithPresets(p PresetSource) Option { return func(d *Driver) { d.presets = p } }

// WithPlan sets the configured voices, model and follow delay.
func WithPlan(p Plan) Option { return func(d *Driver) { d.plan = p } }

// WithProgress receives download progress.
func WithProgress(fn func(int)) Option { return func(d *Driver) { d.progress = fn } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(d *Driver) { d.logger = l } }

// NewDriver creates a Driver.
func NewDriver(env *Environment, downloader Downloader, runner SessionRunner, opts ...Option) *Driver {
	d := &Driver{
		env:        env,
		downloader: downloader,
		runner:     runner,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LastError returns the failure of the most recent run, if any.
func (d *Driver) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// Run waits for the environment to be ready, downloads the lesson and
// plays it. A failed download is recorded and returned; it is not retried.
func (d *Driver) Run(ctx context.Context, t Trigger) error {
	if !t.Active() {
		return ErrNoTrigger
	}
	d.setErr(nil)

	snap, err := d.await(ctx)
	if err != nil {
		return d.fail("waiting for prerequisites", err)
	}

	plan := d.resolvePlan()
	d.logger.Info("automation starting", "lesson", snap.Lesson.Title, "voices", len(plan.Voices), "source", plan.Source)

	id, err := d.downloader.DownloadAll(ctx, snap.Lesson, plan.Voices, plan.ModelID, d.progress)
	if err != nil {
		return d.fail("download", err)
	}

	if d.triggers != nil {
		if err := d.triggers.Clear(); err != nil {
			d.logger.Warn("unable to clear auto-start trigger", "path", d.triggers.Path(), "err", err)
		}
	}

	return d.runner.RunSession(ctx, session.Config{
		SessionID:        id,
		Lesson:           snap.Lesson,
		Voices:           plan.Voices,
		ModelID:          plan.ModelID,
		FollowDelayRatio: plan.FollowDelayRatio,
		Automation:       true,
	})
}

// await blocks until the snapshot is ready. A lesson or voice catalog
// failure ends the wait.
func (d *Driver) await(ctx context.Context) (Snapshot, error) {
	for {
		changed := d.env.Changed()
		snap := d.env.Snapshot()
		if err := snap.Err(); err != nil {
			return snap, err
		}
		if snap.Ready() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

// resolvePlan picks the configured voices, then the first saved preset,
// then the built-in fallback voice.
func (d *Driver) resolvePlan() Plan {
	if len(d.plan.Voices) > 0 {
		p := d.plan
		p.Source = "config"
		return withDefaults(p)
	}
	if d.presets != nil {
		saved, err := d.presets.Saved()
		if err != nil {
			d.logger.Warn("unable to read saved presets", "err", err)
		}
		if len(saved) > 0 {
			sp := saved[0]
			return withDefaults(Plan{
				Voices:           sp.Voices,
				ModelID:          sp.ModelID,
				FollowDelayRatio: sp.FollowDelayRatio,
				Source:           "preset " + sp.Name,
			})
		}
	}
	return withDefaults(Plan{
		Voices:           []voice.Applied{FallbackVoice()},
		ModelID:          d.plan.ModelID,
		FollowDelayRatio: d.plan.FollowDelayRatio,
		Source:           "fallback",
	})
}

func withDefaults(p Plan) Plan {
	if p.ModelID == "" {
		p.ModelID = voice.DefaultModelID
	}
	if p.FollowDelayRatio <= 0 {
		p.FollowDelayRatio = voice.DefaultFollowDelayRatio
	}
	return p
}

// FallbackVoice is used when neither config nor presets name a voice.
func FallbackVoice() voice.Applied {
	v := voice.NewApplied(voice.JakeVoiceID, "Jake", 1.0, 1)
	v.ID = FallbackVoiceID
	return v
}

func (d *Driver) fail(stage string, err error) error {
	err = fmt.Errorf("automation %s failed: %w", stage, err)
	d.setErr(err)
	d.logger.Error("automation halted", "err", err)
	return err
}

func (d *Driver) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastErr = err
}
