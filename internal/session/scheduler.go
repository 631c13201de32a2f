package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/dgnsrekt/shadow/internal/cache"
	"github.com/dgnsrekt/shadow/internal/lesson"
	"github.com/dgnsrekt/shadow/internal/tts"
	"github.com/dgnsrekt/shadow/internal/voice"
)

// Defaults for Config.
const (
	DefaultLeadIn           = time.Second
	DefaultFollowDelayRatio = 1.2
)

var (
	// ErrStopped is returned by Run when the session was stopped early.
	ErrStopped = errors.New("session stopped")

	// ErrMissingAsset marks a position with no downloaded audio. It is
	// never returned; the position is skipped.
	ErrMissingAsset = errors.New("no audio bound for this position")

	errNotRunning = errors.New("scheduler is not running")
)

// RecorderUnavailableError is returned when the recorder failed to start.
type RecorderUnavailableError struct {
	Err error
}

func (e *RecorderUnavailableError) Error() string {
	return fmt.Sprintf("recorder unavailable: %v", e.Err)
}

func (e *RecorderUnavailableError) Unwrap() error { return e.Err }

// Player plays a clip and reports its natural end by closing the returned
// channel.
type Player interface {
	Play(clip []byte) (<-chan struct{}, error)
	Pause() error
	Resume() error
	Stop() error
}

// BindingSource reads session bindings.
type BindingSource interface {
	GetSessionBinding(ctx context.Context, key string) (*cache.SessionBinding, bool, error)
}

// Completer records that a session ran to the end.
type Completer interface {
	Complete(ctx context.Context, tx *gorm.DB, id uint, completedAt time.Time, totalSentences int) error
}

// Config describes one playback session.
type Config struct {
	SessionID        uint
	Lesson           *lesson.Lesson
	Voices           []voice.Applied
	ModelID          string
	FollowDelayRatio float64
	// LeadIn defaults to DefaultLeadIn when zero. A negative value disables it.
	LeadIn time.Duration
	// Automation marks unattended runs started by the automation driver.
	Automation bool
}

type command int

const (
	cmdTogglePause command = iota
	cmdPause
	cmdResume
	cmdNext
	cmdPrevious
	cmdStop
)

// Scheduler drives playback of a downloaded lesson. All state is owned by
// the goroutine running Run; control methods only enqueue commands.
type Scheduler struct {
	cfg       Config
	player    Player
	bindings  BindingSource
	registry  *voice.Registry
	clock     Clock
	recorder  Recorder
	completer Completer
	observer  func(Event)
	logger    *log.Logger

	cmds    chan command
	done    chan struct{}
	started chan struct{}
	once    sync.Once

	mu   sync.Mutex
	last Event

	// loop state, touched only by Run
	machine *machine
	pos     Position
	clip    <-chan struct{}
	clipDur time.Duration
	timer   Timer
	wait    time.Duration
	resume  Phase
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

// WithRecorder gates playback on a recorder.
func WithRecorder(r Recorder) Option { return func(s *Scheduler) { s.recorder = r } }

// WithCompleter records completion when the session finishes.
func WithCompleter(c Completer) Option { return func(s *Scheduler) { s.completer = c } }

// WithObserver receives every Event. It is called from the Run goroutine
// and must not block.
func WithObserver(fn func(Event)) Option { return func(s *Scheduler) { s.observer = fn } }

// WithRegistry sets the preset registry used to derive binding keys.
func WithRegistry(r *voice.Registry) Option { return func(s *Scheduler) { s.registry = r } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(s *Scheduler) { s.logger = l } }

// New creates a Scheduler.
func New(cfg Config, player Player, bindings BindingSource, opts ...Option) *Scheduler {
	if cfg.FollowDelayRatio <= 0 {
		cfg.FollowDelayRatio = DefaultFollowDelayRatio
	}
	if cfg.ModelID == "" {
		cfg.ModelID = tts.DefaultModelID
	}
	switch {
	case cfg.LeadIn == 0:
		cfg.LeadIn = DefaultLeadIn
	case cfg.LeadIn < 0:
		cfg.LeadIn = 0
	}
	s := &Scheduler{
		cfg:      cfg,
		player:   player,
		bindings: bindings,
		registry: voice.NewDefaultRegistry(),
		clock:    RealClock{},
		recorder: NoopRecorder{},
		logger:   log.Default(),
		cmds:     make(chan command, 16),
		done:     make(chan struct{}),
		started:  make(chan struct{}),
		machine:  newMachine(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TogglePause pauses or resumes playback.
func (s *Scheduler) TogglePause() error { return s.send(cmdTogglePause) }

// Pause freezes the current clip or wait.
func (s *Scheduler) Pause() error { return s.send(cmdPause) }

// Resume continues after Pause.
func (s *Scheduler) Resume() error { return s.send(cmdResume) }

// Next jumps to the following sentence.
func (s *Scheduler) Next() error { return s.send(cmdNext) }

// Previous jumps to the preceding sentence.
func (s *Scheduler) Previous() error { return s.send(cmdPrevious) }

// Stop ends the session without marking it complete.
func (s *Scheduler) Stop() error { return s.send(cmdStop) }

func (s *Scheduler) send(c command) error {
	select {
	case <-s.done:
		return errNotRunning
	default:
	}
	select {
	case <-s.done:
		return errNotRunning
	case s.cmds <- c:
		return nil
	}
}

// Done is closed when Run returns.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// Snapshot returns the most recent event.
func (s *Scheduler) Snapshot() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Config returns the session configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// Run plays the session to the end. It returns nil when the session
// finished, ErrStopped after Stop, ctx.Err() on cancellation and
// *RecorderUnavailableError when the recorder could not start. Run may
// only be called once.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	ran := false
	s.once.Do(func() { ran = true })
	if !ran {
		return errors.New("scheduler already ran")
	}
	defer close(s.done)

	s.emit(Event{Phase: PhaseWaitingForRecorder})
	if err := s.recorder.Ready(ctx); err != nil {
		s.logger.Error("recorder unavailable", "err", err)
		s.enter(PhaseFinished, Event{Err: err})
		return &RecorderUnavailableError{Err: err}
	}
	defer func() {
		if ferr := s.finishRecorder(ctx); ferr != nil && err == nil {
			err = ferr
		}
	}()

	if s.cfg.Lesson.Len() == 0 || len(s.cfg.Voices) == 0 {
		s.enter(PhaseStarting, Event{})
		return s.finish(ctx)
	}

	timer := s.clock.NewTimer(s.cfg.LeadIn)
	s.enter(PhaseStarting, Event{Wait: s.cfg.LeadIn})
	if err := s.leadIn(ctx, timer); err != nil {
		return err
	}
	s.listen(ctx)
	return s.loop(ctx)
}

// leadIn waits out the lead-in. Only Stop and cancellation are honored.
func (s *Scheduler) leadIn(ctx context.Context, timer Timer) error {
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			s.enter(PhaseFinished, Event{Err: ctx.Err()})
			return ctx.Err()
		case <-timer.C():
			return nil
		case c := <-s.cmds:
			if c == cmdStop {
				timer.Stop()
				s.enter(PhaseFinished, Event{Err: ErrStopped})
				return ErrStopped
			}
			s.logger.Debug("ignoring command during lead-in", "command", c)
		}
	}
}

func (s *Scheduler) loop(ctx context.Context) error {
	for {
		var clipDone <-chan struct{}
		var timerC <-chan time.Time
		switch s.machine.current {
		case PhaseListening:
			clipDone = s.clip
		case PhaseWaiting:
			if s.timer != nil {
				timerC = s.timer.C()
			}
		case PhaseFinished:
			return nil
		}

		select {
		case <-ctx.Done():
			s.halt()
			s.enter(PhaseFinished, Event{Err: ctx.Err()})
			return ctx.Err()

		case <-clipDone:
			s.clip = nil
			s.startWait(s.clipDur)

		case <-timerC:
			s.timer = nil
			if s.advance() {
				return s.finish(ctx)
			}
			s.listen(ctx)

		case c := <-s.cmds:
			if done, err := s.handle(ctx, c); done {
				return err
			}
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, c command) (bool, error) {
	paused := s.machine.current == PhasePaused
	switch c {
	case cmdTogglePause:
		if paused {
			s.resumePlayback()
		} else {
			s.pausePlayback()
		}
	case cmdPause:
		if !paused {
			s.pausePlayback()
		}
	case cmdResume:
		if paused {
			s.resumePlayback()
		}
	case cmdNext, cmdPrevious:
		delta := 1
		if c == cmdPrevious {
			delta = -1
		}
		s.seek(ctx, delta)
	case cmdStop:
		s.halt()
		s.enter(PhaseFinished, Event{Err: ErrStopped})
		return true, ErrStopped
	}
	return false, nil
}

// listen plays the clip for the current position. Positions without audio
// are skipped.
func (s *Scheduler) listen(ctx context.Context) {
	for {
		binding, err := s.lookup(ctx)
		if err == nil {
			clip, perr := s.player.Play(binding.Audio)
			if perr == nil {
				s.clip = clip
				s.clipDur = binding.Duration
				s.enter(PhaseListening, Event{Clip: binding.Duration})
				return
			}
			err = perr
		}

		s.logger.Debug("skipping position", "sentence", s.pos.Sentence, "voice", s.pos.Voice, "repeat", s.pos.Repeat, "err", err)
		s.emit(Event{Phase: PhaseListening, Position: s.pos, Skipped: true, Err: err})
		if s.advance() {
			s.finish(ctx) //nolint:errcheck
			return
		}
	}
}

func (s *Scheduler) lookup(ctx context.Context) (*cache.SessionBinding, error) {
	sentence := s.cfg.Lesson.Sentences[s.pos.Sentence]
	v := s.cfg.Voices[s.pos.Voice]
	stability := sentence.EffectiveStability()
	simBoost := s.registry.Settings(v.VoiceID).SimilarityBoost

	key := cache.BindingKey(s.cfg.SessionID, sentence.Index, v.VoiceID, s.cfg.ModelID, v.Speed, stability, simBoost)
	binding, ok, err := s.bindings.GetSessionBinding(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingAsset, err)
	}
	if !ok {
		return nil, ErrMissingAsset
	}
	return binding, nil
}

func (s *Scheduler) startWait(clip time.Duration) {
	s.wait = time.Duration(float64(clip) * s.cfg.FollowDelayRatio)
	s.timer = s.clock.NewTimer(s.wait)
	s.enter(PhaseWaiting, Event{Wait: s.wait, Clip: clip})
}

// advance moves the odometer and reports whether the session is over.
func (s *Scheduler) advance() bool {
	next, done := s.pos.Next(s.cfg.Voices, s.cfg.Lesson.Len())
	if done {
		return true
	}
	s.pos = next
	return false
}

func (s *Scheduler) pausePlayback() {
	switch s.machine.current {
	case PhaseListening:
		if err := s.player.Pause(); err != nil {
			s.logger.Debug("player pause failed", "err", err)
		}
	case PhaseWaiting:
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
	default:
		return
	}
	s.resume = s.machine.current
	s.enter(PhasePaused, Event{Wait: s.wait})
}

func (s *Scheduler) resumePlayback() {
	switch s.resume {
	case PhaseListening:
		if err := s.player.Resume(); err != nil {
			s.logger.Debug("player resume failed", "err", err)
		}
		s.enter(PhaseListening, Event{Clip: s.clipDur})
	case PhaseWaiting:
		// The full delay is re-armed, not the remainder.
		s.timer = s.clock.NewTimer(s.wait)
		s.enter(PhaseWaiting, Event{Wait: s.wait, Clip: s.clipDur})
	}
}

// seek jumps by delta sentences, clamped, and restarts at the first voice
// and repeat. Seeking while paused also resumes.
func (s *Scheduler) seek(ctx context.Context, delta int) {
	target := s.pos.Sentence + delta
	if target < 0 {
		target = 0
	}
	if last := s.cfg.Lesson.Len() - 1; target > last {
		target = last
	}
	s.halt()
	s.pos = Position{Sentence: target}
	s.listen(ctx)
}

// halt cancels the pending timer and abandons the current clip.
func (s *Scheduler) halt() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.clip != nil {
		if err := s.player.Stop(); err != nil {
			s.logger.Debug("player stop failed", "err", err)
		}
	}
	s.clip = nil
}

func (s *Scheduler) finish(ctx context.Context) error {
	s.halt()
	total := s.cfg.Lesson.Len()
	if s.completer != nil && s.cfg.SessionID != 0 {
		if err := s.completer.Complete(ctx, nil, s.cfg.SessionID, s.clock.Now(), total); err != nil {
			s.logger.Error("unable to mark session complete", "session", s.cfg.SessionID, "err", err)
		}
	}
	s.enter(PhaseFinished, Event{})
	s.logger.Info("session finished", "session", s.cfg.SessionID, "sentences", total)
	return nil
}

func (s *Scheduler) finishRecorder(ctx context.Context) error {
	fctx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	if err := s.recorder.Finish(fctx); err != nil {
		s.logger.Error("recorder finish failed", "err", err)
		return err
	}
	return nil
}

func (s *Scheduler) enter(p Phase, ev Event) {
	if !s.machine.transition(p) {
		s.logger.Warn("invalid phase transition", "from", s.machine.current, "to", p)
		return
	}
	ev.Phase = p
	ev.Position = s.pos
	s.emit(ev)
}

func (s *Scheduler) emit(ev Event) {
	s.mu.Lock()
	s.last = ev
	s.mu.Unlock()
	if s.observer != nil {
		s.observer(ev)
	}
}
