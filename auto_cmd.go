package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/shadow/internal/automation"
	"github.com/dgnsrekt/shadow/internal/config"
	"github.com/dgnsrekt/shadow/internal/lesson"
	"github.com/dgnsrekt/shadow/internal/session"
	"github.com/dgnsrekt/shadow/internal/voice"
)

var autoCmd = &cobra.Command{
	Use:   "auto [URL]",
	Short: "Download and play a lesson without interaction",
	Long: paragraph(fmt.Sprintf("\nRuns the %s sequence named by an auto-start URL such as ?autoStart=true&sessionUrl=lesson.json. The URL is remembered until the lesson has downloaded, so an interrupted run resumes on the next start. Without an argument the remembered URL is used.",
		keyword("download then play"))),
	Example: paragraph("shadow auto '?autoStart=true&sessionUrl=~/lessons/today.json'\nshadow auto"),
	Args:    cobra.MaximumNArgs(1),
	RunE:    runAuto,
}

// autoRun holds the state of one automated run. The configuration may be
// replaced while it waits for credentials.
type autoRun struct {
	env    *automation.Environment
	logger *log.Logger

	mu           sync.Mutex
	cfg          *config.Config
	app          *app
	voicesLoaded bool
}

func runAuto(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := loadApp()
	if err != nil {
		return err
	}
	triggers := automation.NewTriggerStore(a.cfg.TriggerFile())

	var trigger automation.Trigger
	if len(args) == 1 {
		if err := triggers.Save(args[0]); err != nil {
			return err
		}
		if trigger, err = automation.ParseTrigger(args[0]); err != nil {
			return err
		}
	} else {
		t, raw, ok, err := triggers.Load()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: pass an auto-start URL", automation.ErrNoTrigger)
		}
		log.Info("resuming stored auto-start", "url", raw)
		trigger = t
	}
	if !trigger.Active() {
		return automation.ErrNoTrigger
	}

	run := &autoRun{
		env:    automation.NewEnvironment(),
		logger: log.Default().With("component", "automation"),
	}
	defer run.close()

	run.applyConfig(ctx, a.cfg)
	config.Watch(viper.GetViper(), run.logger, func(c *config.Config) { run.applyConfig(ctx, c) })

	go func() {
		if err := automation.WatchLesson(ctx, run.env, trigger.LessonRef, run.logger); err != nil && !errors.Is(err, context.Canceled) {
			run.logger.Error("unable to load lesson", "ref", trigger.LessonRef, "err", err)
		}
	}()

	voices, err := a.cfg.AppliedVoices(a.registry)
	if err != nil {
		return err
	}
	driver := automation.NewDriver(run.env, run, run,
		automation.WithTriggerStore(triggers),
		automation.WithPresets(a.presets),
		automation.WithPlan(automation.Plan{
			Voices:           voices,
			ModelID:          a.cfg.ModelID,
			FollowDelayRatio: a.cfg.FollowDelayRatio,
		}),
		automation.WithProgress(func(pct int) { fmt.Printf("download %3d%%\n", pct) }),
		automation.WithLogger(run.logger),
	)

	if !run.env.Snapshot().Ready() {
		fmt.Println(dimStyle.Render("Waiting for credentials, voices and the lesson…"))
	}
	err = driver.Run(ctx, trigger)
	if errors.Is(err, session.ErrStopped) {
		return nil
	}
	return err
}

// applyConfig publishes the credential state and starts the voice fetch
// once credentials are available.
func (r *autoRun) applyConfig(ctx context.Context, c *config.Config) {
	r.mu.Lock()
	r.cfg = c
	start := c.HasCredentials() && !r.voicesLoaded
	if start {
		r.voicesLoaded = true
	}
	r.mu.Unlock()

	r.env.SetCredentials(c.HasCredentials())
	if !start {
		return
	}
	go func() {
		provider, err := newApp(c).openProvider()
		if err != nil {
			r.logger.Error("unable to create provider", "err", err)
			r.env.SetVoicesErr(err)
			return
		}
		automation.LoadVoices(ctx, r.env, provider, voice.NewDefaultRegistry(), c.VoicesTimeout, r.logger)
	}()
}

// current returns the app built from the configuration in effect when it
// was first needed.
func (r *autoRun) current() *app {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.app == nil {
		r.app = newApp(r.cfg)
	}
	return r.app
}

// DownloadAll implements automation.Downloader.
func (r *autoRun) DownloadAll(ctx context.Context, l *lesson.Lesson, voices []voice.Applied, modelID string, progress func(int)) (uint, error) {
	orch, err := r.current().openDownloader()
	if err != nil {
		return 0, err
	}
	return orch.DownloadAll(ctx, l, voices, modelID, progress)
}

// RunSession implements automation.SessionRunner. Automated sessions use
// the automation recorder, which does not capture the microphone.
func (r *autoRun) RunSession(ctx context.Context, sc session.Config) error {
	a := r.current()
	sc.LeadIn = a.cfg.LeadIn
	return a.runSession(ctx, sc, a.cfg.AutoRecordCommand)
}

func (r *autoRun) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.app != nil {
		_ = r.app.Close()
	}
}
