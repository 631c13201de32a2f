package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/dgnsrekt/shadow/internal/audio"
	"github.com/dgnsrekt/shadow/internal/cache"
	"github.com/dgnsrekt/shadow/internal/config"
	"github.com/dgnsrekt/shadow/internal/download"
	"github.com/dgnsrekt/shadow/internal/session"
	"github.com/dgnsrekt/shadow/internal/sessions"
	"github.com/dgnsrekt/shadow/internal/tts"
	"github.com/dgnsrekt/shadow/internal/tts/engines"
	"github.com/dgnsrekt/shadow/internal/voice"
)

// app holds the services a command needs. Stores are opened on first use.
type app struct {
	cfg      *config.Config
	registry *voice.Registry
	presets  *voice.PresetStore
	logger   *log.Logger

	store    *cache.Store
	db       *gorm.DB
	repo     sessions.Repo
	provider tts.Provider
	gate      *tts.Gate
	orch      *download.Orchestrator
	telemetry *tts.Telemetry
}

func loadApp() (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return newApp(cfg), nil
}

func newApp(cfg *config.Config) *app {
	return &app{
		cfg:      cfg,
		registry: voice.NewDefaultRegistry(),
		presets:  voice.NewPresetStore(cfg.PresetsFile()),
		logger:   log.Default(),
	}
}

func (a *app) openStore() (*cache.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	cc := cache.DefaultConfig(a.cfg.CacheDir())
	cc.MemoryCapacity = int64(a.cfg.CacheMemoryMB) << 20
	s, err := cache.Open(cc, cache.WithLogger(a.logger.With("component", "cache")))
	if err != nil {
		return nil, fmt.Errorf("unable to open audio cache: %w", err)
	}
	a.store = s
	return s, nil
}

func (a *app) openSessions() (sessions.Repo, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	db, err := sessions.OpenDB(a.cfg.SessionsDB(), a.logger)
	if err != nil {
		return nil, err
	}
	repo, err := sessions.NewRepo(db, a.logger)
	if err != nil {
		return nil, err
	}
	a.db, a.repo = db, repo
	return repo, nil
}

func (a *app) openProvider() (tts.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	p, err := engines.New(a.cfg.Engine, engines.ElevenLabsConfig{
		APIKey:            a.cfg.APIKey,
		BaseURL:           a.cfg.BaseURL,
		OutputFormat:      a.cfg.OutputFormat,
		RequestsPerMinute: a.cfg.RequestsPerMinute,
		Logger:            a.logger.With("engine", a.cfg.Engine),
	})
	if err != nil {
		return nil, err
	}
	a.provider = p
	return p, nil
}

// openDownloader wires the cache, the session database and the synthesis
// gate into a download orchestrator.
func (a *app) openDownloader() (*download.Orchestrator, error) {
	if a.orch != nil {
		return a.orch, nil
	}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	repo, err := a.openSessions()
	if err != nil {
		return nil, err
	}
	provider, err := a.openProvider()
	if err != nil {
		return nil, err
	}
	tel := tts.NewTelemetry()
	metrics, err := tts.NewMetrics(tel.MeterProvider())
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, fmt.Errorf("unable to create metrics: %w", err)
	}
	a.telemetry = tel
	gate, err := tts.NewGate(store, provider,
		tts.WithGateLogger(a.logger.With("component", "gate")),
		tts.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	a.gate = gate
	a.orch = download.New(gate, store, repo, a.registry, download.WithLogger(a.logger.With("component", "download")))
	return a.orch, nil
}

// player opens the audio device. Without one, clips play silently in real
// time so a session still runs its course.
func (a *app) player() (session.Player, func() error) {
	p, err := audio.NewPlayer(audio.DefaultPlayerConfig())
	if err != nil {
		a.logger.Warn("no audio device, playing silently", "err", err)
		sp := audio.NewSilentPlayer()
		return sp, sp.Close
	}
	return p, p.Close
}

// recorder returns the capture process for a session, or a no-op recorder
// when none is configured.
func (a *app) recorder(command string, sessionID uint) (session.Recorder, error) {
	if strings.TrimSpace(command) == "" {
		return session.NoopRecorder{}, nil
	}
	if strings.Contains(command, "{file}") {
		dir := a.cfg.RecordingsDir()
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
			return nil, fmt.Errorf("unable to create recordings directory: %w", err)
		}
		name := fmt.Sprintf("session-%d-%s.wav", sessionID, time.Now().Format("20060102-150405"))
		command = strings.ReplaceAll(command, "{file}", filepath.Join(dir, name))
	}
	return session.NewCommandRecorder(command, a.cfg.RecorderSettle, a.logger.With("component", "recorder")), nil
}

// synthesisTotals reports what the gate did in this process. ok is false
// before anything was downloaded.
func (a *app) synthesisTotals(ctx context.Context) (t tts.Totals, ok bool) {
	if a.telemetry == nil {
		return t, false
	}
	t, err := a.telemetry.Totals(ctx)
	if err != nil {
		a.logger.Warn("unable to collect metrics", "err", err)
		return t, false
	}
	return t, true
}

func (a *app) Close() error {
	var errs []error
	if t, ok := a.synthesisTotals(context.Background()); ok {
		a.logger.Info("synthesis totals", "hits", t.CacheHits, "misses", t.CacheMisses, "calls", t.Calls, "errors", t.Errors)
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(context.Background()))
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

// withTimeout bounds short storage operations run by the listing commands.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}
