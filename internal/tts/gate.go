package tts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/shadow/internal/cache"
	"github.com/dgnsrekt/shadow/internal/voice"
)

// AssetStore is the global asset collection the Gate reads and fills.
type AssetStore interface {
	GetGlobal(ctx context.Context, id string) (*cache.GlobalAsset, bool, error)
	PutGlobal(ctx context.Context, asset *cache.GlobalAsset) error
}

// Gate resolves synthesis requests against the asset cache and calls the
// provider at most once per distinct fingerprint.
type Gate struct {
	store    AssetStore
	provider Provider
	logger   *log.Logger
	metrics  *Metrics

	group singleflight.Group
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger.
func WithGateLogger(l *log.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *Metrics) GateOption {
	return func(g *Gate) { g.metrics = m }
}

// NewGate creates a Gate over store and provider.
func NewGate(store AssetStore, provider Provider, opts ...GateOption) (*Gate, error) {
	g := &Gate{
		store:    store,
		provider: provider,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.metrics == nil {
		m, err := NewMetrics(nil)
		if err != nil {
			return nil, err
		}
		g.metrics = m
	}
	return g, nil
}

// Provider returns the provider behind the gate.
func (g *Gate) Provider() Provider {
	return g.provider
}

// Resolve returns the audio for req, synthesizing it only on a cache miss.
//
// The fingerprint is taken over the requested speed; only the value sent to
// the provider is clamped. A failed or empty synthesis never writes to the
// store. Errors are *SynthesisError.
func (g *Gate) Resolve(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, Generic("cannot synthesize sentence", ErrEmptyText)
	}

	params := cache.Params{
		Text:            req.Text,
		VoiceID:         req.VoiceID,
		ModelID:         req.ModelID,
		Speed:           req.Settings.Speed,
		Stability:       req.Settings.Stability,
		SimilarityBoost: req.Settings.SimilarityBoost,
		Style:           req.Settings.Style,
		SpeakerBoost:    req.Settings.SpeakerBoost,
	}
	id := params.Fingerprint()

	if res, ok, err := g.lookup(ctx, id, true); err != nil || ok {
		return res, err
	}

	v, err, shared := g.group.Do(id, func() (interface{}, error) {
		// Another caller may have filled the slot while we waited.
		if res, ok, err := g.lookup(ctx, id, false); err != nil || ok {
			return res, err
		}
		return g.synthesize(ctx, id, params, req)
	})
	if err != nil {
		return Result{}, err
	}
	res := v.(Result)
	if shared {
		g.logger.Debug("joined in-flight synthesis", "fingerprint", id)
	}
	return res, nil
}

func (g *Gate) lookup(ctx context.Context, id string, record bool) (Result, bool, error) {
	asset, ok, err := g.store.GetGlobal(ctx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Result{}, false, Classify(err)
		}
		return Result{}, false, Generic("unable to read audio cache", err)
	}
	if !ok {
		if record {
			g.metrics.CacheMisses.Add(ctx, 1)
		}
		return Result{}, false, nil
	}
	if record {
		g.metrics.CacheHits.Add(ctx, 1)
	}
	return Result{
		Audio:       asset.Audio,
		Duration:    asset.Duration,
		Fingerprint: id,
		Cached:      true,
	}, true, nil
}

func (g *Gate) synthesize(ctx context.Context, id string, params cache.Params, req Request) (Result, error) {
	sent := req
	sent.Settings.Speed = voice.ClampSpeed(req.Settings.Speed)

	started := time.Now()
	audio, err := g.provider.Synthesize(ctx, sent)
	if err == nil && len(audio) == 0 {
		err = Generic("synthesis failed", ErrEmptyAudio)
	}
	g.metrics.recordCall(ctx, started, err)
	if err != nil {
		g.logger.Warn("synthesis failed", "fingerprint", id, "voice", req.VoiceID, "err", err)
		return Result{}, Classify(err)
	}

	duration, perr := ProbeDuration(audio)
	if perr != nil {
		g.logger.Warn("unable to measure audio duration", "fingerprint", id, "err", perr)
		duration = 0
	}

	asset := &cache.GlobalAsset{
		ID:       id,
		Params:   params,
		Audio:    audio,
		Duration: duration,
	}
	if err := g.store.PutGlobal(ctx, asset); err != nil {
		if errors.Is(err, context.Canceled) {
			return Result{}, Classify(err)
		}
		return Result{}, Generic("unable to store synthesized audio", err)
	}

	g.logger.Debug("synthesized", "fingerprint", id, "bytes", len(audio), "duration", duration)
	return Result{
		Audio:       audio,
		Duration:    duration,
		Fingerprint: id,
	}, nil
}
