package tts

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const meterName = "github.com/dgnsrekt/shadow/internal/tts"

// Metrics holds the instruments recorded by the Gate.
type Metrics struct {
	CacheHits         metric.Int64Counter
	CacheMisses       metric.Int64Counter
	SynthesisCalls    metric.Int64Counter
	SynthesisErrors   metric.Int64Counter
	SynthesisDuration metric.Float64Histogram
}

var latencyBuckets = []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32}

// NewMetrics creates the instruments on mp. A nil mp uses the global
// provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CacheHits, err = m.Int64Counter("shadow.cache.hits",
		metric.WithDescription("Synthesis requests served from the asset cache."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("shadow.cache.misses",
		metric.WithDescription("Synthesis requests that missed the asset cache."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisCalls, err = m.Int64Counter("shadow.synthesis.calls",
		metric.WithDescription("Calls made to the synthesis provider."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisErrors, err = m.Int64Counter("shadow.synthesis.errors",
		metric.WithDescription("Failed synthesis calls by error kind."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("shadow.synthesis.duration",
		metric.WithDescription("Latency of provider synthesis calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

func (m *Metrics) recordCall(ctx context.Context, started time.Time, err error) {
	m.SynthesisCalls.Add(ctx, 1)
	m.SynthesisDuration.Record(ctx, time.Since(started).Seconds())
	if err != nil {
		m.SynthesisErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(Classify(err).Kind)),
		))
	}
}

// Totals are the counter values collected since the process started.
type Totals struct {
	CacheHits   int64
	CacheMisses int64
	Calls       int64
	Errors      int64
}

// Telemetry is an SDK meter provider whose readings stay in process. The
// CLI reads them back to summarize a download.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

// NewTelemetry creates a meter provider backed by a manual reader.
func NewTelemetry() *Telemetry {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return &Telemetry{provider: mp, reader: reader}
}

// MeterProvider returns the provider to create instruments on.
func (t *Telemetry) MeterProvider() metric.MeterProvider { return t.provider }

// Totals collects the current counter values.
func (t *Telemetry) Totals(ctx context.Context) (Totals, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return Totals{}, err
	}
	var tot Totals
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var n int64
			for _, dp := range sum.DataPoints {
				n += dp.Value
			}
			switch m.Name {
			case "shadow.cache.hits":
				tot.CacheHits = n
			case "shadow.cache.misses":
				tot.CacheMisses = n
			case "shadow.synthesis.calls":
				tot.Calls = n
			case "shadow.synthesis.errors":
				tot.Errors = n
			}
		}
	}
	return tot, nil
}

// Shutdown releases the provider.
func (t *Telemetry) Shutdown(ctx context.Context) error { return t.provider.Shutdown(ctx) }
