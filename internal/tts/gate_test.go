package tts

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/shadow/internal/cache"
	"github.com/dgnsrekt/shadow/internal/voice"
)

// fakeProvider records calls and returns a fixed clip.
type fakeProvider struct {
	mu    sync.Mutex
	calls []Request
	audio []byte
	err   error
	block chan struct{}
}

func (p *fakeProvider) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	return p.audio, nil
}

func (p *fakeProvider) Voices(ctx context.Context) ([]voice.Voice, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []voice.Voice{{VoiceID: "remote", Name: "Remote"}}, nil
}

func (p *fakeProvider) Info() ProviderInfo { return ProviderInfo{Name: "fake", Format: "wav"} }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// testWAV returns a silent mono 16-bit clip of the given length at 8kHz.
func testWAV(d time.Duration) []byte {
	n := int(d.Seconds() * 8000)
	data := n * 2
	buf := make([]byte, 44+data)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+data))
	copy(buf[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], 1)
	binary.LittleEndian.PutUint32(buf[24:], 8000)
	binary.LittleEndian.PutUint32(buf[28:], 16000)
	binary.LittleEndian.PutUint16(buf[32:], 2)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(data))
	return buf
}

func newTestGate(t *testing.T, p Provider) (*Gate, *cache.Store) {
	t.Helper()
	gate, store, _ := newMeasuredGate(t, p)
	return gate, store
}

// newMeasuredGate returns a gate whose metrics can be read back.
func newMeasuredGate(t *testing.T, p Provider) (*Gate, *cache.Store, *Telemetry) {
	t.Helper()
	store, err := cache.Open(cache.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("cache.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tel := NewTelemetry()
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })
	metrics, err := NewMetrics(tel.MeterProvider())
	if err != nil {
		t.Fatal(err)
	}
	gate, err := NewGate(store, p, WithMetrics(metrics))
	if err != nil {
		t.Fatal(err)
	}
	return gate, store, tel
}

func testRequest() Request {
	return Request{
		Text:    "Hello world",
		VoiceID: "voice-a",
		ModelID: DefaultModelID,
		Settings: VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			SpeakerBoost:    true,
			Speed:           1,
		},
	}
}

func TestGate_MissThenHit(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{audio: testWAV(2 * time.Second)}
	gate, store := newTestGate(t, provider)

	first, err := gate.Resolve(ctx, testRequest())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first.Cached {
		t.Error("first resolve should not be cached")
	}
	if first.Duration != 2*time.Second {
		t.Errorf("got duration %v, want 2s", first.Duration)
	}

	second, err := gate.Resolve(ctx, testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second resolve should be served from cache")
	}
	if second.Fingerprint != first.Fingerprint {
		t.Errorf("fingerprints differ: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", provider.callCount())
	}

	asset, ok, err := store.GetGlobal(ctx, first.Fingerprint)
	if err != nil || !ok {
		t.Fatalf("asset not persisted: ok=%v err=%v", ok, err)
	}
	if asset.Text != "Hello world" || asset.VoiceID != "voice-a" {
		t.Errorf("unexpected asset params: %+v", asset.Params)
	}
}

func TestGate_Metrics(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{audio: testWAV(time.Second)}
	gate, _, tel := newMeasuredGate(t, provider)

	for i := 0; i < 3; i++ {
		if _, err := gate.Resolve(ctx, testRequest()); err != nil {
			t.Fatal(err)
		}
	}
	provider.err = NewSynthesisError(401, "invalid_api_key", nil)
	req := testRequest()
	req.Text = "Something new"
	if _, err := gate.Resolve(ctx, req); err == nil {
		t.Fatal("expected provider error")
	}

	got, err := tel.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	want := Totals{CacheHits: 2, CacheMisses: 2, Calls: 2, Errors: 1}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGate_ClampsSpeedForProviderOnly(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{audio: testWAV(time.Second)}
	gate, _ := newTestGate(t, provider)

	req := testRequest()
	req.Settings.Speed = 1.5
	res, err := gate.Resolve(ctx, req)
	if err != nil {
		t.Fatal(err)
	}

	if got := provider.calls[0].Settings.Speed; got != voice.MaxSpeed {
		t.Errorf("provider got speed %v, want %v", got, voice.MaxSpeed)
	}
	want := cache.Fingerprint("Hello world", "voice-a", 1.5, 0.5, 0.75, DefaultModelID, 0, true)
	if res.Fingerprint != want {
		t.Errorf("got fingerprint %s, want %s", res.Fingerprint, want)
	}
}

func TestGate_FailuresAreNotCached(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		wantAuth bool
	}{
		{"empty audio", &fakeProvider{audio: nil}, false},
		{"auth", &fakeProvider{err: NewSynthesisError(401, "invalid api key", nil)}, true},
		{"permissions message", &fakeProvider{err: errors.New("missing permissions for text_to_speech")}, true},
		{"generic", &fakeProvider{err: errors.New("connection reset")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			gate, store := newTestGate(t, tt.provider)

			_, err := gate.Resolve(ctx, testRequest())
			if err == nil {
				t.Fatal("expected error")
			}
			if IsAuthError(err) != tt.wantAuth {
				t.Errorf("IsAuthError = %v, want %v (%v)", IsAuthError(err), tt.wantAuth, err)
			}

			assets, err := store.ListGlobal(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(assets) != 0 {
				t.Errorf("failed synthesis wrote %d assets", len(assets))
			}
		})
	}
}

func TestGate_UnprobeableAudioHasZeroDuration(t *testing.T) {
	provider := &fakeProvider{audio: []byte("not audio at all")}
	gate, _ := newTestGate(t, provider)

	res, err := gate.Resolve(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Duration != 0 {
		t.Errorf("got duration %v, want 0", res.Duration)
	}
}

func TestGate_ConcurrentResolvesShareOneCall(t *testing.T) {
	provider := &fakeProvider{audio: testWAV(time.Second), block: make(chan struct{})}
	gate, _ := newTestGate(t, provider)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gate.Resolve(context.Background(), testRequest())
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(provider.block)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Resolve failed: %v", err)
		}
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", provider.callCount())
	}
}

func TestGate_DistinctParamsAreDistinctAssets(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{audio: testWAV(time.Second)}
	gate, _ := newTestGate(t, provider)

	a := testRequest()
	b := testRequest()
	b.Settings.Stability = 0.3

	ra, err := gate.Resolve(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := gate.Resolve(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	if ra.Fingerprint == rb.Fingerprint {
		t.Error("different stability produced the same fingerprint")
	}
	if provider.callCount() != 2 {
		t.Errorf("provider called %d times, want 2", provider.callCount())
	}
}

func TestFetchVoices(t *testing.T) {
	reg := voice.NewDefaultRegistry()

	cat, err := FetchVoices(context.Background(), &fakeProvider{}, reg, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Fallback || len(cat.Voices) != 1 {
		t.Errorf("unexpected catalog: %+v", cat)
	}

	denied := &fakeProvider{err: NewSynthesisError(403, "missing_permissions: voices_read", nil)}
	cat, err = FetchVoices(context.Background(), denied, reg, time.Second)
	if err != nil {
		t.Fatalf("permission failure should fall back, got %v", err)
	}
	if !cat.Fallback || len(cat.Voices) != len(reg.List()) {
		t.Errorf("expected preset fallback, got %+v", cat)
	}

	broken := &fakeProvider{err: errors.New("dial tcp: no route to host")}
	if _, err := FetchVoices(context.Background(), broken, reg, time.Second); err == nil {
		t.Error("expected generic failure to be returned")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{errors.New("HTTP 401"), KindAuth},
		{errors.New("Unauthorized request"), KindAuth},
		{errors.New("missing permissions"), KindAuth},
		{ErrNoAPIKey, KindAuth},
		{errors.New("timeout"), KindGeneric},
		{context.Canceled, KindCanceled},
		{Generic("store", errors.New("401 bytes written")), KindGeneric},
	}
	for _, tt := range tests {
		if got := Classify(tt.err).Kind; got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}
