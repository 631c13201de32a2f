package cache

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T, memory int64) *Store {
	t.Helper()
	store, err := Open(Config{Dir: t.TempDir(), MemoryCapacity: memory})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() }) //nolint:errcheck
	return store
}

func testAsset(text string) *GlobalAsset {
	p := Params{Text: text, VoiceID: "V1", ModelID: "M1", Speed: 1, Stability: 0.5, SimilarityBoost: 0.75, SpeakerBoost: true}
	return &GlobalAsset{
		ID:       p.Fingerprint(),
		Params:   p,
		Audio:    []byte("audio:" + text),
		Duration: 1500 * time.Millisecond,
	}
}

func TestStore_GlobalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 1024)

	asset := testAsset("Hello world")
	if _, ok, err := store.GetGlobal(ctx, asset.ID); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := store.PutGlobal(ctx, asset); err != nil {
		t.Fatalf("PutGlobal failed: %v", err)
	}

	got, ok, err := store.GetGlobal(ctx, asset.ID)
	if err != nil || !ok {
		t.Fatalf("GetGlobal: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got.Audio, asset.Audio) || got.Duration != asset.Duration {
		t.Errorf("asset mismatch: got %+v", got)
	}
	if got.Text != "Hello world" || got.VoiceID != "V1" {
		t.Errorf("params not preserved: %+v", got.Params)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := Open(Config{Dir: dir, MemoryCapacity: 1024})
	if err != nil {
		t.Fatal(err)
	}
	asset := testAsset("persist me")
	if err := first.PutGlobal(ctx, asset); err != nil {
		t.Fatal(err)
	}
	binding := &SessionBinding{ID: BindingKey(1, 1, "V1", "M1", 1, 0.5, 0.75), SessionID: 1, SentenceIndex: 1, Audio: asset.Audio, Duration: asset.Duration}
	if err := first.PutSessionBinding(ctx, binding); err != nil {
		t.Fatal(err)
	}
	first.Close() //nolint:errcheck

	// A fresh store has an empty memory tier, so hits must come from disk.
	second, err := Open(Config{Dir: dir, MemoryCapacity: 1024})
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close() //nolint:errcheck

	if _, ok, _ := second.GetGlobal(ctx, asset.ID); !ok {
		t.Error("global asset lost after reopen")
	}
	got, ok, _ := second.GetSessionBinding(ctx, binding.ID)
	if !ok || got.Duration != asset.Duration {
		t.Errorf("binding lost after reopen: %+v", got)
	}

	if promotions := second.Stats()["promotions"].(int64); promotions != 2 {
		t.Errorf("promotions: got %d, want 2", promotions)
	}
	// Second read is served from memory.
	second.GetGlobal(ctx, asset.ID) //nolint:errcheck
	if l1 := second.Stats()["l1_hits"].(int64); l1 != 1 {
		t.Errorf("l1_hits: got %d, want 1", l1)
	}
}

func TestStore_RejectsEmptyAudio(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 1024)

	asset := testAsset("silent")
	asset.Audio = nil
	if err := store.PutGlobal(ctx, asset); err != ErrEmptyAudio {
		t.Errorf("PutGlobal: got %v, want ErrEmptyAudio", err)
	}
	if _, ok, _ := store.GetGlobal(ctx, asset.ID); ok {
		t.Error("empty asset must not be stored")
	}
}

func TestStore_ListAndDeleteGlobal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 1024)

	for i := 0; i < 3; i++ {
		a := testAsset(fmt.Sprintf("sentence %d", i))
		a.CreatedAt = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		if err := store.PutGlobal(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	assets, err := store.ListGlobal(ctx)
	if err != nil {
		t.Fatalf("ListGlobal failed: %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("got %d assets, want 3", len(assets))
	}
	if assets[0].Text != "sentence 2" {
		t.Errorf("expected newest first, got %q", assets[0].Text)
	}

	if err := store.DeleteGlobal(ctx, assets[0].ID); err != nil {
		t.Fatalf("DeleteGlobal failed: %v", err)
	}
	if _, ok, _ := store.GetGlobal(ctx, assets[0].ID); ok {
		t.Error("deleted asset still readable (memory tier not invalidated?)")
	}
	if err := store.DeleteGlobal(ctx, assets[0].ID); err != nil {
		t.Errorf("deleting a missing asset should succeed: %v", err)
	}

	remaining, _ := store.ListGlobal(ctx)
	if len(remaining) != 2 {
		t.Errorf("got %d assets after delete, want 2", len(remaining))
	}
}

func TestStore_DeleteGlobalKeepsBindingCopy(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 1024)

	asset := testAsset("shared")
	store.PutGlobal(ctx, asset) //nolint:errcheck
	b := &SessionBinding{ID: "1_1_V1_M1_1_0.5_0.75", SessionID: 1, Fingerprint: asset.ID, Audio: asset.Audio}
	store.PutSessionBinding(ctx, b) //nolint:errcheck

	store.DeleteGlobal(ctx, asset.ID) //nolint:errcheck
	if _, ok, _ := store.GetSessionBinding(ctx, b.ID); !ok {
		t.Error("binding must survive deletion of its global asset")
	}
}

func TestStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 1024)

	asset := testAsset("gone soon")
	store.PutGlobal(ctx, asset) //nolint:errcheck
	store.PutSessionBinding(ctx, &SessionBinding{ID: "b", SessionID: 9, Audio: []byte("x")}) //nolint:errcheck

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	if _, ok, _ := store.GetGlobal(ctx, asset.ID); ok {
		t.Error("global asset survived ClearAll")
	}
	if _, ok, _ := store.GetSessionBinding(ctx, "b"); ok {
		t.Error("binding survived ClearAll")
	}

	// The store stays usable after clearing.
	if err := store.PutGlobal(ctx, asset); err != nil {
		t.Fatalf("PutGlobal after ClearAll failed: %v", err)
	}
	if assets, _ := store.ListGlobal(ctx); len(assets) != 1 {
		t.Errorf("got %d assets, want 1", len(assets))
	}
}

func TestStore_CorruptRecordIsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close() //nolint:errcheck

	asset := testAsset("corrupt")
	store.PutGlobal(ctx, asset) //nolint:errcheck

	files, _ := filepath.Glob(filepath.Join(dir, "global", "*"+recordExt))
	if len(files) != 1 {
		t.Fatalf("expected one record file, got %v", files)
	}
	if err := os.WriteFile(files[0], []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, ok, err := store.GetGlobal(ctx, asset.ID)
	if ok || err != nil {
		t.Errorf("corrupt record: got ok=%v err=%v, want clean miss", ok, err)
	}
	if c := store.Stats()["corrupted"].(int64); c != 1 {
		t.Errorf("corrupted counter: got %d, want 1", c)
	}
}

func TestStore_ConcurrentReadDuringDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0) // disk only

	asset := testAsset("racy")
	asset.Audio = bytes.Repeat([]byte{0xAB}, 64*1024)
	store.PutGlobal(ctx, asset) //nolint:errcheck

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, ok, err := store.GetGlobal(ctx, asset.ID)
				if err != nil {
					t.Errorf("GetGlobal error: %v", err)
					return
				}
				if ok && !bytes.Equal(got.Audio, asset.Audio) {
					t.Error("observed partial asset")
					return
				}
			}
		}()
	}
	for j := 0; j < 20; j++ {
		store.DeleteGlobal(ctx, asset.ID) //nolint:errcheck
		store.PutGlobal(ctx, asset)       //nolint:errcheck
	}
	wg.Wait()
}

func TestStore_SessionBindings(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 1024)

	for _, sid := range []uint{1, 2} {
		for idx := 1; idx <= 3; idx++ {
			b := &SessionBinding{
				ID:            BindingKey(sid, idx, "V1", "M1", 1, 0.5, 0.75),
				SessionID:     sid,
				SentenceIndex: idx,
				Audio:         []byte("abc"),
			}
			if err := store.PutSessionBinding(ctx, b); err != nil {
				t.Fatal(err)
			}
		}
	}

	list, err := store.ListSessionBindings(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessionBindings failed: %v", err)
	}
	if len(list) != 3 || list[0].SentenceIndex != 1 || list[2].SentenceIndex != 3 {
		t.Errorf("unexpected bindings: %+v", list)
	}

	sums, _ := store.SessionSummaries(ctx)
	if len(sums) != 2 || sums[0].Bindings != 3 || sums[0].Bytes != 9 {
		t.Errorf("unexpected summaries: %+v", sums)
	}

	n, err := store.DeleteSessionBindings(ctx, 1)
	if err != nil || n != 3 {
		t.Fatalf("DeleteSessionBindings: n=%d err=%v", n, err)
	}
	if _, ok, _ := store.GetSessionBinding(ctx, BindingKey(1, 1, "V1", "M1", 1, 0.5, 0.75)); ok {
		t.Error("binding of deleted session still readable")
	}
	if _, ok, _ := store.GetSessionBinding(ctx, BindingKey(2, 1, "V1", "M1", 1, 0.5, 0.75)); !ok {
		t.Error("other session's binding was removed")
	}
}

func TestStore_CancelledContext(t *testing.T) {
	store := newTestStore(t, 1024)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := store.GetGlobal(ctx, "x"); err == nil {
		t.Error("expected context error")
	}
	if err := store.PutGlobal(ctx, testAsset("x")); err == nil {
		t.Error("expected context error")
	}
}

func TestStore_CleanupRoutine(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(Config{Dir: dir, CleanupInterval: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	stale := filepath.Join(dir, "global", "deadbeef"+recordExt+tempInfix+"1")
	if err := os.WriteFile(stale, []byte("partial"), 0o600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	os.Chtimes(stale, old, old) //nolint:errcheck

	time.Sleep(100 * time.Millisecond)
	store.Close() //nolint:errcheck

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("abandoned temp file was not swept")
	}
	if runs := store.Stats()["cleanup_runs"].(int64); runs == 0 {
		t.Error("cleanup routine never ran")
	}
}
