package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Store is the two-tier asset cache: a global collection of synthesized
// clips keyed by fingerprint and a session collection of playback bindings.
// Each collection is a persistent disk directory fronted by an LRU memory
// tier.
//
// Values returned by the Store share their audio slice with the cache and
// must be treated as read-only.
type Store struct {
	global   *tier[*GlobalAsset]
	bindings *tier[*SessionBinding]

	config Config
	logger *log.Logger

	// Cleanup goroutine control
	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup
	closeOnce   sync.Once

	// Metrics
	mu    sync.Mutex
	stats struct {
		GlobalHits   int64
		GlobalMisses int64
		BindingHits  int64
		BindingMiss  int64
		L1Hits       int64
		Promotions   int64
		Corrupted    int64
		CleanupRuns  int64
		LastCleanup  time.Time
	}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for non-fatal cache problems.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// sizer is implemented by cached record pointers.
type sizer interface {
	Size() int64
}

// tier pairs a memory cache with the disk collection behind it.
type tier[P sizer] struct {
	mem  *MemoryCache[P]
	disk *DiskCollection[P]
}

// Open creates or opens a store rooted at config.Dir.
func Open(config Config, opts ...Option) (*Store, error) {
	if config.Dir == "" {
		return nil, errors.New("cache directory is required")
	}

	global, err := NewDiskCollection[*GlobalAsset](filepath.Join(config.Dir, "global"))
	if err != nil {
		return nil, err
	}
	bindings, err := NewDiskCollection[*SessionBinding](filepath.Join(config.Dir, "session"))
	if err != nil {
		return nil, err
	}

	s := &Store{
		global:      &tier[*GlobalAsset]{mem: NewMemoryCache[*GlobalAsset](config.MemoryCapacity), disk: global},
		bindings:    &tier[*SessionBinding]{mem: NewMemoryCache[*SessionBinding](config.MemoryCapacity), disk: bindings},
		config:      config,
		logger:      log.Default(),
		cleanupStop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Start cleanup routine if configured
	if config.CleanupInterval > 0 {
		s.startCleanupRoutine()
	}

	return s, nil
}

// GetGlobal returns the asset stored under a fingerprint. A miss returns
// false with a nil error.
func (s *Store) GetGlobal(ctx context.Context, id string) (*GlobalAsset, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	asset, level, ok := lookup(s, s.global, id)
	s.mu.Lock()
	if ok {
		s.stats.GlobalHits++
		if level == CacheLevelL1 {
			s.stats.L1Hits++
		}
	} else {
		s.stats.GlobalMisses++
	}
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	return asset, true, nil
}

// PutGlobal stores an asset under its ID. Writing an existing ID replaces
// the record.
func (s *Store) PutGlobal(ctx context.Context, asset *GlobalAsset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if asset.ID == "" {
		return errors.New("asset id is required")
	}
	if len(asset.Audio) == 0 {
		return ErrEmptyAudio
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}

	if err := s.global.disk.Put(asset.ID, asset); err != nil {
		return err
	}
	promote(s.logger, s.global.mem, asset.ID, asset)
	return nil
}

// GetSessionBinding returns the binding stored under a binding key.
func (s *Store) GetSessionBinding(ctx context.Context, key string) (*SessionBinding, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	b, level, ok := lookup(s, s.bindings, key)
	s.mu.Lock()
	if ok {
		s.stats.BindingHits++
		if level == CacheLevelL1 {
			s.stats.L1Hits++
		}
	} else {
		s.stats.BindingMiss++
	}
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

// PutSessionBinding stores a binding under its ID.
func (s *Store) PutSessionBinding(ctx context.Context, b *SessionBinding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.ID == "" {
		return errors.New("binding id is required")
	}
	if len(b.Audio) == 0 {
		return ErrEmptyAudio
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}

	if err := s.bindings.disk.Put(b.ID, b); err != nil {
		return err
	}
	promote(s.logger, s.bindings.mem, b.ID, b)
	return nil
}

// ListGlobal returns every global asset, newest first.
func (s *Store) ListGlobal(ctx context.Context) ([]GlobalAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var assets []GlobalAsset
	err := s.global.disk.Walk(func(_ string, a *GlobalAsset) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		assets = append(assets, *a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list global assets: %w", err)
	}

	sort.Slice(assets, func(i, j int) bool {
		return assets[i].CreatedAt.After(assets[j].CreatedAt)
	})
	return assets, nil
}

// DeleteGlobal removes one global asset. Session bindings holding a copy of
// its bytes are unaffected.
func (s *Store) DeleteGlobal(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.global.mem.Delete(id)
	return s.global.disk.Delete(id)
}

// ClearAll removes every global asset and every session binding.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.global.mem.Clear()
	s.bindings.mem.Clear()

	var errs []error
	if err := s.global.disk.Clear(); err != nil {
		errs = append(errs, err)
	}
	if err := s.bindings.disk.Clear(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Stats returns a snapshot of cache statistics.
func (s *Store) Stats() map[string]interface{} {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()

	globalTotal := stats.GlobalHits + stats.GlobalMisses
	var hitRate float64
	if globalTotal > 0 {
		hitRate = float64(stats.GlobalHits) / float64(globalTotal)
	}

	return map[string]interface{}{
		"global_hits":     stats.GlobalHits,
		"global_misses":   stats.GlobalMisses,
		"global_hit_rate": hitRate,
		"binding_hits":    stats.BindingHits,
		"binding_misses":  stats.BindingMiss,
		"l1_hits":         stats.L1Hits,
		"promotions":      stats.Promotions,
		"corrupted":       stats.Corrupted,
		"cleanup_runs":    stats.CleanupRuns,
		"last_cleanup":    stats.LastCleanup,
		"global_memory":   s.global.mem.Stats(),
		"global_disk":     s.global.disk.Stats(),
		"session_memory":  s.bindings.mem.Stats(),
		"session_disk":    s.bindings.disk.Stats(),
	}
}

// DiskUsage returns the bytes on disk of the global and session tiers.
func (s *Store) DiskUsage() (global, session CacheStats) {
	return s.global.disk.Stats(), s.bindings.disk.Stats()
}

// Close stops the cleanup routine.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.cleanupStop)
		s.cleanupWg.Wait()
	})
	return nil
}

// lookup checks the memory tier first, then disk, promoting disk hits.
func lookup[P sizer](s *Store, t *tier[P], key string) (P, CacheLevel, bool) {
	var zero P
	if v, ok := t.mem.Get(key); ok {
		return v, CacheLevelL1, true
	}

	v, ok, err := t.disk.Get(key)
	if err != nil {
		s.mu.Lock()
		s.stats.Corrupted++
		s.mu.Unlock()
		s.logger.Warn("unreadable cache record, treating as miss", "key", key, "err", err)
		return zero, CacheLevelL2, false
	}
	if !ok {
		return zero, CacheLevelL2, false
	}

	promote(s.logger, t.mem, key, v)
	s.mu.Lock()
	s.stats.Promotions++
	s.mu.Unlock()
	return v, CacheLevelL2, true
}

// promote copies a record into the memory tier. Records larger than the
// tier are served from disk only.
func promote[P sizer](logger *log.Logger, mem *MemoryCache[P], key string, v P) {
	if err := mem.Put(key, v, v.Size()); err != nil && !errors.Is(err, ErrItemTooLarge) {
		logger.Debug("memory tier rejected entry", "key", key, "err", err)
	}
}

func (s *Store) startCleanupRoutine() {
	s.cleanupWg.Add(1)
	go func() {
		defer s.cleanupWg.Done()
		ticker := time.NewTicker(s.config.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.performCleanup()
			case <-s.cleanupStop:
				return
			}
		}
	}()
}

// performCleanup sweeps temp files abandoned by interrupted writes. Records
// themselves never expire.
func (s *Store) performCleanup() {
	removed := s.global.disk.SweepTemp(s.config.CleanupInterval)
	removed += s.bindings.disk.SweepTemp(s.config.CleanupInterval)
	if removed > 0 {
		s.logger.Debug("swept abandoned cache temp files", "count", removed)
	}

	s.mu.Lock()
	s.stats.CleanupRuns++
	s.stats.LastCleanup = time.Now()
	s.mu.Unlock()
}
