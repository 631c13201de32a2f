package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the memory tier capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when a stored record cannot be decoded
	ErrCacheCorrupted = errors.New("cache data corrupted")

	// ErrEmptyAudio is returned when storing a record without audio bytes
	ErrEmptyAudio = errors.New("refusing to cache empty audio")

	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("cache store closed")
)

// CacheLevel represents the cache tier
type CacheLevel int

const (
	// CacheLevelL1 represents the memory tier (fastest)
	CacheLevelL1 CacheLevel = iota

	// CacheLevelL2 represents the disk tier (persistent)
	CacheLevelL2
)

// String returns the string representation of the cache level
func (l CacheLevel) String() string {
	switch l {
	case CacheLevelL1:
		return "L1-Memory"
	case CacheLevelL2:
		return "L2-Disk"
	default:
		return "Unknown"
	}
}

// CacheStats holds cache performance metrics
type CacheStats struct {
	Capacity  int64 // Maximum capacity in bytes, 0 when unbounded
	Size      int64 // Current size in bytes
	ItemCount int64 // Number of items

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)
}

// GlobalAsset is a synthesized clip stored under its fingerprint. Assets are
// never mutated once written and live until explicitly deleted.
type GlobalAsset struct {
	ID string // Fingerprint of Params
	Params

	Audio     []byte
	Duration  time.Duration
	CreatedAt time.Time
}

// Size returns the number of audio bytes held by the asset.
func (a *GlobalAsset) Size() int64 {
	return int64(len(a.Audio))
}

// SessionBinding records which audio backs one playback slot of a session.
// It holds a full copy of the bytes so playback reads a single record.
type SessionBinding struct {
	ID              string // BindingKey of the slot
	SessionID       uint
	SentenceIndex   int
	VoiceID         string
	ModelID         string
	Speed           float64
	Stability       float64
	SimilarityBoost float64
	Fingerprint     string // Global asset the bytes were copied from

	Audio     []byte
	Duration  time.Duration
	CreatedAt time.Time
}

// Size returns the number of audio bytes held by the binding.
func (b *SessionBinding) Size() int64 {
	return int64(len(b.Audio))
}

// Config holds configuration for a Store.
type Config struct {
	// Dir is the root directory. Global assets live in Dir/global and
	// session bindings in Dir/session.
	Dir string

	// MemoryCapacity bounds each L1 memory tier, in bytes. Zero disables L1.
	MemoryCapacity int64

	// CleanupInterval controls how often abandoned temp files are swept.
	// Zero disables the sweeper.
	CleanupInterval time.Duration
}

// DefaultConfig returns the default configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:             dir,
		MemoryCapacity:  64 * 1024 * 1024, // 64MB
		CleanupInterval: time.Hour,
	}
}
