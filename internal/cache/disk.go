package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

const (
	recordExt = ".rec"
	tempInfix = ".tmp-"
)

// DiskCollection is an L2 directory of records, one gob-encoded file per
// key. Every write lands in a temp file that is renamed into place, so a
// concurrent reader observes either the previous record or the new one,
// never a partial write. There is no shared index file to corrupt; the
// directory listing is the index.
type DiskCollection[V any] struct {
	dir string

	// Metrics
	hits   atomic.Int64
	misses atomic.Int64
}

// NewDiskCollection creates the collection directory if needed.
func NewDiskCollection[V any](dir string) (*DiskCollection[V], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &DiskCollection[V]{dir: dir}, nil
}

// Get reads and decodes the record stored under key. A missing record
// returns false with a nil error; an undecodable one returns
// ErrCacheCorrupted.
func (dc *DiskCollection[V]) Get(key string) (V, bool, error) {
	var v V

	data, err := os.ReadFile(dc.filePath(key))
	if err != nil {
		dc.misses.Add(1)
		if errors.Is(err, fs.ErrNotExist) {
			return v, false, nil
		}
		return v, false, err
	}

	var rec diskRecord[V]
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil || rec.Key != key {
		dc.misses.Add(1)
		return v, false, ErrCacheCorrupted
	}

	dc.hits.Add(1)
	return rec.Value, true, nil
}

// Put encodes and stores value under key, replacing any existing record.
func (dc *DiskCollection[V]) Put(key string, value V) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(diskRecord[V]{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to encode cache record: %w", err)
	}
	if err := dc.writeFile(dc.filePath(key), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Delete removes the record stored under key. Deleting a missing key is
// not an error.
func (dc *DiskCollection[V]) Delete(key string) error {
	err := os.Remove(dc.filePath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Walk decodes every record in the collection and calls fn for each one.
// Corrupt records and in-flight temp files are skipped.
func (dc *DiskCollection[V]) Walk(fn func(key string, value V) error) error {
	entries, err := os.ReadDir(dc.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dc.dir, e.Name()))
		if err != nil {
			// Removed between listing and reading.
			continue
		}
		var rec diskRecord[V]
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
			continue
		}
		if err := fn(rec.Key, rec.Value); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every record. The directory is first renamed aside and
// replaced by an empty one, so readers see either the full previous
// contents or nothing; the old tree is deleted afterwards.
func (dc *DiskCollection[V]) Clear() error {
	trash := fmt.Sprintf("%s.trash-%d", dc.dir, time.Now().UnixNano())
	if err := os.Rename(dc.dir, trash); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to detach cache directory: %w", err)
		}
		trash = ""
	}
	if err := os.MkdirAll(dc.dir, 0o755); err != nil {
		return fmt.Errorf("failed to recreate cache directory: %w", err)
	}
	if trash != "" {
		return os.RemoveAll(trash)
	}
	return nil
}

// SweepTemp removes temp files older than maxAge, left behind by writers
// that died between create and rename.
func (dc *DiskCollection[V]) SweepTemp(maxAge time.Duration) int {
	entries, err := os.ReadDir(dc.dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !strings.Contains(e.Name(), tempInfix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(dc.dir, e.Name())) == nil {
			removed++
		}
	}
	return removed
}

// Stats returns disk statistics. Size and ItemCount come from a directory
// scan.
func (dc *DiskCollection[V]) Stats() CacheStats {
	stats := CacheStats{
		Hits:   dc.hits.Load(),
		Misses: dc.misses.Load(),
	}
	if entries, err := os.ReadDir(dc.dir); err == nil {
		for _, e := range entries {
			if !strings.HasSuffix(e.Name(), recordExt) {
				continue
			}
			if info, err := e.Info(); err == nil {
				stats.Size += info.Size()
				stats.ItemCount++
			}
		}
	}
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// diskRecord is the on-disk envelope. The key is stored alongside the value
// so a listing can recover it without a separate index.
type diskRecord[V any] struct {
	Key   string
	Value V
}

func (dc *DiskCollection[V]) filePath(key string) string {
	// Use SHA256 hash of key for filename
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(dc.dir, hex.EncodeToString(hash[:16])+recordExt)
}

func (dc *DiskCollection[V]) writeFile(path string, data []byte) error {
	// Unique temp name per writer so concurrent processes never share one.
	file, err := os.CreateTemp(dc.dir, filepath.Base(path)+tempInfix+"*")
	if err != nil {
		return err
	}
	tempPath := file.Name()

	_, err = file.Write(data)
	if err == nil {
		err = file.Sync()
	}
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath) //nolint:errcheck
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath) //nolint:errcheck
		return closeErr
	}

	// Atomic rename; the last writer wins
	return os.Rename(tempPath, path)
}
