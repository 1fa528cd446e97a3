// Package cache implements the time-bounded, persisted store for named
// record collections, with stale-fallback semantics on fetch failure.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/tokodata/internal/apperr"
	"github.com/starford/tokodata/internal/models"
)

// Snapshot is the persisted cache layout: one object keyed by
// collection name.
type Snapshot map[string]models.CacheEntry

// Tier is one persistence layer for the cache. Writes overwrite the
// whole snapshot; that is acceptable for a single-process client where
// the worst concurrent-writer outcome is a duplicated fetch, not
// corruption.
type Tier interface {
	// Load reads the persisted snapshot. A missing backing store is an
	// empty snapshot, not an error.
	Load() (Snapshot, error)
	// Store replaces the persisted snapshot.
	Store(Snapshot) error
	// Name identifies the tier in logs.
	Name() string
}

// FileTier persists the snapshot as JSON in a single file. Placed
// under the OS temp directory it behaves as the ephemeral
// (session-scoped) tier: present across restarts within a boot,
// cleared by the OS afterwards.
type FileTier struct {
	path string
}

// NewFileTier creates a file tier at path.
func NewFileTier(path string) *FileTier {
	return &FileTier{path: path}
}

// Name implements Tier.
func (f *FileTier) Name() string { return "file:" + f.path }

// Load implements Tier. Malformed content or malformed individual
// entries are dropped, never fatal.
func (f *FileTier) Load() (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read %s: %w: %v", f.path, apperr.ErrPersistence, err)
	}
	return decodeSnapshot(data), nil
}

// Store implements Tier. The write is atomic: temp file, then rename.
func (f *FileTier) Store(s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("cache: encode snapshot: %w: %v", apperr.ErrPersistence, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: mkdir: %w: %v", apperr.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, ".tokodata-tmp-*")
	if err != nil {
		return fmt.Errorf("cache: create temp: %w: %v", apperr.ErrPersistence, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("cache: write temp: %w: %v", apperr.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp: %w: %v", apperr.ErrPersistence, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("cache: rename: %w: %v", apperr.ErrPersistence, err)
	}
	success = true
	return nil
}

// decodeSnapshot parses a persisted snapshot, discarding entries whose
// shape is wrong (missing timestamp or record list).
func decodeSnapshot(data []byte) Snapshot {
	var raw map[string]models.CacheEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}
	}
	out := make(Snapshot, len(raw))
	for name, entry := range raw {
		if entry.Valid() {
			out[name] = entry
		}
	}
	return out
}
