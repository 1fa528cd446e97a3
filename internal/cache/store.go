package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/tokodata/internal/metrics"
	"github.com/starford/tokodata/internal/models"
	"github.com/starford/tokodata/internal/source"
)

// DefaultTTL is the freshness window applied when none is configured.
const DefaultTTL = 5 * time.Minute

// Status classifies the outcome of a Get.
type Status int

const (
	// StatusFresh means the records are within the freshness window,
	// served from cache or fetched just now.
	StatusFresh Status = iota
	// StatusStale means the fetch failed and previously cached records
	// were served instead.
	StatusStale
	// StatusEmpty means the fetch failed and nothing was ever cached
	// for the name.
	StatusEmpty
)

func (s Status) String() string {
	switch s {
	case StatusStale:
		return "stale"
	case StatusEmpty:
		return "empty"
	default:
		return "fresh"
	}
}

// MarshalText makes the status readable in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of a Get. Err carries the fetch failure behind
// a Stale or Empty outcome; it is a warning for the caller to surface,
// not a reason to abort.
type Result struct {
	Records   models.Collection
	FromCache bool
	Status    Status
	Err       error
}

// Config wires a Store.
type Config struct {
	Source  source.Source
	TTL     time.Duration // zero means DefaultTTL
	Session Tier          // ephemeral tier, may be nil
	Durable Tier          // cross-session tier, may be nil
	Logger  *slog.Logger
	Metrics *metrics.Registry
}

// Store holds the last-fetched version of each named collection with a
// freshness window, write-through persistence to two tiers, and
// stale-fallback on fetch failure.
//
// Concurrent Gets for the same uncached name each trigger their own
// fetch; the later write overwrites the entry with equivalent-or-newer
// data. That duplication is accepted rather than guarded against.
type Store struct {
	src     source.Source
	ttl     time.Duration
	session Tier
	durable Tier
	logger  *slog.Logger
	metrics *metrics.Registry

	hydrateOnce sync.Once

	mu      sync.RWMutex
	entries map[string]models.CacheEntry

	now func() time.Time // test seam
}

// New creates a Store.
func New(cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		src:     cfg.Source,
		ttl:     cfg.TTL,
		session: cfg.Session,
		durable: cfg.Durable,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		entries: make(map[string]models.CacheEntry),
		now:     time.Now,
	}
}

// TTL returns the configured freshness window.
func (s *Store) TTL() time.Duration { return s.ttl }

// Get returns the named collection, serving from cache while the entry
// is within the freshness window. Get never fails: a fetch failure
// degrades to stale records when any exist, otherwise to an empty
// result carrying the error as a warning.
func (s *Store) Get(ctx context.Context, name string) Result {
	return s.get(ctx, name, true)
}

// Refresh bypasses the freshness check and always attempts a fetch,
// with the same degradation rules as Get.
func (s *Store) Refresh(ctx context.Context, name string) Result {
	return s.get(ctx, name, false)
}

func (s *Store) get(ctx context.Context, name string, useCache bool) Result {
	s.hydrate()

	if useCache {
		s.mu.RLock()
		entry, ok := s.entries[name]
		s.mu.RUnlock()
		if ok && s.now().Sub(entry.FetchedTime()) < s.ttl {
			s.metrics.CacheHit()
			return Result{Records: entry.Records, FromCache: true, Status: StatusFresh}
		}
	}
	s.metrics.CacheMiss()

	start := time.Now()
	records, err := s.src.List(ctx, name)
	s.metrics.ObserveFetch(time.Since(start))

	if err != nil {
		s.metrics.FetchFailure()
		s.mu.RLock()
		entry, ok := s.entries[name]
		s.mu.RUnlock()
		if ok {
			s.metrics.StaleFallback()
			s.logger.Warn("cache: fetch failed, serving stale records",
				slog.String("collection", name),
				slog.String("error", err.Error()))
			return Result{Records: entry.Records, FromCache: true, Status: StatusStale, Err: err}
		}
		s.metrics.EmptyResult()
		s.logger.Warn("cache: fetch failed, nothing cached",
			slog.String("collection", name),
			slog.String("error", err.Error()))
		return Result{Records: models.Collection{}, Status: StatusEmpty, Err: err}
	}

	if records == nil {
		records = models.Collection{}
	}
	entry := models.CacheEntry{FetchedAt: s.now().UnixMilli(), Records: records}

	s.mu.Lock()
	s.entries[name] = entry
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	return Result{Records: records, Status: StatusFresh}
}

// Invalidate removes the entry for name from memory and from both
// tiers. The next Get re-fetches.
func (s *Store) Invalidate(name string) {
	s.hydrate()

	s.mu.Lock()
	delete(s.entries, name)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
}

// EntryInfo describes one cached collection.
type EntryInfo struct {
	FetchedAt time.Time `json:"fetched_at"`
	Count     int       `json:"count"`
	Fresh     bool      `json:"fresh"`
}

// Info returns per-collection cache metadata.
func (s *Store) Info() map[string]EntryInfo {
	s.hydrate()

	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]EntryInfo, len(s.entries))
	for name, entry := range s.entries {
		out[name] = EntryInfo{
			FetchedAt: entry.FetchedTime(),
			Count:     len(entry.Records),
			Fresh:     now.Sub(entry.FetchedTime()) < s.ttl,
		}
	}
	return out
}

// hydrate loads persisted entries, at most once per process: the
// session tier is preferred, the durable tier is the fallback when the
// session tier is empty. Failures leave the store empty but usable.
func (s *Store) hydrate() {
	s.hydrateOnce.Do(func() {
		snap := s.loadTier(s.session)
		if len(snap) == 0 {
			snap = s.loadTier(s.durable)
		}
		if len(snap) == 0 {
			return
		}
		s.mu.Lock()
		for name, entry := range snap {
			s.entries[name] = entry
		}
		s.mu.Unlock()
		s.logger.Debug("cache: hydrated", slog.Int("collections", len(snap)))
	})
}

func (s *Store) loadTier(t Tier) Snapshot {
	if t == nil {
		return nil
	}
	snap, err := t.Load()
	if err != nil {
		s.metrics.PersistError()
		s.logger.Warn("cache: hydration failed",
			slog.String("tier", t.Name()),
			slog.String("error", err.Error()))
		return nil
	}
	return snap
}

// persist writes the snapshot through to both tiers, best-effort:
// failures are counted and logged, never surfaced.
func (s *Store) persist(snap Snapshot) {
	for _, t := range []Tier{s.session, s.durable} {
		if t == nil {
			continue
		}
		if err := t.Store(snap); err != nil {
			s.metrics.PersistError()
			s.logger.Warn("cache: persist failed",
				slog.String("tier", t.Name()),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := make(Snapshot, len(s.entries))
	for name, entry := range s.entries {
		snap[name] = entry
	}
	return snap
}
