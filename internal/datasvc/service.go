// Package datasvc coordinates the cache store, the mutable source, the
// revenue reconciliation, and event publication for the API and MCP
// layers.
package datasvc

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/tokodata/internal/apperr"
	"github.com/starford/tokodata/internal/cache"
	"github.com/starford/tokodata/internal/canon"
	"github.com/starford/tokodata/internal/models"
	"github.com/starford/tokodata/internal/reconcile"
	"github.com/starford/tokodata/internal/source"
	"github.com/starford/tokodata/internal/sse"
)

// Mutator writes one record change to the backing source. The fixture
// source does not implement it; the remote client does.
type Mutator interface {
	Mutate(ctx context.Context, table, action string, payload models.Record) (models.Record, error)
}

// Collections maps the four logical collections to their table names
// at the source.
type Collections struct {
	Customers string
	Products  string
	Orders    string
	Items     string
}

// DefaultCollections returns the table names of the upstream sheet.
func DefaultCollections() Collections {
	return Collections{
		Customers: "pelanggan",
		Products:  "barang",
		Orders:    "penjualan",
		Items:     "item_penjualan",
	}
}

// All lists the table names in a fixed order.
func (c Collections) All() []string {
	return []string{c.Customers, c.Products, c.Orders, c.Items}
}

// Known reports whether name is one of the configured tables.
func (c Collections) Known(name string) bool {
	for _, t := range c.All() {
		if t == name {
			return true
		}
	}
	return false
}

// Config wires a Service.
type Config struct {
	Store       *cache.Store
	Mutator     Mutator // nil means mutations are rejected
	Broker      *sse.Broker
	Collections Collections
	Dates       canon.DateOptions
	Logger      *slog.Logger
}

// Service is the application service behind the HTTP and MCP surfaces.
type Service struct {
	store       *cache.Store
	mut         Mutator
	broker      *sse.Broker
	collections Collections
	dates       canon.DateOptions
	logger      *slog.Logger
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Collections == (Collections{}) {
		cfg.Collections = DefaultCollections()
	}
	return &Service{
		store:       cfg.Store,
		mut:         cfg.Mutator,
		broker:      cfg.Broker,
		collections: cfg.Collections,
		dates:       cfg.Dates,
		logger:      cfg.Logger,
	}
}

// Collections returns the configured table names.
func (s *Service) Collections() Collections { return s.collections }

// GetCollection returns the named collection through the cache;
// refresh forces a fetch regardless of freshness. Unknown names fail
// before touching the source.
func (s *Service) GetCollection(ctx context.Context, name string, refresh bool) (cache.Result, error) {
	if !s.collections.Known(name) {
		return cache.Result{}, fmt.Errorf("datasvc: %s: %w", name, apperr.ErrUnknownCollection)
	}
	if refresh {
		return s.store.Refresh(ctx, name), nil
	}
	return s.store.Get(ctx, name), nil
}

// CreateRecord writes a new record and invalidates the collection.
func (s *Service) CreateRecord(ctx context.Context, name string, payload models.Record) (models.Record, error) {
	return s.mutate(ctx, name, source.ActionCreate, payload)
}

// UpdateRecord writes an updated record and invalidates the collection.
func (s *Service) UpdateRecord(ctx context.Context, name string, payload models.Record) (models.Record, error) {
	return s.mutate(ctx, name, source.ActionUpdate, payload)
}

// DeleteRecord removes a record and invalidates the collection. The
// payload identifies the record the way the source expects.
func (s *Service) DeleteRecord(ctx context.Context, name string, payload models.Record) (models.Record, error) {
	return s.mutate(ctx, name, source.ActionDelete, payload)
}

func (s *Service) mutate(ctx context.Context, name, action string, payload models.Record) (models.Record, error) {
	if !s.collections.Known(name) {
		return nil, fmt.Errorf("datasvc: %s: %w", name, apperr.ErrUnknownCollection)
	}
	if s.mut == nil {
		return nil, fmt.Errorf("datasvc: %s %s: %w", action, name, apperr.ErrReadOnlySource)
	}

	out, err := s.mut.Mutate(ctx, name, action, payload)
	if err != nil {
		return nil, err
	}

	// The mutation response does not carry the full collection, so the
	// cached copy is simply dropped and re-fetched on the next read.
	s.store.Invalidate(name)
	if s.broker != nil {
		s.broker.PublishCollectionEvent(sse.KindUpdated, name)
	}
	s.logger.Info("datasvc: record mutated",
		slog.String("collection", name),
		slog.String("action", action))
	return out, nil
}

// InvalidateCollection drops the cached copy of one collection.
func (s *Service) InvalidateCollection(name string) error {
	if !s.collections.Known(name) {
		return fmt.Errorf("datasvc: %s: %w", name, apperr.ErrUnknownCollection)
	}
	s.store.Invalidate(name)
	if s.broker != nil {
		s.broker.PublishCollectionEvent(sse.KindInvalidated, name)
	}
	return nil
}

// Prefetch warms the cache for every configured collection in
// parallel. Individual failures degrade inside the store and are
// reported per collection, never as an error.
func (s *Service) Prefetch(ctx context.Context) map[string]cache.Status {
	var (
		g, gctx = errgroup.WithContext(ctx)
		results = make([]cache.Status, len(s.collections.All()))
	)
	for i, name := range s.collections.All() {
		g.Go(func() error {
			results[i] = s.store.Get(gctx, name).Status
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	out := make(map[string]cache.Status, len(results))
	for i, name := range s.collections.All() {
		out[name] = results[i]
	}
	return out
}

// DashboardSummary is the headline view: record counts per collection
// plus the reconciled revenue total.
type DashboardSummary struct {
	Customers    int      `json:"customers"`
	Products     int      `json:"products"`
	Orders       int      `json:"orders"`
	Items        int      `json:"items"`
	TotalRevenue float64  `json:"total_revenue"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Dashboard loads all four collections in parallel and summarizes
// them. Stale or empty collections contribute what they have and add a
// warning.
func (s *Service) Dashboard(ctx context.Context) *DashboardSummary {
	results := s.loadAll(ctx)

	sum := &DashboardSummary{
		Customers: len(results[s.collections.Customers].Records),
		Products:  len(results[s.collections.Products].Records),
		Orders:    len(results[s.collections.Orders].Records),
		Items:     len(results[s.collections.Items].Records),
	}
	for _, name := range s.collections.All() {
		if err := results[name].Err; err != nil {
			sum.Warnings = append(sum.Warnings, fmt.Sprintf("%s: %v", name, err))
		}
	}

	rev := reconcile.Revenue(
		results[s.collections.Orders].Records,
		results[s.collections.Items].Records,
		results[s.collections.Products].Records,
		s.dates)
	sum.TotalRevenue = rev.TotalRevenue
	return sum
}

// RevenueSummary is a reconciliation pass plus the warnings of the
// collections that fed it.
type RevenueSummary struct {
	*reconcile.Summary
	Warnings []string `json:"warnings,omitempty"`
}

// Revenue reconciles orders, line-items, and products into the revenue
// summary.
func (s *Service) Revenue(ctx context.Context) *RevenueSummary {
	results := s.loadAll(ctx)

	out := &RevenueSummary{
		Summary: reconcile.Revenue(
			results[s.collections.Orders].Records,
			results[s.collections.Items].Records,
			results[s.collections.Products].Records,
			s.dates),
	}
	for _, name := range []string{s.collections.Orders, s.collections.Items, s.collections.Products} {
		if err := results[name].Err; err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %v", name, err))
		}
	}
	return out
}

// CacheInfo describes the cache contents and its freshness window.
type CacheInfo struct {
	TTLMillis int64                      `json:"ttl_ms"`
	Entries   map[string]cache.EntryInfo `json:"entries"`
}

// Cache returns per-collection cache metadata.
func (s *Service) Cache() CacheInfo {
	return CacheInfo{
		TTLMillis: s.store.TTL().Milliseconds(),
		Entries:   s.store.Info(),
	}
}

// loadAll fetches every configured collection in parallel through the
// cache.
func (s *Service) loadAll(ctx context.Context) map[string]cache.Result {
	var (
		g, gctx = errgroup.WithContext(ctx)
		names   = s.collections.All()
		results = make([]cache.Result, len(names))
	)
	for i, name := range names {
		g.Go(func() error {
			results[i] = s.store.Get(gctx, name)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]cache.Result, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}
