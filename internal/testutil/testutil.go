// Package testutil provides shared test helpers: an in-memory source
// and fixture-file setup.
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/tokodata/internal/apperr"
	"github.com/starford/tokodata/internal/models"
)

// StaticSource is a source.Source backed by an in-memory table map,
// with error injection and per-table call counting.
type StaticSource struct {
	mu     sync.Mutex
	tables map[string]models.Collection
	err    error
	calls  map[string]int
}

// NewStaticSource creates a StaticSource over the given tables.
func NewStaticSource(tables map[string]models.Collection) *StaticSource {
	if tables == nil {
		tables = map[string]models.Collection{}
	}
	return &StaticSource{tables: tables, calls: map[string]int{}}
}

// List implements source.Source.
func (s *StaticSource) List(_ context.Context, table string) (models.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[table]++
	if s.err != nil {
		return nil, s.err
	}
	records, ok := s.tables[table]
	if !ok {
		return nil, apperr.ErrTransport
	}
	return records, nil
}

// SetErr makes every subsequent List fail with err (nil restores
// normal operation).
func (s *StaticSource) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetTable replaces one table's records.
func (s *StaticSource) SetTable(table string, records models.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = records
}

// Calls returns how many times table has been listed.
func (s *StaticSource) Calls(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[table]
}

// WriteFixture writes a collection as <dir>/<table>.json.
func WriteFixture(t *testing.T, dir, table string, records models.Collection) {
	t.Helper()
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, table+".json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
}
