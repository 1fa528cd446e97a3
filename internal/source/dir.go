package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/tokodata/internal/apperr"
	"github.com/starford/tokodata/internal/models"
)

// Dir serves collections from local fixture files, one
// `<root>/<table>.json` per collection. It exists for development
// against sample data without the remote source; mutations are not
// supported.
type Dir struct {
	root string
}

// NewDir creates a fixture source rooted at dir. The directory must
// already exist.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("source: resolve fixture dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source: stat fixture dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source: not a directory: %s", abs)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute fixture directory.
func (d *Dir) Root() string { return d.root }

// List implements Source. A missing fixture file reads as an
// unreachable source, so the cache store applies the same fallback it
// would for a network failure.
func (d *Dir) List(_ context.Context, table string) (models.Collection, error) {
	data, err := os.ReadFile(filepath.Join(d.root, table+".json"))
	if err != nil {
		return nil, fmt.Errorf("source: fixture %s: %w: %v", table, apperr.ErrTransport, err)
	}
	return decodeRecords(data, table)
}
