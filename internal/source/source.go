// Package source retrieves named collections from the backing tabular
// data source. It performs no retries and no caching of its own:
// retry-by-fallback lives in the cache store.
package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/starford/tokodata/internal/apperr"
	"github.com/starford/tokodata/internal/models"
)

// Source fetches one named collection.
type Source interface {
	// List returns all records of the named collection. It fails with
	// apperr.ErrTransport when the source cannot be reached and
	// apperr.ErrFormat when the response is not a record list.
	List(ctx context.Context, table string) (models.Collection, error)
}

// Mutation actions accepted by the remote source.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// decodeRecords interprets a response body as a list of records. The
// source answers either with a bare JSON array or with an object
// wrapping it under "data".
func decodeRecords(body []byte, table string) (models.Collection, error) {
	var records models.Collection
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var wrapped struct {
		Data models.Collection `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}

	return nil, fmt.Errorf("source: decode %s: %w", table, apperr.ErrFormat)
}
