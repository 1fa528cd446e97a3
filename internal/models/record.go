// Package models defines the domain types for Tokodata.
package models

import "time"

// Record is a single row from a tabular data source: field name to
// scalar value. The same concept appears under different field names
// depending on which sheet or export produced the row (an order id may
// arrive as ID_NOTA, NOTA, or NOMOR), and no field is guaranteed to be
// present.
type Record map[string]any

// Collection is a named, ordered list of records fetched as a unit.
// Order carries no meaning beyond insertion order at the source.
type Collection []Record

// CacheEntry is the last-fetched version of one collection together
// with the moment it was fetched. Entries are owned by the cache store
// and replaced wholesale; nothing mutates them in place.
type CacheEntry struct {
	FetchedAt int64      `json:"fetched_at"` // unix milliseconds
	Records   Collection `json:"records"`
}

// FetchedTime returns FetchedAt as a time.Time.
func (e CacheEntry) FetchedTime() time.Time {
	return time.UnixMilli(e.FetchedAt)
}

// Valid reports whether a hydrated entry has the expected shape.
// Entries with a missing timestamp or record list are discarded on
// load rather than treated as fatal.
func (e CacheEntry) Valid() bool {
	return e.FetchedAt > 0 && e.Records != nil
}
