// Package apperr defines the error taxonomy shared across layers.
package apperr

import "errors"

var (
	// ErrTransport means the remote data source could not be reached
	// or answered with a non-success status.
	ErrTransport = errors.New("transport failure")

	// ErrFormat means the response could not be interpreted as a list
	// of records.
	ErrFormat = errors.New("malformed response")

	// ErrPersistence means a cache tier failed to read or write. It is
	// always swallowed by the cache store and never reaches callers.
	ErrPersistence = errors.New("persistence failure")

	// ErrReadOnlySource means a mutation was requested against a
	// source that does not accept writes (fixture mode).
	ErrReadOnlySource = errors.New("source is read-only")

	// ErrUnknownCollection means the requested name is not one of the
	// configured collections.
	ErrUnknownCollection = errors.New("unknown collection")
)
