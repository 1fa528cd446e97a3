package api

import (
	"github.com/starford/tokodata/internal/cache"
	"github.com/starford/tokodata/internal/datasvc"
	"github.com/starford/tokodata/internal/models"
)

// CollectionResponse wraps one collection read. A degraded read (stale
// fallback or empty result) still answers 200 with the warning set, so
// a dashboard keeps rendering while the source is down.
type CollectionResponse struct {
	Records   models.Collection `json:"records" validate:"required"`
	Count     int               `json:"count" example:"42" validate:"required"`
	FromCache bool              `json:"from_cache" validate:"required"`
	Status    cache.Status      `json:"status" example:"fresh" validate:"required"`
	Warning   string            `json:"warning,omitempty" example:"transport failure"`
}

func collectionBody(res cache.Result) CollectionResponse {
	out := CollectionResponse{
		Records:   res.Records,
		Count:     len(res.Records),
		FromCache: res.FromCache,
		Status:    res.Status,
	}
	if res.Err != nil {
		out.Warning = res.Err.Error()
	}
	return out
}

// MutateRequest is the request body for record mutations. The record
// is passed through to the source untouched.
type MutateRequest struct {
	Record models.Record `json:"record" validate:"required"`
}

// MutateResponse wraps the source's answer to a mutation.
type MutateResponse struct {
	Result models.Record `json:"result" validate:"required"`
}

// PrefetchResponse reports the post-warm cache status per collection.
type PrefetchResponse struct {
	Collections map[string]cache.Status `json:"collections" validate:"required"`
}

// DashboardResponse is the headline summary (aliased from the domain layer).
type DashboardResponse = datasvc.DashboardSummary

// RevenueResponse is the reconciled revenue summary (aliased from the domain layer).
type RevenueResponse = datasvc.RevenueSummary

// CacheResponse describes cache contents (aliased from the domain layer).
type CacheResponse = datasvc.CacheInfo
