// Package vectorstore provides the session-scoped similarity index the
// pipeline writes to and the cleanup engine reclaims from.
package vectorstore

import (
	"context"

	"github.com/mohammad-safakhou/postpilot/models"
)

// Filter is a conjunction over vector metadata. The zero value matches
// everything (unscoped).
type Filter struct {
	SessionID      string
	IncludeSources []string
	ExcludeSources []string
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return f.SessionID == "" && len(f.IncludeSources) == 0 && len(f.ExcludeSources) == 0
}

// Matches evaluates the conjunction against a record's metadata.
func (f Filter) Matches(md models.VectorMetadata) bool {
	if f.SessionID != "" && md.SessionID != f.SessionID {
		return false
	}
	if len(f.IncludeSources) > 0 && !contains(f.IncludeSources, md.SourceName) {
		return false
	}
	if len(f.ExcludeSources) > 0 && contains(f.ExcludeSources, md.SourceName) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// StoreStats describes the index state for the stats endpoint and cleanup
// before/after accounting.
type StoreStats struct {
	TotalVectors int `json:"total_vectors"`
	Dimension    int `json:"dimension"`
}

// Gateway is the vector store contract. Upsert is idempotent per chunk id;
// Query returns up to topK matches by descending similarity, ties broken by
// most recent published_at; DeleteByFilter returns the count actually removed
// and is safe to call twice.
type Gateway interface {
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Query(ctx context.Context, embedding []float32, topK int, f Filter) ([]models.Match, error)
	DeleteByFilter(ctx context.Context, f Filter) (int, error)
	Stats(ctx context.Context) (StoreStats, error)
}
