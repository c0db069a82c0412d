// Package news defines the fetch capability boundary: given a query it
// returns validated article records.
package news

import (
	"context"

	"github.com/mohammad-safakhou/postpilot/models"
)

// FetchRequest carries the query plus optional source scoping.
type FetchRequest struct {
	Query          string
	Limit          int
	IncludeSources []string
	ExcludeSources []string
}

// Fetcher is the fetch capability. Implementations validate upstream records
// at the boundary and never pass untyped payloads inward. Upstream outages
// surface as models.ErrFetchUnavailable.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) ([]models.Article, error)
}
