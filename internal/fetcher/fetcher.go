package fetcher

import (
	"context"

	"pricescout/internal/types"
)

// Fetcher retrieves and parses product pages.
type Fetcher interface {
	// Fetch retrieves the page at url and returns its parsed document.
	// Failures come back as a *types.FetchError categorizing the fault;
	// a Page and an error are never both returned.
	Fetch(ctx context.Context, url string) (*types.Page, error)

	// Close releases any resources held by the fetcher.
	Close() error
}
