// Package fetcher downloads pages for the feed builder. It is the only part
// of linkfeed that blocks on the network.
package fetcher

import (
	"context"

	"github.com/IshaanNene/linkfeed/internal/types"
)

// Fetcher downloads one page. Implementations return a *types.FetchError for
// transport failures; non-2xx responses are not errors.
type Fetcher interface {
	// Fetch retrieves the page at req.URL, honoring req.Timeout and
	// req.MaxBytes.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error
}
