package fetcher

import (
	"context"

	"github.com/iconidentify/streamcache/internal/domain"
)

// Fetcher retrieves remote media into the scratch directory.
type Fetcher interface {
	// Fetch downloads the requested media, returning the path of the
	// produced file. The file lands in the scratch directory with an
	// extension chosen by the external tool.
	Fetch(ctx context.Context, req domain.MediaRequest) (string, error)
}
