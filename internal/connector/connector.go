package connector

import (
	"context"
	"io"
)

// Source defines the interface all chunk sources must implement.
type Source interface {
	// Open returns the lines of the given chunk in log order.
	Open(ctx context.Context, chunk int) (io.ReadCloser, error)
}

// SourceConfig holds source-specific settings.
type SourceConfig struct {
	Provider string
	Dir      string
	Extra    map[string]string
}
