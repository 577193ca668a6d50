// Package remote fetches chunk files over HTTP from {base}/xNNNNN.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/hejijunhao/authbayes/internal/connector"
	"github.com/hejijunhao/authbayes/internal/connector/httpclient"
	"github.com/hejijunhao/authbayes/internal/model"
)

func init() {
	connector.Register("http", func(cfg connector.SourceConfig) (connector.Source, error) {
		s, err := New(cfg.Dir, cfg.Extra["token"])
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Source downloads one chunk per request.
type Source struct {
	client *httpclient.Client
}

// New creates a Source for baseURL. token may be empty.
func New(baseURL, token string, opts ...httpclient.Option) (*Source, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("http source: no base URL configured")
	}
	return &Source{client: httpclient.New(baseURL, token, opts...)}, nil
}

// Open fetches the chunk. A 404 is reported as os.ErrNotExist, like a
// missing chunk file.
func (s *Source) Open(ctx context.Context, chunk int) (io.ReadCloser, error) {
	rc, err := s.client.Get(ctx, "/"+model.ChunkName(chunk))
	if err != nil {
		var apiErr *httpclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("http source: %s: %w", model.ChunkName(chunk), os.ErrNotExist)
		}
		return nil, fmt.Errorf("http source: %s: %w", model.ChunkName(chunk), err)
	}
	return rc, nil
}
