// Package dir reads chunk files named xNNNNN from a local directory,
// plain or gzip-compressed.
package dir

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hejijunhao/authbayes/internal/connector"
	"github.com/hejijunhao/authbayes/internal/model"
)

func init() {
	connector.Register("dir", constructor(false))
	connector.Register("gzip", constructor(true))
}

func constructor(compressed bool) connector.Constructor {
	return func(cfg connector.SourceConfig) (connector.Source, error) {
		s, err := New(cfg.Dir, compressed)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Source reads {dir}/xNNNNN, or {dir}/xNNNNN.gz when compressed.
type Source struct {
	dir        string
	compressed bool
}

// New creates a Source over dir.
func New(dir string, compressed bool) (*Source, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir source: no input directory configured")
	}
	return &Source{dir: dir, compressed: compressed}, nil
}

// Path returns the file backing chunk.
func (s *Source) Path(chunk int) string {
	name := model.ChunkName(chunk)
	if s.compressed {
		name += ".gz"
	}
	return filepath.Join(s.dir, name)
}

// Open opens the chunk file. The caller must close the returned reader.
func (s *Source) Open(ctx context.Context, chunk int) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(chunk))
	if err != nil {
		return nil, fmt.Errorf("dir source: %w", err)
	}
	if !s.compressed {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("dir source: %s: %w", s.Path(chunk), err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return zerr
}
