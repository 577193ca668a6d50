// Package snapshot persists window counts and raw logs between chunks.
// A snapshot is the only handoff of classifier state across processes.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/hejijunhao/authbayes/internal/model"
)

var (
	// ErrNotFound means no snapshot exists for the requested chunk.
	ErrNotFound = errors.New("snapshot not found")
	// ErrCorrupt means a snapshot exists but cannot be trusted.
	ErrCorrupt = errors.New("snapshot corrupt")
)

// Error wraps a snapshot I/O failure with the operation and chunk.
type Error struct {
	Op    string
	Chunk int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, model.ChunkName(e.Chunk), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store saves and restores per-chunk snapshots. Saving a chunk replaces
// any earlier snapshot for it as a whole.
type Store interface {
	SaveCounts(ctx context.Context, chunk int, c model.Counts) error
	LoadCounts(ctx context.Context, chunk int) (model.Counts, error)
	SaveRawLog(ctx context.Context, chunk int, l model.RawLog) error
	LoadRawLog(ctx context.Context, chunk int) (model.RawLog, error)
	Close() error
}

// CheckCounts rejects restored counts that violate the window invariant.
func CheckCounts(op string, chunk int, c model.Counts) error {
	if err := c.Validate(); err != nil {
		return &Error{Op: op, Chunk: chunk, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	return nil
}
