package file

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"

	"github.com/hejijunhao/authbayes/internal/model"
	"github.com/hejijunhao/authbayes/internal/snapshot"
)

const (
	formatVersion = 1

	kindCounts = "counts"
	kindRawLog = "rawlog"
)

// envelope wraps every snapshot file so corruption is detectable on load.
type envelope struct {
	Version  int             `json:"version"`
	Kind     string          `json:"kind"`
	Chunk    int             `json:"chunk"`
	Checksum string          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

// Store keeps snapshots as JSON files in a directory:
// {dir}/xNNNNN_counts.json and {dir}/xNNNNN_rawlog.json.
type Store struct {
	dir string
}

// New creates a file Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("snapshot file: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file holding the given kind of snapshot for chunk.
func (s *Store) Path(kind string, chunk int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", model.ChunkName(chunk), kind))
}

func (s *Store) SaveCounts(_ context.Context, chunk int, c model.Counts) error {
	return s.save("save counts", kindCounts, chunk, c.Clone())
}

func (s *Store) LoadCounts(_ context.Context, chunk int) (model.Counts, error) {
	var c model.Counts
	if err := s.load("load counts", kindCounts, chunk, &c); err != nil {
		return model.Counts{}, err
	}
	c = c.Clone() // allocate maps absent from the payload
	if err := snapshot.CheckCounts("load counts", chunk, c); err != nil {
		return model.Counts{}, err
	}
	return c, nil
}

func (s *Store) SaveRawLog(_ context.Context, chunk int, l model.RawLog) error {
	return s.save("save rawlog", kindRawLog, chunk, l)
}

func (s *Store) LoadRawLog(_ context.Context, chunk int) (model.RawLog, error) {
	var l model.RawLog
	if err := s.load("load rawlog", kindRawLog, chunk, &l); err != nil {
		return model.RawLog{}, err
	}
	return l, nil
}

// Close is a no-op; every save is flushed before it returns.
func (s *Store) Close() error { return nil }

func checksum(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// save writes to a temp file in the same directory and renames it over
// the target, so readers never observe a partial snapshot.
func (s *Store) save(op, kind string, chunk int, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	data, err := json.Marshal(envelope{
		Version:  formatVersion,
		Kind:     kind,
		Chunk:    chunk,
		Checksum: checksum(payload),
		Payload:  payload,
	})
	if err != nil {
		return &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.Path(kind, chunk)); err != nil {
		return &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	return nil
}

func (s *Store) load(op, kind string, chunk int, v any) error {
	data, err := os.ReadFile(s.Path(kind, chunk))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &snapshot.Error{Op: op, Chunk: chunk, Err: snapshot.ErrNotFound}
		}
		return &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return corrupt(op, chunk, "decode envelope: %v", err)
	}
	switch {
	case env.Version != formatVersion:
		return corrupt(op, chunk, "unsupported version %d", env.Version)
	case env.Kind != kind:
		return corrupt(op, chunk, "kind %q, want %q", env.Kind, kind)
	case env.Chunk != chunk:
		return corrupt(op, chunk, "holds chunk %d", env.Chunk)
	case env.Checksum != checksum(env.Payload):
		return corrupt(op, chunk, "checksum mismatch")
	}

	dec := json.NewDecoder(bytes.NewReader(env.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return corrupt(op, chunk, "decode payload: %v", err)
	}
	return nil
}

func corrupt(op string, chunk int, format string, args ...any) error {
	return &snapshot.Error{
		Op:    op,
		Chunk: chunk,
		Err:   fmt.Errorf("%w: %s", snapshot.ErrCorrupt, fmt.Sprintf(format, args...)),
	}
}
