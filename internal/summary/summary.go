// Package summary reads and writes per-chunk summary records and derives
// the prior ratio and run-wide totals from them.
package summary

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hejijunhao/authbayes/internal/model"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://authbayes.local/summary.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// ErrNotFound means no summary exists for the requested chunk.
var ErrNotFound = errors.New("summary not found")

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Validate checks a summary document against the summary schema.
func Validate(data []byte) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("summary: decode: %w", err)
	}
	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return nil
}

// Dir stores summary_xNNNNN.json files in one directory.
type Dir struct {
	path string
}

// NewDir returns a Dir rooted at path. The directory is created on first write.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the summary file for chunk.
func (d *Dir) Path(chunk int) string {
	return filepath.Join(d.path, fmt.Sprintf("summary_%s.json", model.ChunkName(chunk)))
}

// Write stores the summary for chunk, replacing any previous one.
func (d *Dir) Write(chunk int, s model.Summary) error {
	return writeJSON(d.Path(chunk), s)
}

// FinalPath is the default location of the run-wide summary.
func (d *Dir) FinalPath() string {
	return filepath.Join(d.path, "final_summary.json")
}

// WriteFinal stores an aggregated summary at path.
func WriteFinal(path string, s model.FinalSummary) error {
	return writeJSON(path, s)
}

func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("summary: create %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("summary: marshal: %w", err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("summary: write %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// over path, so a reader sees either the old record or the new one.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".summary-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Read loads and validates the summary for chunk.
func (d *Dir) Read(chunk int) (model.Summary, error) {
	path := d.Path(chunk)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Summary{}, fmt.Errorf("summary: %s: %w", path, ErrNotFound)
		}
		return model.Summary{}, fmt.Errorf("summary: read %s: %w", path, err)
	}
	if err := Validate(data); err != nil {
		return model.Summary{}, fmt.Errorf("%s: %w", path, err)
	}
	var s model.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Summary{}, fmt.Errorf("summary: decode %s: %w", path, err)
	}
	return s, nil
}
