package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hejijunhao/authbayes/internal/connector"
	"github.com/hejijunhao/authbayes/internal/engine"
	"github.com/hejijunhao/authbayes/internal/model"
	"github.com/hejijunhao/authbayes/internal/output"
	"github.com/hejijunhao/authbayes/internal/snapshot"
	"github.com/hejijunhao/authbayes/internal/summary"
)

const (
	maxLineSize     = 1024 * 1024
	maxLoggedBlanks = 20
)

// ErrBlankLine is returned for a blank line under WithRejectBlankLines.
var ErrBlankLine = errors.New("blank line")

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOutput sends every decision to out. Default: discarded.
func WithOutput(out output.Output) Option {
	return func(p *Pipeline) { p.output = out }
}

// WithRolloverFromSnapshot restores the previous window from the counts
// snapshot just written instead of the in-memory counts at each boundary.
func WithRolloverFromSnapshot() Option {
	return func(p *Pipeline) { p.fromSnapshot = true }
}

// WithRejectBlankLines treats a blank line as a parse error instead of
// skipping it.
func WithRejectBlankLines() Option {
	return func(p *Pipeline) { p.rejectBlank = true }
}

// Pipeline drives the engine over consecutive log chunks, persisting the
// counts snapshot and summary of each chunk before rolling the window.
type Pipeline struct {
	source    connector.Source
	engine    *engine.Engine
	snapshots snapshot.Store
	summaries *summary.Dir
	output    output.Output

	fromSnapshot bool
	rejectBlank  bool
}

// New creates a Pipeline from the given components.
func New(src connector.Source, eng *engine.Engine, snaps snapshot.Store, sums *summary.Dir, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    src,
		engine:    eng,
		snapshots: snaps,
		summaries: sums,
		output:    output.Discard{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Train processes a single chunk with whatever window the engine holds
// (normally empty) and persists its counts, raw log and summary. It is
// used to seed the first chunk before any prior exists.
func (p *Pipeline) Train(ctx context.Context, chunk int) error {
	if chunk < 0 {
		return fmt.Errorf("pipeline train: invalid chunk %d", chunk)
	}
	n, err := p.processChunk(ctx, chunk)
	if err != nil {
		return err
	}
	s, err := p.finishChunk(ctx, chunk)
	if err != nil {
		return err
	}
	slog.Info("chunk trained", "chunk", model.ChunkName(chunk), "events", n,
		"success", s.Results.Success, "fail", s.Results.Fail)
	return nil
}

// Run classifies chunks start..end inclusive. The prior comes from the
// summaries of every chunk before start and the previous window from the
// counts snapshot of chunk start-1. Cancellation is checked between chunks.
func (p *Pipeline) Run(ctx context.Context, start, end int) error {
	if start < 1 || end < start {
		return fmt.Errorf("pipeline run: invalid chunk range %d..%d", start, end)
	}

	prior, err := summary.PriorRatio(p.summaries, start)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	prev, err := p.snapshots.LoadCounts(ctx, start-1)
	if err != nil {
		return fmt.Errorf("pipeline run: previous window: %w", err)
	}
	cls := p.engine.Classifier()
	cls.RolloverFrom(prior, prev)
	slog.Info("run started", "start", model.ChunkName(start), "end", model.ChunkName(end),
		"prior", prior, "previous_success", prev.Success, "previous_fail", prev.Fail)

	for chunk := start; chunk <= end; chunk++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := p.processChunk(ctx, chunk)
		if err != nil {
			return err
		}
		s, err := p.finishChunk(ctx, chunk)
		if err != nil {
			return err
		}
		attrs := []any{"chunk", model.ChunkName(chunk), "events", n, "prior", cls.PriorRatio(),
			"success", s.Results.Success, "fail", s.Results.Fail}
		if s.Predictions != nil {
			attrs = append(attrs, "correct", s.Predictions.CorrectSuccess+s.Predictions.CorrectFail,
				"incorrect", s.Predictions.IncorrectSuccess+s.Predictions.IncorrectFail)
		}
		slog.Info("chunk classified", attrs...)

		if err := p.rollover(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}

// processChunk feeds every non-blank line of chunk to the engine in order.
// The first bad line aborts the chunk. Skipped blank lines are logged.
func (p *Pipeline) processChunk(ctx context.Context, chunk int) (int, error) {
	name := model.ChunkName(chunk)
	rc, err := p.source.Open(ctx, chunk)
	if err != nil {
		return 0, fmt.Errorf("pipeline: open %s: %w", name, err)
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lineNo, events int
	var blank []int
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if p.rejectBlank {
				return events, fmt.Errorf("pipeline: %s line %d: %w", name, lineNo, ErrBlankLine)
			}
			if len(blank) < maxLoggedBlanks {
				blank = append(blank, lineNo)
			}
			continue
		}
		d, err := p.engine.Process(line)
		if err != nil {
			return events, fmt.Errorf("pipeline: %s line %d: %w", name, lineNo, err)
		}
		events++
		d.Chunk = name
		if err := p.output.Write(ctx, d); err != nil {
			return events, fmt.Errorf("pipeline output: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("pipeline: read %s: %w", name, err)
	}
	if len(blank) > 0 {
		slog.Warn("skipped blank lines", "chunk", name, "lines", blank)
	}
	return events, nil
}

// finishChunk persists the counts snapshot, the raw log under full
// tabulation, and the summary record.
func (p *Pipeline) finishChunk(ctx context.Context, chunk int) (model.Summary, error) {
	cls := p.engine.Classifier()
	if err := p.snapshots.SaveCounts(ctx, chunk, cls.Current()); err != nil {
		return model.Summary{}, fmt.Errorf("pipeline: %w", err)
	}
	if cls.FullTabulation() {
		if err := p.snapshots.SaveRawLog(ctx, chunk, cls.RawLog()); err != nil {
			return model.Summary{}, fmt.Errorf("pipeline: %w", err)
		}
	}
	s, err := cls.Summary()
	if err != nil {
		return model.Summary{}, fmt.Errorf("pipeline: %s: %w", model.ChunkName(chunk), err)
	}
	if err := p.summaries.Write(chunk, s); err != nil {
		return model.Summary{}, fmt.Errorf("pipeline: %w", err)
	}
	return s, nil
}

// rollover recomputes the prior with chunk included and moves the window.
func (p *Pipeline) rollover(ctx context.Context, chunk int) error {
	prior, err := summary.PriorRatio(p.summaries, chunk+1)
	if err != nil {
		return fmt.Errorf("pipeline: rollover after %s: %w", model.ChunkName(chunk), err)
	}
	cls := p.engine.Classifier()
	if !p.fromSnapshot {
		cls.Rollover(prior)
		return nil
	}
	counts, err := p.snapshots.LoadCounts(ctx, chunk)
	if err != nil {
		return fmt.Errorf("pipeline: rollover after %s: %w", model.ChunkName(chunk), err)
	}
	cls.RolloverFrom(prior, counts)
	return nil
}
