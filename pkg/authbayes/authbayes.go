package authbayes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hejijunhao/authbayes/internal/engine"
	"github.com/hejijunhao/authbayes/internal/engine/classifier"
	"github.com/hejijunhao/authbayes/internal/engine/parser"
)

// Classifier scores authentication log lines one chunk at a time.
// Safe for concurrent use.
type Classifier struct {
	mu          sync.Mutex
	engine      *engine.Engine
	rejectBlank bool
}

// ErrBlankLine is returned by ClassifyChunk for a blank line when
// WithRejectBlankLines is set.
var ErrBlankLine = errors.New("blank line")

// New creates a Classifier with the prior ratio P(Fail)/P(Success) and an
// empty window. It fails when the separator is empty or the field count
// is 1 or negative.
func New(prior float64, opts ...Option) (*Classifier, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p, err := parser.New(o.parserOptions()...)
	if err != nil {
		return nil, fmt.Errorf("authbayes: %w", err)
	}
	cls := classifier.New(prior, o.classifierOptions()...)
	return &Classifier{engine: engine.New(p, cls), rejectBlank: o.rejectBlank}, nil
}

// Classify parses and scores a single log line, then counts it.
func (c *Classifier) Classify(line string) (Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.engine.Process(line)
	if err != nil {
		return Decision{}, fmt.Errorf("authbayes: %w", err)
	}
	return decisionFromModel(d), nil
}

// ClassifyChunk scores every non-blank line read from r in order. It stops
// at the first bad line; lines before it have already been counted. Blank
// lines are skipped unless WithRejectBlankLines is set.
func (c *Classifier) ClassifyChunk(r io.Reader) ([]Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var decisions []Decision
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if strings.TrimSpace(scanner.Text()) == "" {
			if c.rejectBlank {
				return decisions, fmt.Errorf("authbayes: line %d: %w", lineNo, ErrBlankLine)
			}
			continue
		}
		d, err := c.engine.Process(scanner.Text())
		if err != nil {
			return decisions, fmt.Errorf("authbayes: line %d: %w", lineNo, err)
		}
		decisions = append(decisions, decisionFromModel(d))
	}
	if err := scanner.Err(); err != nil {
		return decisions, fmt.Errorf("authbayes: read chunk: %w", err)
	}
	return decisions, nil
}

// Rollover ends the current chunk. Its counts become the previous window
// and prior replaces the prior ratio.
func (c *Classifier) Rollover(prior float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.Classifier().Rollover(prior)
}

// RolloverFrom ends the current chunk with prev as the previous window,
// for resuming from saved counts.
func (c *Classifier) RolloverFrom(prior float64, prev Window) error {
	counts := prev.toModel()
	if err := counts.Validate(); err != nil {
		return fmt.Errorf("authbayes: previous window: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.Classifier().RolloverFrom(prior, counts)
	return nil
}

// Current returns a copy of the current chunk's counts.
func (c *Classifier) Current() Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return windowFromModel(c.engine.Classifier().Current())
}

// Previous returns a copy of the previous chunk's counts.
func (c *Classifier) Previous() Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return windowFromModel(c.engine.Classifier().Previous())
}

// Summary totals the current chunk.
func (c *Classifier) Summary() (Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.engine.Classifier().Summary()
	if err != nil {
		return Summary{}, fmt.Errorf("authbayes: %w", err)
	}
	return summaryFromModel(s), nil
}
