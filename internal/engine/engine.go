package engine

import (
	"fmt"

	"github.com/hejijunhao/authbayes/internal/engine/classifier"
	"github.com/hejijunhao/authbayes/internal/engine/parser"
	"github.com/hejijunhao/authbayes/internal/model"
)

// Engine orchestrates the parse → classify steps for log lines.
type Engine struct {
	parser     *parser.Parser
	classifier *classifier.Classifier
}

// New creates an Engine with the provided components.
func New(p *parser.Parser, cls *classifier.Classifier) *Engine {
	return &Engine{
		parser:     p,
		classifier: cls,
	}
}

// Classifier returns the classifier owning the window state.
func (e *Engine) Classifier() *classifier.Classifier {
	return e.classifier
}

// Process parses and classifies a single log line.
func (e *Engine) Process(line string) (model.Decision, error) {
	ev, err := e.parser.Parse(line)
	if err != nil {
		return model.Decision{}, err
	}
	return e.classifier.Process(ev)
}

// ProcessBatch processes lines in order. It stops at the first failure;
// lines before it have already updated the window.
func (e *Engine) ProcessBatch(lines []string) ([]model.Decision, error) {
	decisions := make([]model.Decision, 0, len(lines))
	for i, line := range lines {
		d, err := e.Process(line)
		if err != nil {
			return decisions, fmt.Errorf("line %d: %w", i+1, err)
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}
