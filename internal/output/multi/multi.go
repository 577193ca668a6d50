package multi

import (
	"context"
	"errors"

	"github.com/hejijunhao/authbayes/internal/model"
	"github.com/hejijunhao/authbayes/internal/output"
)

// Multi fans out decisions to multiple output.Output implementations.
// Each Write call delivers the decision to every wrapped output sequentially.
// If one output fails, the remaining outputs still receive the decision.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Len reports how many outputs are wrapped.
func (m *Multi) Len() int {
	return len(m.outputs)
}

// Write delivers d to every wrapped output. Errors are collected
// but do not prevent delivery to subsequent outputs.
func (m *Multi) Write(ctx context.Context, d model.Decision) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
