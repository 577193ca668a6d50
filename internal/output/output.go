package output

import (
	"context"

	"github.com/hejijunhao/authbayes/internal/model"
)

// Output defines the interface for decision trace destinations.
type Output interface {
	Write(ctx context.Context, d model.Decision) error
	Close() error
}

// Discard is an Output that drops every decision.
type Discard struct{}

func (Discard) Write(context.Context, model.Decision) error { return nil }
func (Discard) Close() error                                { return nil }
