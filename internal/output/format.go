package output

import (
	"strings"

	"github.com/hejijunhao/authbayes/internal/model"
)

// Verbosity controls how much of a decision is emitted.
type Verbosity int

const (
	// Minimal keeps the event and the predicted outcome only.
	Minimal Verbosity = iota
	// Standard also keeps the likelihood ratio and Bayes factor.
	Standard
)

// ParseVerbosity maps "minimal" to Minimal and anything else to Standard.
func ParseVerbosity(s string) Verbosity {
	if strings.ToLower(s) == "minimal" {
		return Minimal
	}
	return Standard
}

// MinimalDecision is the encoded form of a decision at Minimal verbosity.
type MinimalDecision struct {
	Chunk      string        `json:"chunk,omitempty"`
	Event      model.Event   `json:"event"`
	Predicted  bool          `json:"predicted"`
	Prediction *model.Result `json:"prediction,omitempty"`
}

// FormatDecision returns the value to encode for d: d itself at Standard,
// a MinimalDecision at Minimal.
func FormatDecision(d model.Decision, verbosity Verbosity) any {
	if verbosity != Minimal {
		return d
	}
	m := MinimalDecision{Chunk: d.Chunk, Event: d.Event, Predicted: d.Predicted}
	if d.Predicted {
		m.Prediction = &d.Prediction
	}
	return m
}
