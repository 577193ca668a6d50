package authbayes

import (
	"github.com/hejijunhao/authbayes/internal/engine/classifier"
	"github.com/hejijunhao/authbayes/internal/engine/parser"
)

type options struct {
	predict      bool
	fullTabulate bool
	sentinel     float64
	separator    string
	fieldCount   int
	rejectBlank  bool
}

// Option configures a Classifier.
type Option func(*options)

// WithPrediction turns prediction on or off. With prediction off events
// are only counted. Default: on.
func WithPrediction(enabled bool) Option {
	return func(o *options) {
		o.predict = enabled
	}
}

// WithFullTabulation keeps every event of the current chunk in memory.
// Default: off.
func WithFullTabulation(enabled bool) Option {
	return func(o *options) {
		o.fullTabulate = enabled
	}
}

// WithSentinel sets the likelihood ratio reported for keys that have only
// ever failed. Default: 1e9.
func WithSentinel(v float64) Option {
	return func(o *options) {
		o.sentinel = v
	}
}

// WithSeparator sets the field separator of log lines. Default: ",".
// Keys are reported comma-joined regardless, so with another separator a
// key field containing a comma is a parse error.
func WithSeparator(sep string) Option {
	return func(o *options) {
		o.separator = sep
	}
}

// WithFieldCount rejects lines that do not have exactly n fields.
// Default: 0, any line with a time and a result field.
func WithFieldCount(n int) Option {
	return func(o *options) {
		o.fieldCount = n
	}
}

// WithRejectBlankLines makes ClassifyChunk fail on a blank line instead of
// skipping it. Default: off.
func WithRejectBlankLines() Option {
	return func(o *options) {
		o.rejectBlank = true
	}
}

func defaultOptions() options {
	return options{
		predict:   true,
		sentinel:  classifier.DefaultSentinel,
		separator: ",",
	}
}

func (o options) classifierOptions() []classifier.Option {
	return []classifier.Option{
		classifier.WithPrediction(o.predict),
		classifier.WithFullTabulation(o.fullTabulate),
		classifier.WithSentinel(o.sentinel),
	}
}

func (o options) parserOptions() []parser.Option {
	return []parser.Option{
		parser.WithSeparator(o.separator),
		parser.WithFieldCount(o.fieldCount),
	}
}
