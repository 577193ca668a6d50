package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hejijunhao/authbayes/internal/model"
)

// ParseError reports a log line that cannot be turned into an event.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Line, e.Reason)
}

// ErrEmptySeparator is returned by New when the field separator is "".
var ErrEmptySeparator = errors.New("parser: empty field separator")

// Option configures a Parser.
type Option func(*Parser)

// WithSeparator sets the field separator of input lines. Default: ",".
// Keys are always joined with model.KeySeparator, so with any other
// separator a key field may not contain model.KeySeparator.
func WithSeparator(sep string) Option {
	return func(p *Parser) { p.sep = sep }
}

// WithFieldCount rejects lines that do not have exactly n fields.
// 0 (default) accepts any line with at least a time and a result field.
func WithFieldCount(n int) Option {
	return func(p *Parser) { p.fields = n }
}

// Parser splits log lines into time, key and result.
type Parser struct {
	sep    string
	fields int
}

// New creates a Parser.
func New(opts ...Option) (*Parser, error) {
	p := &Parser{sep: model.KeySeparator}
	for _, opt := range opts {
		opt(p)
	}
	if p.sep == "" {
		return nil, ErrEmptySeparator
	}
	if p.fields < 0 || p.fields == 1 {
		return nil, fmt.Errorf("parser: field count must be 0 or at least 2, got %d", p.fields)
	}
	return p, nil
}

// Separator returns the field separator of input lines.
func (p *Parser) Separator() string { return p.sep }

// Parse splits one line. Field 0 is the time, the first character of the
// last field is the result (S or F, case-sensitive) and the fields in
// between form the key.
func (p *Parser) Parse(line string) (model.Event, error) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.Split(line, p.sep)
	if len(parts) < 2 {
		return model.Event{}, &ParseError{Line: line, Reason: "missing result field"}
	}
	if p.fields > 0 && len(parts) != p.fields {
		return model.Event{}, &ParseError{
			Line:   line,
			Reason: fmt.Sprintf("expected %d fields, got %d", p.fields, len(parts)),
		}
	}

	last := parts[len(parts)-1]
	if last == "" {
		return model.Event{}, &ParseError{Line: line, Reason: "empty result field"}
	}
	r := model.Result(last[0])
	if !r.Valid() {
		return model.Event{}, &ParseError{Line: line, Reason: fmt.Sprintf("result %q is neither S nor F", last)}
	}

	fields := parts[1 : len(parts)-1]
	if p.sep != model.KeySeparator {
		for _, f := range fields {
			if strings.Contains(f, model.KeySeparator) {
				return model.Event{}, &ParseError{
					Line:   line,
					Reason: fmt.Sprintf("key field %q contains %q", f, model.KeySeparator),
				}
			}
		}
	}

	return model.Event{
		Time:   parts[0],
		Key:    model.NewKey(fields),
		Result: r,
	}, nil
}

var defaultParser = &Parser{sep: model.KeySeparator}

// Default returns the comma-separated parser with no field count check.
func Default() *Parser { return defaultParser }

// Parse splits a comma-separated line with the default parser.
func Parse(line string) (model.Event, error) {
	return defaultParser.Parse(line)
}
