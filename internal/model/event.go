package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeySeparator joins the identity fields of an event into its Key.
const KeySeparator = ","

// Result is the categorical outcome of an authentication event.
type Result byte

const (
	Success Result = 'S'
	Fail    Result = 'F'
)

// String returns "S" or "F". Any other value renders as "?".
func (r Result) String() string {
	switch r {
	case Success, Fail:
		return string(rune(r))
	default:
		return "?"
	}
}

// Valid reports whether r is Success or Fail.
func (r Result) Valid() bool {
	return r == Success || r == Fail
}

func (r Result) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("model: invalid result %q", byte(r))
	}
	return []byte{byte(r)}, nil
}

func (r *Result) UnmarshalText(b []byte) error {
	if len(b) != 1 || !Result(b[0]).Valid() {
		return fmt.Errorf("model: invalid result %q", string(b))
	}
	*r = Result(b[0])
	return nil
}

// Key identifies the user/protocol combination of an event: every field
// between the time and the result, joined with KeySeparator. No field may
// contain KeySeparator, so Fields recovers them exactly.
type Key string

// NewKey joins identity fields into a Key.
func NewKey(fields []string) Key {
	return Key(strings.Join(fields, KeySeparator))
}

// Fields recovers the ordered identity fields of k.
func (k Key) Fields() []string {
	return strings.Split(string(k), KeySeparator)
}

// Event is one parsed line of the authentication log.
type Event struct {
	Time   string `json:"time"`
	Key    Key    `json:"key"`
	Result Result `json:"result"`
}

// RawLog holds every event of a chunk split by outcome, in log order.
// Only populated when full tabulation is enabled.
type RawLog struct {
	Success []Event `json:"success"`
	Fail    []Event `json:"fail"`
}

// Clone returns a deep copy of l.
func (l RawLog) Clone() RawLog {
	return RawLog{
		Success: append([]Event(nil), l.Success...),
		Fail:    append([]Event(nil), l.Fail...),
	}
}

// Decision is the classifier's verdict for a single event. Prediction,
// Evidence, LikelihoodRatio, Prior and BayesFactor are only meaningful when
// Predicted is set, and are then always encoded, zeros included.
//
// Fail-only evidence predicts Fail for any positive prior, so a Fail
// prediction can carry a BayesFactor of at most 1 when sentinel × prior ≤ 1.
type Decision struct {
	Chunk           string // chunk name, set by the pipeline
	Event           Event
	Predicted       bool
	Prediction      Result
	Evidence        string // "measured", "uninformative" or "fail_only"
	LikelihoodRatio float64
	Prior           float64
	BayesFactor     float64
}

type decisionJSON struct {
	Chunk           string   `json:"chunk,omitempty"`
	Event           Event    `json:"event"`
	Predicted       bool     `json:"predicted"`
	Prediction      *Result  `json:"prediction,omitempty"`
	Evidence        string   `json:"evidence,omitempty"`
	LikelihoodRatio *float64 `json:"likelihood_ratio,omitempty"`
	Prior           *float64 `json:"prior,omitempty"`
	BayesFactor     *float64 `json:"bayes_factor,omitempty"`
}

func (d Decision) MarshalJSON() ([]byte, error) {
	v := decisionJSON{Chunk: d.Chunk, Event: d.Event, Predicted: d.Predicted}
	if d.Predicted {
		v.Prediction = &d.Prediction
		v.Evidence = d.Evidence
		v.LikelihoodRatio = &d.LikelihoodRatio
		v.Prior = &d.Prior
		v.BayesFactor = &d.BayesFactor
	}
	return json.Marshal(v)
}

func (d *Decision) UnmarshalJSON(b []byte) error {
	var v decisionJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = Decision{Chunk: v.Chunk, Event: v.Event, Predicted: v.Predicted, Evidence: v.Evidence}
	if v.Prediction != nil {
		d.Prediction = *v.Prediction
	}
	if v.LikelihoodRatio != nil {
		d.LikelihoodRatio = *v.LikelihoodRatio
	}
	if v.Prior != nil {
		d.Prior = *v.Prior
	}
	if v.BayesFactor != nil {
		d.BayesFactor = *v.BayesFactor
	}
	return nil
}

// Correct reports whether a prediction was made and matched the outcome.
func (d Decision) Correct() bool {
	return d.Predicted && d.Prediction == d.Event.Result
}

// ChunkName returns the canonical name of chunk n, e.g. "x00042".
func ChunkName(n int) string {
	return fmt.Sprintf("x%05d", n)
}
