package classifier

import (
	"fmt"

	"github.com/hejijunhao/authbayes/internal/model"
)

// Option configures a Classifier.
type Option func(*Classifier)

// WithPrediction enables or disables prediction. Default: enabled.
func WithPrediction(enabled bool) Option {
	return func(c *Classifier) { c.predict = enabled }
}

// WithFullTabulation records every event in the raw log. Default: disabled.
func WithFullTabulation(enabled bool) Option {
	return func(c *Classifier) { c.fullTabulate = enabled }
}

// WithSentinel sets the likelihood ratio reported for keys seen only
// failing. Non-positive values are ignored. Default: DefaultSentinel.
func WithSentinel(v float64) Option {
	return func(c *Classifier) {
		if v > 0 {
			c.sentinel = v
		}
	}
}

// Classifier predicts the outcome of authentication events from a
// two-generation window of per-key Success/Fail counts. Events must be
// processed in log order. Not safe for concurrent use.
type Classifier struct {
	prior        float64
	predict      bool
	fullTabulate bool
	sentinel     float64

	curr model.Counts
	prev model.Counts

	results     []model.Result
	predictions []model.Result
	factors     []float64
	raw         model.RawLog
}

// New creates a Classifier with the given prior ratio P(Fail)/P(Success).
func New(prior float64, opts ...Option) *Classifier {
	c := &Classifier{
		prior:    prior,
		predict:  true,
		sentinel: DefaultSentinel,
		curr:     model.NewCounts(),
		prev:     model.NewCounts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Process records one event. When prediction is enabled the prediction is
// made from the counts as they were before this event.
func (c *Classifier) Process(ev model.Event) (model.Decision, error) {
	if !ev.Result.Valid() {
		return model.Decision{}, fmt.Errorf("%w %q", ErrInvalidResult, byte(ev.Result))
	}

	d := model.Decision{Event: ev}
	if c.predict {
		lr, err := c.LikelihoodRatio(ev.Key)
		if err != nil {
			return model.Decision{}, err
		}
		d.Predicted = true
		d.Evidence = lr.Evidence.String()
		d.LikelihoodRatio = lr.Ratio
		d.Prior = c.prior
		d.Prediction, d.BayesFactor = decide(lr, c.prior)
	}

	if err := c.curr.Add(ev.Key, ev.Result); err != nil {
		return model.Decision{}, err
	}
	c.results = append(c.results, ev.Result)
	if d.Predicted {
		c.predictions = append(c.predictions, d.Prediction)
		c.factors = append(c.factors, d.BayesFactor)
	}
	if c.fullTabulate {
		if ev.Result == model.Success {
			c.raw.Success = append(c.raw.Success, ev)
		} else {
			c.raw.Fail = append(c.raw.Fail, ev)
		}
	}
	return d, nil
}

// Rollover closes the current chunk: current counts become the previous
// window, current counts and run outputs are cleared and the prior is
// replaced. Anything older than the previous window is dropped.
func (c *Classifier) Rollover(prior float64) {
	c.prev = c.curr
	c.curr = model.NewCounts()
	c.resetRun(prior)
}

// RolloverFrom is Rollover with the previous window taken from a restored
// snapshot instead of the in-memory current window.
func (c *Classifier) RolloverFrom(prior float64, prev model.Counts) {
	c.prev = prev.Clone()
	c.curr = model.NewCounts()
	c.resetRun(prior)
}

// LoadPrevious replaces the previous window without touching anything else.
func (c *Classifier) LoadPrevious(prev model.Counts) {
	c.prev = prev.Clone()
}

func (c *Classifier) resetRun(prior float64) {
	c.prior = prior
	c.results = nil
	c.predictions = nil
	c.factors = nil
	c.raw = model.RawLog{}
}

// PriorRatio returns the prior ratio in effect.
func (c *Classifier) PriorRatio() float64 { return c.prior }

// Predicting reports whether prediction is enabled.
func (c *Classifier) Predicting() bool { return c.predict }

// FullTabulation reports whether the raw log is being recorded.
func (c *Classifier) FullTabulation() bool { return c.fullTabulate }

// Current returns a copy of the current window counts.
func (c *Classifier) Current() model.Counts { return c.curr.Clone() }

// Previous returns a copy of the previous window counts.
func (c *Classifier) Previous() model.Counts { return c.prev.Clone() }

// RawLog returns a copy of the events recorded under full tabulation.
func (c *Classifier) RawLog() model.RawLog { return c.raw.Clone() }

// Results returns the observed outcomes of the current chunk in order.
func (c *Classifier) Results() []model.Result {
	return append([]model.Result(nil), c.results...)
}

// Predictions returns the predictions of the current chunk in order.
func (c *Classifier) Predictions() []model.Result {
	return append([]model.Result(nil), c.predictions...)
}

// BayesFactors returns the Bayes factor behind each prediction.
func (c *Classifier) BayesFactors() []float64 {
	return append([]float64(nil), c.factors...)
}

// Tally compares predictions with results for the current chunk.
func (c *Classifier) Tally() (model.Tally, error) {
	return Tally(c.results, c.predictions)
}

// Summary builds the chunk summary record. Predictions are tallied only
// when prediction is enabled.
func (c *Classifier) Summary() (model.Summary, error) {
	s := model.Summary{
		Results: model.ResultCounts{Success: c.curr.Success, Fail: c.curr.Fail},
	}
	if c.predict {
		t, err := c.Tally()
		if err != nil {
			return model.Summary{}, err
		}
		s.Predictions = &t
	}
	return s, nil
}

// Tally counts correct and incorrect predictions. The two sequences must
// have equal length.
func Tally(results, predictions []model.Result) (model.Tally, error) {
	if len(results) != len(predictions) {
		return model.Tally{}, &LengthMismatchError{Results: len(results), Predictions: len(predictions)}
	}
	var t model.Tally
	for i, r := range results {
		switch p := predictions[i]; {
		case p == model.Success && r == model.Success:
			t.CorrectSuccess++
		case p == model.Fail && r == model.Fail:
			t.CorrectFail++
		case p == model.Success && r == model.Fail:
			t.IncorrectSuccess++
		case p == model.Fail && r == model.Success:
			t.IncorrectFail++
		}
	}
	return t, nil
}
