package summary

import (
	"errors"
	"fmt"

	"github.com/hejijunhao/authbayes/internal/model"
)

// ErrNoSuccesses means the history has no successes, so P(F)/P(S) is undefined.
var ErrNoSuccesses = errors.New("summary: no successes before chunk")

// PriorRatio sums the results of summaries 0..chunk-1 and returns NF/NS.
func PriorRatio(d *Dir, chunk int) (float64, error) {
	var ns, nf int64
	for n := 0; n < chunk; n++ {
		s, err := d.Read(n)
		if err != nil {
			return 0, fmt.Errorf("prior: %w", err)
		}
		ns += s.Results.Success
		nf += s.Results.Fail
	}
	if ns == 0 {
		return 0, fmt.Errorf("%w %s", ErrNoSuccesses, model.ChunkName(chunk))
	}
	return float64(nf) / float64(ns), nil
}

// Aggregate sums the summaries of chunks start..end inclusive. Chunks
// without a predictions block contribute only to the results.
func Aggregate(d *Dir, start, end int) (model.FinalSummary, error) {
	if start < 0 || end < start {
		return model.FinalSummary{}, fmt.Errorf("summary: invalid chunk range %d..%d", start, end)
	}
	var out model.FinalSummary
	for n := start; n <= end; n++ {
		s, err := d.Read(n)
		if err != nil {
			return model.FinalSummary{}, err
		}
		out.Chunks++
		out.Results.Success += s.Results.Success
		out.Results.Fail += s.Results.Fail
		if s.Predictions != nil {
			out.Predictions = out.Predictions.Add(*s.Predictions)
		}
	}
	out.Percentages = Percentages(out.Predictions)
	return out, nil
}

// Percentages returns each tally bucket as a percentage of all
// predictions, or nil when there were none.
func Percentages(t model.Tally) *model.Percentages {
	total := float64(t.Total())
	if total == 0 {
		return nil
	}
	pct := func(n int64) float64 { return 100 * float64(n) / total }
	return &model.Percentages{
		CorrectSuccess:   pct(t.CorrectSuccess),
		CorrectFail:      pct(t.CorrectFail),
		IncorrectSuccess: pct(t.IncorrectSuccess),
		IncorrectFail:    pct(t.IncorrectFail),
		OverallCorrect:   pct(t.CorrectSuccess + t.CorrectFail),
		OverallIncorrect: pct(t.IncorrectSuccess + t.IncorrectFail),
	}
}
