// Package report renders run-wide totals and per-chunk sanity statistics.
package report

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hejijunhao/authbayes/internal/model"
)

// Render prints the aggregated totals for humans, grouping digits the way
// the given language does.
func Render(w io.Writer, s model.FinalSummary, tag language.Tag) error {
	p := message.NewPrinter(tag)
	t := s.Predictions

	lines := []struct {
		format string
		args   []any
	}{
		{"Chunks summarized: %d\n", []any{s.Chunks}},
		{"Total Successes: %d\n", []any{s.Results.Success}},
		{"Total Failures: %d\n", []any{s.Results.Fail}},
		{"Total predictions made: %d\n", []any{t.Total()}},
	}
	for _, l := range lines {
		if _, err := p.Fprintf(w, l.format, l.args...); err != nil {
			return err
		}
	}
	if s.Percentages == nil {
		return nil
	}

	pc := s.Percentages
	lines = []struct {
		format string
		args   []any
	}{
		{"Correct Success predictions: %d (%.2f%%)\n", []any{t.CorrectSuccess, pc.CorrectSuccess}},
		{"Correct Fail predictions: %d (%.2f%%)\n", []any{t.CorrectFail, pc.CorrectFail}},
		{"Incorrect Success predictions (result was Fail): %d (%.2f%%)\n", []any{t.IncorrectSuccess, pc.IncorrectSuccess}},
		{"Incorrect Fail predictions (result was Success): %d (%.2f%%)\n", []any{t.IncorrectFail, pc.IncorrectFail}},
		{"Overall Correct predictions: %d (%.2f%%)\n", []any{t.CorrectSuccess + t.CorrectFail, pc.OverallCorrect}},
		{"Overall Incorrect predictions: %d (%.2f%%)\n", []any{t.IncorrectSuccess + t.IncorrectFail, pc.OverallIncorrect}},
	}
	for _, l := range lines {
		if _, err := p.Fprintf(w, l.format, l.args...); err != nil {
			return err
		}
	}
	return nil
}

// RenderStats prints chunk statistics for humans.
func RenderStats(w io.Writer, name string, st model.ChunkStats) error {
	p := message.NewPrinter(language.English)
	_, err := p.Fprintf(w,
		"Chunk: %s\n"+
			"Successes: %d\n"+
			"Failures: %d\n"+
			"Unique successful keys: %d\n"+
			"Unique failed keys: %d\n"+
			"Keys with Success and Failure: %d\n"+
			"Most Successes for one key: %d\n"+
			"Most Failures for one key: %d\n"+
			"Most Successes in one second: %d\n"+
			"Most Failures in one second: %d\n",
		name, st.Successes, st.Failures,
		st.UniqueSuccessKeys, st.UniqueFailKeys, st.KeysWithBoth,
		st.MaxSuccessPerKey, st.MaxFailPerKey,
		st.MaxSuccessPerSecond, st.MaxFailPerSecond,
	)
	return err
}
