package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/hejijunhao/authbayes/internal/model"
)

// RatesTSVHeader is the header line of the rate series written by WriteRates.
const RatesTSVHeader = "time\tsuccess\tfail"

// Rate counts the events sharing one time token.
type Rate struct {
	Time    string
	Success int
	Fail    int
}

// Study cross-checks a chunk's counts snapshot against its raw log and
// computes summary statistics.
func Study(c model.Counts, l model.RawLog) (model.ChunkStats, error) {
	if err := c.Validate(); err != nil {
		return model.ChunkStats{}, fmt.Errorf("study: %w", err)
	}
	if c.Success != int64(len(l.Success)) {
		return model.ChunkStats{}, fmt.Errorf("study: %d successes counted but %d recorded", c.Success, len(l.Success))
	}
	if c.Fail != int64(len(l.Fail)) {
		return model.ChunkStats{}, fmt.Errorf("study: %d failures counted but %d recorded", c.Fail, len(l.Fail))
	}

	st := model.ChunkStats{
		Successes:         c.Success,
		Failures:          c.Fail,
		UniqueSuccessKeys: len(c.SuccessByKey),
		UniqueFailKeys:    len(c.FailByKey),
	}
	for k, n := range c.SuccessByKey {
		st.MaxSuccessPerKey = max(st.MaxSuccessPerKey, n)
		if _, ok := c.FailByKey[k]; ok {
			st.KeysWithBoth++
		}
	}
	for _, n := range c.FailByKey {
		st.MaxFailPerKey = max(st.MaxFailPerKey, n)
	}
	for _, r := range Rates(l) {
		st.MaxSuccessPerSecond = max(st.MaxSuccessPerSecond, r.Success)
		st.MaxFailPerSecond = max(st.MaxFailPerSecond, r.Fail)
	}
	return st, nil
}

// Rates groups raw events by time token. Rows are ordered numerically when
// every token is an integer, lexically otherwise.
func Rates(l model.RawLog) []Rate {
	byTime := make(map[string]*Rate)
	get := func(t string) *Rate {
		r, ok := byTime[t]
		if !ok {
			r = &Rate{Time: t}
			byTime[t] = r
		}
		return r
	}
	for _, e := range l.Success {
		get(e.Time).Success++
	}
	for _, e := range l.Fail {
		get(e.Time).Fail++
	}

	out := make([]Rate, 0, len(byTime))
	numeric := true
	for t, r := range byTime {
		if _, err := strconv.ParseInt(t, 10, 64); err != nil {
			numeric = false
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if numeric {
			a, _ := strconv.ParseInt(out[i].Time, 10, 64)
			b, _ := strconv.ParseInt(out[j].Time, 10, 64)
			return a < b
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// WriteRates writes the rate series as TSV with a header line.
func WriteRates(w io.Writer, rates []Rate) error {
	if _, err := fmt.Fprintln(w, RatesTSVHeader); err != nil {
		return err
	}
	for _, r := range rates {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\n", r.Time, r.Success, r.Fail); err != nil {
			return err
		}
	}
	return nil
}
