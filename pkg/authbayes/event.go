package authbayes

import "github.com/hejijunhao/authbayes/internal/model"

// Decision is the verdict for one event.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
//
// A key only ever seen failing predicts "F" for any positive prior, even
// when BayesFactor is at most 1.
type Decision struct {
	Time            string  `json:"time"`                 // First field of the line
	Key             string  `json:"key"`                  // Middle fields, comma-joined
	Result          string  `json:"result"`               // Actual outcome: "S" or "F"
	Predicted       bool    `json:"predicted"`            // False while only counting
	Prediction      string  `json:"prediction,omitempty"` // "S" or "F"
	Evidence        string  `json:"evidence,omitempty"`   // "measured", "uninformative" or "fail_only"
	LikelihoodRatio float64 `json:"likelihood_ratio"`     // P(key|F)/P(key|S)
	Prior           float64 `json:"prior"`                // Prior ratio P(F)/P(S) in effect
	BayesFactor     float64 `json:"bayes_factor"`         // Likelihood ratio times prior ratio
}

// Correct reports whether a prediction was made and matched the outcome.
func (d Decision) Correct() bool {
	return d.Predicted && d.Prediction == d.Result
}

// Window holds the per-key outcome counts of one chunk.
type Window struct {
	Success      int64            `json:"ns"`
	Fail         int64            `json:"nf"`
	SuccessByKey map[string]int64 `json:"s_by_key"`
	FailByKey    map[string]int64 `json:"f_by_key"`
}

// Summary holds a chunk's outcome totals and, when predicting, how the
// predictions fared.
type Summary struct {
	Success          int64 `json:"success"`
	Fail             int64 `json:"fail"`
	Predicted        bool  `json:"predicted"`
	CorrectSuccess   int64 `json:"correct_success"`
	CorrectFail      int64 `json:"correct_fail"`
	IncorrectSuccess int64 `json:"incorrect_success"`
	IncorrectFail    int64 `json:"incorrect_fail"`
}

func decisionFromModel(d model.Decision) Decision {
	out := Decision{
		Time:      d.Event.Time,
		Key:       string(d.Event.Key),
		Result:    d.Event.Result.String(),
		Predicted: d.Predicted,
	}
	if d.Predicted {
		out.Prediction = d.Prediction.String()
		out.Evidence = d.Evidence
		out.Prior = d.Prior
		out.LikelihoodRatio = d.LikelihoodRatio
		out.BayesFactor = d.BayesFactor
	}
	return out
}

func windowFromModel(c model.Counts) Window {
	w := Window{
		Success:      c.Success,
		Fail:         c.Fail,
		SuccessByKey: make(map[string]int64, len(c.SuccessByKey)),
		FailByKey:    make(map[string]int64, len(c.FailByKey)),
	}
	for k, n := range c.SuccessByKey {
		w.SuccessByKey[string(k)] = n
	}
	for k, n := range c.FailByKey {
		w.FailByKey[string(k)] = n
	}
	return w
}

func (w Window) toModel() model.Counts {
	c := model.NewCounts()
	c.Success = w.Success
	c.Fail = w.Fail
	for k, n := range w.SuccessByKey {
		c.SuccessByKey[model.Key(k)] = n
	}
	for k, n := range w.FailByKey {
		c.FailByKey[model.Key(k)] = n
	}
	return c
}

func summaryFromModel(s model.Summary) Summary {
	out := Summary{Success: s.Results.Success, Fail: s.Results.Fail}
	if t := s.Predictions; t != nil {
		out.Predicted = true
		out.CorrectSuccess = t.CorrectSuccess
		out.CorrectFail = t.CorrectFail
		out.IncorrectSuccess = t.IncorrectSuccess
		out.IncorrectFail = t.IncorrectFail
	}
	return out
}
