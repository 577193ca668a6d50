package model

// ResultCounts is the "results" block of a summary record.
type ResultCounts struct {
	Success int64 `json:"Success"`
	Fail    int64 `json:"Fail"`
}

// Tally counts predictions against actual outcomes.
type Tally struct {
	CorrectSuccess   int64 `json:"Correct_Success"`   // predicted S, was S
	CorrectFail      int64 `json:"Correct_Fail"`      // predicted F, was F
	IncorrectSuccess int64 `json:"Incorrect_Success"` // predicted S, was F
	IncorrectFail    int64 `json:"Incorrect_Fail"`    // predicted F, was S
}

// Total returns the number of predictions tallied.
func (t Tally) Total() int64 {
	return t.CorrectSuccess + t.CorrectFail + t.IncorrectSuccess + t.IncorrectFail
}

// Add returns the field-wise sum of t and o.
func (t Tally) Add(o Tally) Tally {
	return Tally{
		CorrectSuccess:   t.CorrectSuccess + o.CorrectSuccess,
		CorrectFail:      t.CorrectFail + o.CorrectFail,
		IncorrectSuccess: t.IncorrectSuccess + o.IncorrectSuccess,
		IncorrectFail:    t.IncorrectFail + o.IncorrectFail,
	}
}

// Summary is the per-chunk record consumed by the driver (prior) and the
// aggregator. Field names are stable across chunks.
type Summary struct {
	Results     ResultCounts `json:"results"`
	Predictions *Tally       `json:"predictions,omitempty"`
}

// Percentages expresses a Tally relative to the number of predictions.
type Percentages struct {
	CorrectSuccess   float64 `json:"Correct_Success"`
	CorrectFail      float64 `json:"Correct_Fail"`
	IncorrectSuccess float64 `json:"Incorrect_Success"`
	IncorrectFail    float64 `json:"Incorrect_Fail"`
	OverallCorrect   float64 `json:"Overall_Correct"`
	OverallIncorrect float64 `json:"Overall_Incorrect"`
}

// FinalSummary is the aggregate of many chunk summaries.
type FinalSummary struct {
	Chunks      int          `json:"chunks"`
	Results     ResultCounts `json:"results"`
	Predictions Tally        `json:"predictions"`
	Percentages *Percentages `json:"percentages,omitempty"`
}

// ChunkStats describes one chunk's counts and raw log for sanity checking.
type ChunkStats struct {
	Successes           int64 `json:"successes"`
	Failures            int64 `json:"failures"`
	UniqueSuccessKeys   int   `json:"unique_success_keys"`
	UniqueFailKeys      int   `json:"unique_fail_keys"`
	KeysWithBoth        int   `json:"keys_with_both"`
	MaxSuccessPerKey    int64 `json:"max_success_per_key"`
	MaxFailPerKey       int64 `json:"max_fail_per_key"`
	MaxSuccessPerSecond int   `json:"max_success_per_second"`
	MaxFailPerSecond    int   `json:"max_fail_per_second"`
}
