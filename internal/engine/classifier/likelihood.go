package classifier

import "github.com/hejijunhao/authbayes/internal/model"

// DefaultSentinel stands in for an infinite likelihood ratio when a key
// has recent failures but no recent successes.
const DefaultSentinel = 1e9

// Evidence names the branch that produced a likelihood ratio.
type Evidence int

const (
	// Measured is an exact P(key|F)/P(key|S).
	Measured Evidence = iota
	// Uninformative means the key is absent from the recency window; the
	// ratio is 1 so the posterior equals the prior.
	Uninformative
	// FailOnly means the key was only seen failing; the ratio is the sentinel.
	FailOnly
)

func (e Evidence) String() string {
	switch e {
	case Uninformative:
		return "uninformative"
	case FailOnly:
		return "fail_only"
	default:
		return "measured"
	}
}

// Likelihood is the outcome of LikelihoodRatio.
type Likelihood struct {
	Ratio    float64
	Evidence Evidence
}

// LikelihoodRatio estimates P(key|Fail)/P(key|Success) over the current and
// previous windows combined.
func (c *Classifier) LikelihoodRatio(key model.Key) (Likelihood, error) {
	likeS, err := c.recentLikelihood(key, model.Success)
	if err != nil {
		return Likelihood{}, err
	}
	likeF, err := c.recentLikelihood(key, model.Fail)
	if err != nil {
		return Likelihood{}, err
	}

	switch {
	case likeS == 0 && likeF == 0:
		return Likelihood{Ratio: 1, Evidence: Uninformative}, nil
	case likeS == 0:
		return Likelihood{Ratio: c.sentinel, Evidence: FailOnly}, nil
	default:
		return Likelihood{Ratio: likeF / likeS, Evidence: Measured}, nil
	}
}

// recentLikelihood returns the fraction of recent r-outcome events that
// belong to key. A zero total with zero key count yields 0.
func (c *Classifier) recentLikelihood(key model.Key, r model.Result) (float64, error) {
	currTotal, currByKey := c.curr.Of(r)
	prevTotal, prevByKey := c.prev.Of(r)
	n := currByKey[key] + prevByKey[key]
	total := currTotal + prevTotal
	if total == 0 {
		if n != 0 {
			return 0, &DegenerateStateError{Key: key, Outcome: r, Count: n}
		}
		return 0, nil
	}
	return float64(n) / float64(total), nil
}

// decide applies the Bayes factor rule. Ties go to Success. A FailOnly
// ratio predicts Fail for any positive prior, however small, so the
// returned factor can be at most 1 on a Fail prediction.
func decide(lr Likelihood, prior float64) (model.Result, float64) {
	if prior == 0 {
		return model.Success, 0
	}
	b := lr.Ratio * prior
	if lr.Evidence == FailOnly && prior > 0 {
		return model.Fail, b
	}
	if b <= 1 {
		return model.Success, b
	}
	return model.Fail, b
}
