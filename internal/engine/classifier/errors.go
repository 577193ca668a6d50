package classifier

import (
	"errors"
	"fmt"

	"github.com/hejijunhao/authbayes/internal/model"
)

// ErrInvalidResult is returned by Process for an event whose result is
// neither Success nor Fail.
var ErrInvalidResult = errors.New("classifier: invalid result")

// DegenerateStateError means a key has recent events of an outcome whose
// recent total is zero. The window bookkeeping is broken.
type DegenerateStateError struct {
	Key     model.Key
	Outcome model.Result
	Count   int64
}

func (e *DegenerateStateError) Error() string {
	return fmt.Sprintf("classifier: key %q has %d recent %s events but the recent %s total is zero",
		e.Key, e.Count, e.Outcome, e.Outcome)
}

// LengthMismatchError means the results and predictions sequences diverged.
type LengthMismatchError struct {
	Results     int
	Predictions int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("classifier: %d results but %d predictions", e.Results, e.Predictions)
}
