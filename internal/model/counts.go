package model

import (
	"fmt"
	"maps"
)

// Counts is one generation of window statistics: outcome totals and
// per-key outcome counts. Success must always equal the sum of
// SuccessByKey, and Fail the sum of FailByKey.
type Counts struct {
	Success      int64         `json:"ns"`
	Fail         int64         `json:"nf"`
	SuccessByKey map[Key]int64 `json:"s_by_key"`
	FailByKey    map[Key]int64 `json:"f_by_key"`
}

// NewCounts returns an empty window with allocated maps.
func NewCounts() Counts {
	return Counts{
		SuccessByKey: make(map[Key]int64),
		FailByKey:    make(map[Key]int64),
	}
}

// Add records one event of outcome r for key.
func (c *Counts) Add(key Key, r Result) error {
	switch r {
	case Success:
		if c.SuccessByKey == nil {
			c.SuccessByKey = make(map[Key]int64)
		}
		c.Success++
		c.SuccessByKey[key]++
	case Fail:
		if c.FailByKey == nil {
			c.FailByKey = make(map[Key]int64)
		}
		c.Fail++
		c.FailByKey[key]++
	default:
		return fmt.Errorf("model: invalid result %q", byte(r))
	}
	return nil
}

// Of returns the total and the per-key counts for outcome r.
func (c Counts) Of(r Result) (int64, map[Key]int64) {
	if r == Fail {
		return c.Fail, c.FailByKey
	}
	return c.Success, c.SuccessByKey
}

// Clone returns a deep copy of c. Nil maps become empty maps.
func (c Counts) Clone() Counts {
	out := Counts{
		Success:      c.Success,
		Fail:         c.Fail,
		SuccessByKey: make(map[Key]int64, len(c.SuccessByKey)),
		FailByKey:    make(map[Key]int64, len(c.FailByKey)),
	}
	maps.Copy(out.SuccessByKey, c.SuccessByKey)
	maps.Copy(out.FailByKey, c.FailByKey)
	return out
}

// Validate checks the window sum invariant and that no count is negative.
func (c Counts) Validate() error {
	for _, r := range []Result{Success, Fail} {
		total, byKey := c.Of(r)
		var sum int64
		for k, n := range byKey {
			if n <= 0 {
				return fmt.Errorf("model: %s count for key %q is %d", r, k, n)
			}
			sum += n
		}
		if sum != total {
			return fmt.Errorf("model: %s total %d does not match per-key sum %d", r, total, sum)
		}
	}
	return nil
}

// Equal reports whether two windows hold identical totals and mappings.
func (c Counts) Equal(o Counts) bool {
	return c.Success == o.Success && c.Fail == o.Fail &&
		maps.Equal(c.SuccessByKey, o.SuccessByKey) &&
		maps.Equal(c.FailByKey, o.FailByKey)
}
