package asyncmap

import "time"

// ThrottleFunc adapts a plain function to the Throttler interface.
type ThrottleFunc func(start time.Time, remaining int) bool

// ContinueMapChanges calls f.
func (f ThrottleFunc) ContinueMapChanges(start time.Time, remaining int) bool {
	return f(start, remaining)
}

// TimeBudget yields once a pass has been running for at least budget.
// A non-positive budget never yields.
func TimeBudget(budget time.Duration) Throttler {
	return ThrottleFunc(func(start time.Time, _ int) bool {
		return budget <= 0 || time.Since(start) < budget
	})
}

// CountBudget yields after limit entries have been processed in one pass.
// A non-positive limit never yields.
//
// Passes are told apart by their start time; the returned Throttler keeps per-pass state and
// must not be shared between Wrappers.
func CountBudget(limit int) Throttler {
	var (
		pass  time.Time
		count int
	)
	return ThrottleFunc(func(start time.Time, _ int) bool {
		if limit <= 0 {
			return true
		}
		if !start.Equal(pass) {
			pass = start
			count = 0
		}
		count++
		if count >= limit {
			count = 0
			return false
		}
		return true
	})
}

// AllOf continues only while every throttler agrees. Every throttler is consulted on each
// call so stateful ones stay in step.
func AllOf(throttlers ...Throttler) Throttler {
	return ThrottleFunc(func(start time.Time, remaining int) bool {
		ok := true
		for _, t := range throttlers {
			if !t.ContinueMapChanges(start, remaining) {
				ok = false
			}
		}
		return ok
	})
}
