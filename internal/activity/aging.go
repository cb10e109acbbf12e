package activity

import (
	"fmt"
	"math"
	"time"
)

// AgingState is the derived staleness of an activity. It is computed on every
// read and never stored.
type AgingState string

const (
	Fresh AgingState = "fresh"
	Aging AgingState = "aging"
	Stale AgingState = "stale"
)

// Thresholds are the cutoffs, as fractions of the interval, where an activity
// stops being fresh and where it becomes stale.
type Thresholds struct {
	FreshFraction float64
	StaleFraction float64
}

// DefaultThresholds: fresh through half the interval, stale past the full interval.
var DefaultThresholds = Thresholds{FreshFraction: 0.5, StaleFraction: 1.0}

// Validate rejects thresholds that would make the states overlap.
func (th Thresholds) Validate() error {
	if th.FreshFraction < 0 {
		return fmt.Errorf("fresh fraction %v must not be negative", th.FreshFraction)
	}
	if th.StaleFraction <= 0 {
		return fmt.Errorf("stale fraction %v must be positive", th.StaleFraction)
	}
	if th.FreshFraction > th.StaleFraction {
		return fmt.Errorf("fresh fraction %v exceeds stale fraction %v", th.FreshFraction, th.StaleFraction)
	}
	return nil
}

// Classify maps an interval and the last completion to a state at now.
// intervalDays must be positive; edits enforce that before anything is saved.
func (th Thresholds) Classify(intervalDays int, last time.Time, completed bool, now time.Time) AgingState {
	// No history is always the most overdue.
	if !completed {
		return Stale
	}

	elapsed := elapsedDays(last, now)
	freshCutoff := cutoff(intervalDays, th.FreshFraction)
	staleCutoff := cutoff(intervalDays, th.StaleFraction)

	switch {
	case elapsed <= freshCutoff:
		return Fresh
	case elapsed <= staleCutoff:
		return Aging
	default:
		return Stale
	}
}

// Classify uses DefaultThresholds.
func Classify(intervalDays int, last time.Time, completed bool, now time.Time) AgingState {
	return DefaultThresholds.Classify(intervalDays, last, completed, now)
}

func cutoff(intervalDays int, fraction float64) int {
	return int(math.Floor(float64(intervalDays) * fraction))
}
