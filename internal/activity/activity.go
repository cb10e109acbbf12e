// Package activity holds the tracked-activity model: the completion ledger and
// the aging classifier that turns a ledger into a staleness state.
package activity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Activity is a user-defined recurring task.
type Activity struct {
	ID           string
	Name         string
	IntervalDays int
	Archived     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Ledger       Ledger
}

// CompletionRecord marks one completion of an activity. Records are never
// edited after creation.
type CompletionRecord struct {
	ID          string
	ActivityID  string
	CompletedAt time.Time
	Note        string
}

// New returns a fresh, unarchived activity with an empty ledger.
func New(name string, intervalDays int, now time.Time) *Activity {
	return &Activity{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		IntervalDays: intervalDays,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewCompletion builds a record for the activity. A zero at means now.
func NewCompletion(activityID, note string, at, now time.Time) CompletionRecord {
	if at.IsZero() {
		at = now
	}
	return CompletionRecord{
		ID:          uuid.NewString(),
		ActivityID:  activityID,
		CompletedAt: at,
		Note:        strings.TrimSpace(note),
	}
}

// LastCompletedAt reports the newest completion; ok is false when the
// activity has never been completed.
func (a *Activity) LastCompletedAt() (time.Time, bool) {
	return a.Ledger.LastCompletedAt()
}

// DaysSince returns whole days since the last completion.
func (a *Activity) DaysSince(now time.Time) (int, bool) {
	return a.Ledger.DaysSince(now)
}

// State classifies the activity at now.
func (a *Activity) State(now time.Time, th Thresholds) AgingState {
	last, ok := a.Ledger.LastCompletedAt()
	return th.Classify(a.IntervalDays, last, ok, now)
}

// Interval returns the target interval as a duration.
func (a *Activity) Interval() time.Duration {
	return time.Duration(a.IntervalDays) * Day
}

// Clone returns a copy that shares no ledger storage with a.
func (a *Activity) Clone() *Activity {
	c := *a
	c.Ledger = a.Ledger.clone()
	return &c
}
