package engine

import (
	"context"
	"time"

	"github.com/lazypower/tend/internal/activity"
	"github.com/lazypower/tend/internal/observability"
)

// MarkCompleted appends a completion to the activity's ledger and re-derives
// its reminder. A zero at means now; earlier times backdate the record.
//
// The record is committed before the reminder is touched. If the store
// rejects it, nothing changes and a *PersistenceError is returned. A gateway
// failure after the commit is reported in Result.Warning only.
//
// Calling it twice records two completions.
func (e *Engine) MarkCompleted(ctx context.Context, id, note string, at time.Time) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if !at.IsZero() {
		at = at.UTC().Truncate(time.Millisecond)
	}
	rec := activity.NewCompletion(a.ID, note, at, now)

	// Work on a copy so a failed commit leaves no in-memory trace.
	updated := a.Clone()
	updated.Ledger.Append(rec)
	updated.UpdatedAt = now

	if err := e.Store.AppendCompletion(ctx, rec, now); err != nil {
		return nil, &PersistenceError{Op: "append completion", Err: err}
	}
	observability.RecordCompletion()

	res := &Result{Activity: updated, Record: &rec}
	res.Reminder, res.Warning = e.Scheduler.Reschedule(ctx, updated)
	return res, nil
}
