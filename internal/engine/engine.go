// Package engine is the activity lifecycle engine: it records completions,
// keeps each activity's reminder consistent with its ledger, and answers
// lookups with point-in-time staleness snapshots.
package engine

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/lazypower/tend/internal/activity"
	"github.com/lazypower/tend/internal/notify"
)

// Store is the persistence collaborator. Lookups return activities with
// their ledgers attached; GetActivity returns nil, nil for unknown ids.
type Store interface {
	ListActivities(ctx context.Context) ([]activity.Activity, error)
	ActiveActivities(ctx context.Context) ([]activity.Activity, error)
	ActivitiesByIDs(ctx context.Context, ids []string) ([]activity.Activity, error)
	MatchActivities(ctx context.Context, folded string) ([]activity.Activity, error)
	GetActivity(ctx context.Context, id string) (*activity.Activity, error)
	SaveActivity(ctx context.Context, a *activity.Activity) error
	AppendCompletion(ctx context.Context, rec activity.CompletionRecord, recordedAt time.Time) error
	DeleteActivity(ctx context.Context, id string) error
}

// Engine orchestrates completions, reminders and lookups.
type Engine struct {
	Store     Store
	Scheduler *Scheduler

	thresholds activity.Thresholds
	now        func() time.Time

	// mu serializes every mutation. Reads never take it.
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates an Engine. reminders may be nil, in which case the reminder
// table lives in memory only.
func New(st Store, reminders ReminderTable, gw notify.Gateway) *Engine {
	e := &Engine{
		Store:      st,
		Scheduler:  NewScheduler(gw, reminders),
		thresholds: activity.DefaultThresholds,
		stopCh:     make(chan struct{}),
	}
	e.SetClock(defaultClock)
	return e
}

// Store timestamps have millisecond resolution; keep in-memory values equal
// to what a fetch returns.
func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// SetClock replaces the engine's notion of now. Used by tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
	e.Scheduler.now = now
}

// SetThresholds configures the aging cutoffs.
func (e *Engine) SetThresholds(th activity.Thresholds) {
	e.thresholds = th
}

// Thresholds returns the aging cutoffs in use.
func (e *Engine) Thresholds() activity.Thresholds {
	return e.thresholds
}

// Result is the outcome of a mutation. Warning carries a non-fatal
// *SchedulingError; the mutation itself succeeded.
type Result struct {
	Activity *activity.Activity
	Record   *activity.CompletionRecord
	Reminder *activity.ReminderRequest
	Warning  error
}

// Patch lists attribute edits; nil fields are left alone.
type Patch struct {
	Name         *string
	IntervalDays *int
	Archived     *bool
}

// CreateActivity adds a new activity and arms its first reminder.
func (e *Engine) CreateActivity(ctx context.Context, name string, intervalDays int) (*Result, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if err := validateInterval(intervalDays); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a := activity.New(name, intervalDays, e.now())
	if err := e.Store.SaveActivity(ctx, a); err != nil {
		return nil, &PersistenceError{Op: "create activity", Err: err}
	}

	res := &Result{Activity: a}
	res.Reminder, res.Warning = e.Scheduler.Reschedule(ctx, a)
	return res, nil
}

// Update applies a patch. Any change reschedules the reminder: interval and
// archive changes move or clear it, and a rename changes its payload.
func (e *Engine) Update(ctx context.Context, id string, p Patch) (*Result, error) {
	var name string
	if p.Name != nil {
		var err error
		if name, err = validateName(*p.Name); err != nil {
			return nil, err
		}
	}
	if p.IntervalDays != nil {
		if err := validateInterval(*p.IntervalDays); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := a.Clone()
	if p.Name != nil {
		updated.Name = name
	}
	if p.IntervalDays != nil {
		updated.IntervalDays = *p.IntervalDays
	}
	if p.Archived != nil {
		updated.Archived = *p.Archived
	}
	updated.UpdatedAt = e.now()

	if err := e.Store.SaveActivity(ctx, updated); err != nil {
		return nil, &PersistenceError{Op: "save activity", Err: err}
	}

	res := &Result{Activity: updated}
	res.Reminder, res.Warning = e.Scheduler.Reschedule(ctx, updated)
	return res, nil
}

// Rename changes an activity's display name.
func (e *Engine) Rename(ctx context.Context, id, name string) (*Result, error) {
	return e.Update(ctx, id, Patch{Name: &name})
}

// SetInterval changes the target interval.
func (e *Engine) SetInterval(ctx context.Context, id string, days int) (*Result, error) {
	return e.Update(ctx, id, Patch{IntervalDays: &days})
}

// SetArchived archives or restores an activity. Restoring re-arms.
func (e *Engine) SetArchived(ctx context.Context, id string, archived bool) (*Result, error) {
	return e.Update(ctx, id, Patch{Archived: &archived})
}

// DeleteActivity cancels the activity's reminder and deletes it with its
// ledger.
func (e *Engine) DeleteActivity(ctx context.Context, id string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &Result{Activity: a}
	if err := e.Scheduler.Cancel(ctx, id); err != nil {
		res.Warning = err
	}
	if err := e.Store.DeleteActivity(ctx, id); err != nil {
		return nil, &PersistenceError{Op: "delete activity", Err: err}
	}
	return res, nil
}

// load fetches one activity for a mutation. Caller holds e.mu.
func (e *Engine) load(ctx context.Context, id string) (*activity.Activity, error) {
	a, err := e.Store.GetActivity(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get activity", Err: err}
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

// StartReconcileTimer reconciles once now and then on every interval until
// Stop is called.
func (e *Engine) StartReconcileTimer(interval time.Duration) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		report, err := e.Reconcile(ctx)
		if err != nil {
			log.Printf("reconcile error: %v", err)
			return
		}
		log.Printf("reconcile: %s", report)
	}

	run()

	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				run()
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

func validateInterval(days int) error {
	if days <= 0 || days > maxIntervalDays {
		return ErrInvalidInterval
	}
	return nil
}
