package engine

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/lazypower/tend/internal/activity"
)

// Snapshot is an activity with its staleness computed at query time.
// DaysSince is only meaningful when Completed is true.
type Snapshot struct {
	Activity        activity.Activity
	State           activity.AgingState
	DaysSince       int
	Completed       bool
	LastCompletedAt time.Time
}

func (e *Engine) snapshot(a activity.Activity, now time.Time) Snapshot {
	s := Snapshot{
		Activity: a,
		State:    a.State(now, e.thresholds),
	}
	s.LastCompletedAt, s.Completed = a.LastCompletedAt()
	s.DaysSince, _ = a.DaysSince(now)
	return s
}

// Snapshot classifies a at the engine's current time.
func (e *Engine) Snapshot(a activity.Activity) Snapshot {
	return e.snapshot(a, e.now())
}

func (e *Engine) snapshots(acts []activity.Activity) []Snapshot {
	now := e.now()
	out := make([]Snapshot, len(acts))
	for i, a := range acts {
		out[i] = e.snapshot(a, now)
	}
	return out
}

// GetByIDs returns snapshots for the activities whose id is in ids.
// Storage errors yield an empty result.
func (e *Engine) GetByIDs(ctx context.Context, ids []string) []Snapshot {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil
	}

	acts, err := e.Store.ActivitiesByIDs(ctx, unique)
	if err != nil {
		log.Printf("lookup by ids: %v", err)
		return nil
	}
	return e.snapshots(acts)
}

// GetActive returns every unarchived activity.
func (e *Engine) GetActive(ctx context.Context) []Snapshot {
	acts, err := e.Store.ActiveActivities(ctx)
	if err != nil {
		log.Printf("lookup active: %v", err)
		return nil
	}
	return e.snapshots(acts)
}

// GetAll returns every activity, archived included. Unlike the lookups used
// by conversational callers it reports storage errors.
func (e *Engine) GetAll(ctx context.Context) ([]Snapshot, error) {
	acts, err := e.Store.ListActivities(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list activities", Err: err}
	}
	return e.snapshots(acts), nil
}

// GetMatching returns unarchived activities whose name contains text,
// ignoring case. An empty query matches nothing.
func (e *Engine) GetMatching(ctx context.Context, text string) []Snapshot {
	folded := activity.Fold(text)
	if folded == "" {
		return nil
	}
	acts, err := e.Store.MatchActivities(ctx, folded)
	if err != nil {
		log.Printf("lookup matching %q: %v", text, err)
		return nil
	}
	return e.snapshots(acts)
}

// GetOverdue returns the active activities that classify as stale.
func (e *Engine) GetOverdue(ctx context.Context) []Snapshot {
	var out []Snapshot
	for _, s := range e.GetActive(ctx) {
		if s.State == activity.Stale {
			out = append(out, s)
		}
	}
	return out
}

// Get returns one activity's snapshot.
func (e *Engine) Get(ctx context.Context, id string) (*Snapshot, error) {
	a, err := e.Store.GetActivity(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get activity", Err: err}
	}
	if a == nil {
		return nil, ErrNotFound
	}
	s := e.Snapshot(*a)
	return &s, nil
}

// DaysSinceLastCompleted returns whole days since the activity was last
// completed. ok is false when it never was.
func (e *Engine) DaysSinceLastCompleted(ctx context.Context, id string) (days int, ok bool, err error) {
	s, err := e.Get(ctx, id)
	if err != nil {
		return 0, false, err
	}
	return s.DaysSince, s.Completed, nil
}
