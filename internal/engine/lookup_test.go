package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lazypower/tend/internal/activity"
)

func ids(snaps []Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Activity.ID
	}
	return out
}

func TestGetByIDs(t *testing.T) {
	e, _, _, clock := testEngine(t)
	ctx := context.Background()

	a := mustCreate(t, e, "A", 1)
	clock.advance(time.Minute)
	mustCreate(t, e, "B", 1)
	clock.advance(time.Minute)
	c := mustCreate(t, e, "C", 1)

	got := ids(e.GetByIDs(ctx, []string{c.ID, a.ID, c.ID, "missing", ""}))
	if len(got) != 2 || got[0] != a.ID || got[1] != c.ID {
		t.Errorf("GetByIDs = %v, want [%s %s]", got, a.ID, c.ID)
	}
	if got := e.GetByIDs(ctx, nil); len(got) != 0 {
		t.Errorf("GetByIDs(nil) = %d results", len(got))
	}
}

func TestGetMatching(t *testing.T) {
	e, _, _, clock := testEngine(t)
	ctx := context.Background()

	yoga := mustCreate(t, e, "Morning Yoga", 2)
	clock.advance(time.Minute)
	mustCreate(t, e, "yoga stretch", 3)
	mustCreate(t, e, "Run", 3)
	old := mustCreate(t, e, "Hot yoga", 7)
	if _, err := e.SetArchived(ctx, old.ID, true); err != nil {
		t.Fatal(err)
	}

	got := e.GetMatching(ctx, "YOGA")
	if len(got) != 2 {
		t.Fatalf("GetMatching(YOGA) = %d results, want 2", len(got))
	}
	if got[0].Activity.ID != yoga.ID {
		t.Errorf("first match = %q", got[0].Activity.Name)
	}
	for _, q := range []string{"", "   "} {
		if got := e.GetMatching(ctx, q); len(got) != 0 {
			t.Errorf("GetMatching(%q) = %d results, want 0", q, len(got))
		}
	}
	if got := e.GetMatching(ctx, "swim"); len(got) != 0 {
		t.Errorf("GetMatching(swim) = %d results", len(got))
	}
}

func TestGetActiveAndAll(t *testing.T) {
	e, _, _, _ := testEngine(t)
	ctx := context.Background()

	mustCreate(t, e, "Keep", 1)
	gone := mustCreate(t, e, "Shelve", 1)
	if _, err := e.SetArchived(ctx, gone.ID, true); err != nil {
		t.Fatal(err)
	}

	if n := len(e.GetActive(ctx)); n != 1 {
		t.Errorf("GetActive = %d, want 1", n)
	}
	all, err := e.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("GetAll = %d, want 2", len(all))
	}
}

func TestSnapshotStates(t *testing.T) {
	e, _, _, clock := testEngine(t)
	ctx := context.Background()

	never := mustCreate(t, e, "Never", 10)
	fresh := mustCreate(t, e, "Fresh", 10)
	aging := mustCreate(t, e, "Aging", 10)
	stale := mustCreate(t, e, "Stale", 10)

	clock.advance(30 * activity.Day)
	for _, c := range []struct {
		id  string
		ago int
	}{{fresh.ID, 5}, {aging.ID, 6}, {stale.ID, 11}} {
		at := clock.t.Add(-time.Duration(c.ago) * activity.Day)
		if _, err := e.MarkCompleted(ctx, c.id, "", at); err != nil {
			t.Fatal(err)
		}
	}

	want := map[string]activity.AgingState{
		never.ID: activity.Stale,
		fresh.ID: activity.Fresh,
		aging.ID: activity.Aging,
		stale.ID: activity.Stale,
	}
	for _, s := range e.GetActive(ctx) {
		if s.State != want[s.Activity.ID] {
			t.Errorf("%s: State = %s, want %s", s.Activity.Name, s.State, want[s.Activity.ID])
		}
	}

	overdue := e.GetOverdue(ctx)
	if len(overdue) != 2 {
		t.Errorf("GetOverdue = %d, want 2", len(overdue))
	}

	s, err := e.Get(ctx, never.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.Completed || s.DaysSince != 0 {
		t.Errorf("never-completed snapshot = %+v", s)
	}
}

func TestSnapshotThresholdsApply(t *testing.T) {
	e, _, _, clock := testEngine(t)
	ctx := context.Background()
	a := mustCreate(t, e, "Read", 10)
	if _, err := e.MarkCompleted(ctx, a.ID, "", clock.t.Add(-4*activity.Day)); err != nil {
		t.Fatal(err)
	}

	s, _ := e.Get(ctx, a.ID)
	if s.State != activity.Fresh {
		t.Fatalf("default State = %s, want fresh", s.State)
	}
	e.SetThresholds(activity.Thresholds{FreshFraction: 0.2, StaleFraction: 0.3})
	s, _ = e.Get(ctx, a.ID)
	if s.State != activity.Stale {
		t.Errorf("tight thresholds State = %s, want stale", s.State)
	}
}

func TestDaysSinceLastCompleted(t *testing.T) {
	e, _, _, clock := testEngine(t)
	ctx := context.Background()
	a := mustCreate(t, e, "Laundry", 7)

	if days, ok, err := e.DaysSinceLastCompleted(ctx, a.ID); err != nil || ok || days != 0 {
		t.Errorf("never completed = %d, %v, %v", days, ok, err)
	}

	if _, err := e.MarkCompleted(ctx, a.ID, "", clock.t.Add(-3*activity.Day-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if days, ok, _ := e.DaysSinceLastCompleted(ctx, a.ID); !ok || days != 3 {
		t.Errorf("DaysSince = %d, %v, want 3, true", days, ok)
	}

	if _, _, err := e.DaysSinceLastCompleted(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id error = %v", err)
	}
}

func TestLookupsOverBrokenStore(t *testing.T) {
	e, db, _, clock := testEngine(t)
	ctx := context.Background()
	a := mustCreate(t, e, "Water Plants", 1)
	clock.advance(3 * activity.Day)

	db.Close()

	if got := e.GetActive(ctx); len(got) != 0 {
		t.Errorf("GetActive = %d results, want 0", len(got))
	}
	if got := e.GetMatching(ctx, "water"); len(got) != 0 {
		t.Errorf("GetMatching = %d results, want 0", len(got))
	}
	if got := e.GetByIDs(ctx, []string{a.ID}); len(got) != 0 {
		t.Errorf("GetByIDs = %d results, want 0", len(got))
	}
	if got := e.GetOverdue(ctx); len(got) != 0 {
		t.Errorf("GetOverdue = %d results, want 0", len(got))
	}

	var pe *PersistenceError
	if _, err := e.Get(ctx, a.ID); !errors.As(err, &pe) {
		t.Errorf("Get error = %v, want *PersistenceError", err)
	}
	if _, _, err := e.DaysSinceLastCompleted(ctx, a.ID); !errors.As(err, &pe) {
		t.Errorf("DaysSinceLastCompleted error = %v, want *PersistenceError", err)
	}
	if _, err := e.GetAll(ctx); !errors.As(err, &pe) {
		t.Errorf("GetAll error = %v, want *PersistenceError", err)
	}
}
