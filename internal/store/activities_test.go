package store

import (
	"context"
	"testing"
	"time"

	"github.com/lazypower/tend/internal/activity"
)

var base = time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

func saveActivity(t *testing.T, db *DB, name string, interval int, offset time.Duration) *activity.Activity {
	t.Helper()
	a := activity.New(name, interval, base.Add(offset))
	if err := db.SaveActivity(context.Background(), a); err != nil {
		t.Fatalf("SaveActivity(%s): %v", name, err)
	}
	return a
}

func TestSaveAndGetActivity(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a := saveActivity(t, db, "Water Plants", 7, 0)

	got, err := db.GetActivity(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if got == nil {
		t.Fatal("expected activity, got nil")
	}
	if got.Name != "Water Plants" || got.IntervalDays != 7 || got.Archived {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, a.CreatedAt)
	}
	if got.Ledger.Len() != 0 {
		t.Errorf("ledger len = %d, want 0", got.Ledger.Len())
	}
}

func TestGetActivityNotFound(t *testing.T) {
	db := testDB(t)

	got, err := db.GetActivity(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestSaveActivityUpdates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a := saveActivity(t, db, "Stretch", 2, 0)
	a.Name = "Evening Stretch"
	a.IntervalDays = 3
	a.Archived = true
	if err := db.SaveActivity(ctx, a); err != nil {
		t.Fatalf("SaveActivity update: %v", err)
	}

	got, _ := db.GetActivity(ctx, a.ID)
	if got.Name != "Evening Stretch" || got.IntervalDays != 3 || !got.Archived {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestAppendCompletion(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a := saveActivity(t, db, "Run", 3, 0)
	first := activity.NewCompletion(a.ID, "5k", base.Add(time.Hour), base)
	second := activity.NewCompletion(a.ID, "", base.Add(time.Hour), base)
	for _, rec := range []activity.CompletionRecord{first, second} {
		if err := db.AppendCompletion(ctx, rec, base.Add(2*time.Hour)); err != nil {
			t.Fatalf("AppendCompletion: %v", err)
		}
	}

	got, _ := db.GetActivity(ctx, a.ID)
	if !got.UpdatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, base.Add(2*time.Hour))
	}
	if got.Ledger.Len() != 2 {
		t.Fatalf("ledger len = %d, want 2", got.Ledger.Len())
	}
	recs := got.Ledger.Records()
	if recs[0].Note != "5k" {
		t.Errorf("note = %q, want 5k", recs[0].Note)
	}
	last, ok := got.LastCompletedAt()
	if !ok || !last.Equal(base.Add(time.Hour)) {
		t.Errorf("LastCompletedAt = %v, %v", last, ok)
	}
}

func TestAppendCompletionUnknownActivity(t *testing.T) {
	db := testDB(t)

	rec := activity.NewCompletion("ghost", "", base, base)
	if err := db.AppendCompletion(context.Background(), rec, base); err == nil {
		t.Fatal("expected error appending to unknown activity")
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM completions").Scan(&count)
	if count != 0 {
		t.Errorf("completions = %d, want 0", count)
	}
}

func TestActiveActivities(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	saveActivity(t, db, "A", 1, 0)
	b := saveActivity(t, db, "B", 1, time.Minute)
	b.Archived = true
	db.SaveActivity(ctx, b)
	saveActivity(t, db, "C", 1, 2*time.Minute)

	acts, err := db.ActiveActivities(ctx)
	if err != nil {
		t.Fatalf("ActiveActivities: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("got %d activities, want 2", len(acts))
	}
	if acts[0].Name != "A" || acts[1].Name != "C" {
		t.Errorf("got %s, %s; want A, C", acts[0].Name, acts[1].Name)
	}

	all, _ := db.ListActivities(ctx)
	if len(all) != 3 {
		t.Errorf("ListActivities = %d, want 3", len(all))
	}
}

func TestActivitiesByIDs(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a := saveActivity(t, db, "a", 1, 0)
	saveActivity(t, db, "b", 1, time.Minute)
	c := saveActivity(t, db, "c", 1, 2*time.Minute)
	db.AppendCompletion(ctx, activity.NewCompletion(c.ID, "", base, base), base)

	acts, err := db.ActivitiesByIDs(ctx, []string{c.ID, a.ID, "unknown"})
	if err != nil {
		t.Fatalf("ActivitiesByIDs: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("got %d, want 2", len(acts))
	}
	for _, got := range acts {
		if got.Name == "b" {
			t.Error("unexpected activity b")
		}
		if got.Name == "c" && got.Ledger.Len() != 1 {
			t.Errorf("c ledger len = %d, want 1", got.Ledger.Len())
		}
	}

	empty, err := db.ActivitiesByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty ids: got %v, %v", empty, err)
	}
}

func TestMatchActivities(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	saveActivity(t, db, "Morning Yoga", 1, 0)
	archived := saveActivity(t, db, "Yoga Retreat", 30, time.Minute)
	archived.Archived = true
	db.SaveActivity(ctx, archived)
	saveActivity(t, db, "Run", 2, 2*time.Minute)
	saveActivity(t, db, "Straßenfest planen", 14, 3*time.Minute)

	acts, err := db.MatchActivities(ctx, activity.Fold("YOGA"))
	if err != nil {
		t.Fatalf("MatchActivities: %v", err)
	}
	if len(acts) != 1 || acts[0].Name != "Morning Yoga" {
		t.Errorf("got %+v, want only Morning Yoga", acts)
	}

	acts, _ = db.MatchActivities(ctx, activity.Fold("STRASSE"))
	if len(acts) != 1 {
		t.Errorf("folded match for STRASSE = %d, want 1", len(acts))
	}
}

func TestDeleteActivity(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a := saveActivity(t, db, "Run", 3, 0)
	db.AppendCompletion(ctx, activity.NewCompletion(a.ID, "", base, base), base)
	db.PutReminder(ctx, activity.ReminderRequest{
		ActivityID: a.ID, RequestID: activity.RequestIDFor(a.ID),
		FireAt: base.Add(72 * time.Hour), ArmedAt: base,
	})

	if err := db.DeleteActivity(ctx, a.ID); err != nil {
		t.Fatalf("DeleteActivity: %v", err)
	}

	got, _ := db.GetActivity(ctx, a.ID)
	if got != nil {
		t.Error("activity still present")
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM completions").Scan(&count)
	if count != 0 {
		t.Errorf("completion rows = %d, want 0", count)
	}

	// The reminder row outlives the activity until its cancel is confirmed.
	rems, err := db.ListReminders(ctx)
	if err != nil {
		t.Fatalf("ListReminders: %v", err)
	}
	if len(rems) != 1 || rems[0].ActivityID != a.ID {
		t.Errorf("reminders = %+v, want the orphan for %s", rems, a.ID)
	}
}
