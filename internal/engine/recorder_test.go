package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lazypower/tend/internal/activity"
	"github.com/lazypower/tend/internal/notify"
	"github.com/lazypower/tend/internal/store"
)

func TestMarkCompletedWaterPlants(t *testing.T) {
	e, db, gw, clock := testEngine(t)
	ctx := context.Background()
	a := mustCreate(t, e, "Water Plants", 7)

	clock.advance(3 * activity.Day)
	res, err := e.MarkCompleted(ctx, a.ID, "", time.Time{})
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if res.Warning != nil {
		t.Errorf("unexpected warning: %v", res.Warning)
	}
	if n := res.Activity.Ledger.Len(); n != 1 {
		t.Errorf("ledger len = %d, want 1", n)
	}
	if !res.Record.CompletedAt.Equal(clock.t) {
		t.Errorf("CompletedAt = %v, want %v", res.Record.CompletedAt, clock.t)
	}

	want := clock.t.Add(7 * activity.Day)
	got, ok := gw.Get(activity.RequestIDFor(a.ID))
	if !ok {
		t.Fatal("no reminder scheduled")
	}
	if !got.FireAt.Equal(want) {
		t.Errorf("FireAt = %v, want %v", got.FireAt, want)
	}
	if got.Payload.LastCompletedAt == nil || !got.Payload.LastCompletedAt.Equal(clock.t) {
		t.Errorf("payload last completed = %v", got.Payload.LastCompletedAt)
	}
	if gw.Len() != 1 {
		t.Errorf("gateway has %d requests, want exactly 1", gw.Len())
	}

	s, err := e.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.State != activity.Fresh {
		t.Errorf("State = %s, want fresh", s.State)
	}

	stored, _ := db.GetActivity(ctx, a.ID)
	if stored.Ledger.Len() != 1 {
		t.Errorf("stored ledger len = %d, want 1", stored.Ledger.Len())
	}
	if !stored.UpdatedAt.Equal(res.Activity.UpdatedAt) || !stored.UpdatedAt.Equal(clock.t) {
		t.Errorf("stored UpdatedAt = %v, result %v, want %v", stored.UpdatedAt, res.Activity.UpdatedAt, clock.t)
	}
}

func TestMarkCompletedBackdatedPastDue(t *testing.T) {
	e, _, gw, clock := testEngine(t)
	ctx := context.Background()

	clock.advance(-10 * activity.Day)
	a := mustCreate(t, e, "Change sheets", 3)
	clock.advance(10 * activity.Day)

	res, err := e.MarkCompleted(ctx, a.ID, "", clock.t.Add(-5*activity.Day))
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if res.Reminder != nil {
		t.Errorf("past-due activity armed: %+v", res.Reminder)
	}
	if gw.Len() != 0 {
		t.Errorf("gateway has %d requests, want 0", gw.Len())
	}
	if days, ok, _ := e.DaysSinceLastCompleted(ctx, a.ID); !ok || days != 5 {
		t.Errorf("DaysSince = %d, %v, want 5, true", days, ok)
	}
	if len(e.GetOverdue(ctx)) != 1 {
		t.Error("past-due activity missing from overdue list")
	}
}

func TestMarkCompletedArchived(t *testing.T) {
	e, _, gw, _ := testEngine(t)
	ctx := context.Background()
	a := mustCreate(t, e, "Guitar", 2)
	if _, err := e.SetArchived(ctx, a.ID, true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}

	res, err := e.MarkCompleted(ctx, a.ID, "", time.Time{})
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if res.Reminder != nil || gw.Len() != 0 {
		t.Errorf("archived activity armed")
	}
	if res.Activity.Ledger.Len() != 1 {
		t.Errorf("completion not recorded for archived activity")
	}
}

func TestMarkCompletedTwiceRecordsTwo(t *testing.T) {
	e, _, gw, clock := testEngine(t)
	ctx := context.Background()
	a := mustCreate(t, e, "Meditate", 1)

	for i := 0; i < 2; i++ {
		if _, err := e.MarkCompleted(ctx, a.ID, "", time.Time{}); err != nil {
			t.Fatalf("MarkCompleted #%d: %v", i, err)
		}
	}
	s, _ := e.Get(ctx, a.ID)
	if s.Activity.Ledger.Len() != 2 {
		t.Errorf("ledger len = %d, want 2", s.Activity.Ledger.Len())
	}
	if gw.Len() != 1 {
		t.Errorf("gateway has %d requests, want 1", gw.Len())
	}
	r, ok := e.Scheduler.Outstanding(a.ID)
	if !ok || !r.FireAt.Equal(clock.t.Add(activity.Day)) {
		t.Errorf("outstanding = %+v, %v", r, ok)
	}
}

func TestMarkCompletedBackdateKeepsLatest(t *testing.T) {
	e, _, gw, clock := testEngine(t)
	ctx := context.Background()
	a := mustCreate(t, e, "Run", 7)

	if _, err := e.MarkCompleted(ctx, a.ID, "", time.Time{}); err != nil {
		t.Fatal(err)
	}
	res, err := e.MarkCompleted(ctx, a.ID, "forgot to log", clock.t.Add(-3*activity.Day))
	if err != nil {
		t.Fatal(err)
	}

	last, _ := res.Activity.LastCompletedAt()
	if !last.Equal(clock.t) {
		t.Errorf("LastCompletedAt = %v, want %v", last, clock.t)
	}
	got, _ := gw.Get(activity.RequestIDFor(a.ID))
	if !got.FireAt.Equal(clock.t.Add(7 * activity.Day)) {
		t.Errorf("FireAt = %v, backdate moved the reminder", got.FireAt)
	}
}

func TestMarkCompletedNotFound(t *testing.T) {
	e, _, gw, _ := testEngine(t)
	_, err := e.MarkCompleted(context.Background(), "missing", "", time.Time{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if len(gw.Cancels()) != 0 {
		t.Error("gateway touched for unknown activity")
	}
}

type failingStore struct {
	*store.DB
	appendErr error
}

func (f *failingStore) AppendCompletion(ctx context.Context, rec activity.CompletionRecord, recordedAt time.Time) error {
	return f.appendErr
}

func TestMarkCompletedPersistenceFailure(t *testing.T) {
	db := testDB(t)
	gw := notify.NewMemory()
	clock := &fakeClock{t: t0}
	fs := &failingStore{DB: db}
	e := New(fs, db, gw)
	e.SetClock(clock.now)
	ctx := context.Background()

	a := mustCreate(t, e, "Water Plants", 7)
	before, _ := e.Scheduler.Outstanding(a.ID)
	cancels := len(gw.Cancels())

	fs.appendErr = errors.New("disk full")
	clock.advance(activity.Day)
	res, err := e.MarkCompleted(ctx, a.ID, "", time.Time{})
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *PersistenceError", err)
	}
	if !IsPersistence(err) {
		t.Error("IsPersistence = false")
	}

	s, _ := e.Get(ctx, a.ID)
	if s.Activity.Ledger.Len() != 0 {
		t.Errorf("ledger len = %d after failed append", s.Activity.Ledger.Len())
	}
	if len(gw.Cancels()) != cancels {
		t.Error("gateway touched after failed append")
	}
	after, _ := e.Scheduler.Outstanding(a.ID)
	if !after.FireAt.Equal(before.FireAt) {
		t.Errorf("reminder moved from %v to %v", before.FireAt, after.FireAt)
	}
}

func TestMarkCompletedSchedulingFailureIsWarning(t *testing.T) {
	e, db, gw, _ := testEngine(t)
	ctx := context.Background()
	a := mustCreate(t, e, "Water Plants", 7)

	gw.ScheduleErr = errors.New("gateway unavailable")
	res, err := e.MarkCompleted(ctx, a.ID, "", time.Time{})
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	var se *SchedulingError
	if !errors.As(res.Warning, &se) {
		t.Fatalf("Warning = %v, want *SchedulingError", res.Warning)
	}
	if se.ActivityID != a.ID || se.Op != "schedule" {
		t.Errorf("SchedulingError = %+v", se)
	}

	stored, _ := db.GetActivity(ctx, a.ID)
	if stored.Ledger.Len() != 1 {
		t.Errorf("completion rolled back on scheduling failure")
	}
	if _, ok := e.Scheduler.Outstanding(a.ID); ok {
		t.Error("scheduler claims a reminder the gateway rejected")
	}

	// Once the gateway recovers, reconciliation re-arms.
	gw.ScheduleErr = nil
	report, err := e.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Armed != 1 || gw.Len() != 1 {
		t.Errorf("report = %+v, gateway %d", report, gw.Len())
	}
}

func TestMarkCompletedConcurrent(t *testing.T) {
	e, _, gw, _ := testEngine(t)
	ctx := context.Background()
	a := mustCreate(t, e, "Pushups", 1)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.MarkCompleted(ctx, a.ID, "", time.Time{}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("MarkCompleted: %v", err)
	}

	s, _ := e.Get(ctx, a.ID)
	if s.Activity.Ledger.Len() != n {
		t.Errorf("ledger len = %d, want %d", s.Activity.Ledger.Len(), n)
	}
	if gw.Len() != 1 {
		t.Errorf("gateway has %d requests, want 1", gw.Len())
	}
}
