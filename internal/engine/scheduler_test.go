package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lazypower/tend/internal/activity"
	"github.com/lazypower/tend/internal/notify"
)

func testScheduler(t *testing.T) (*Scheduler, *notify.Memory) {
	t.Helper()
	gw := notify.NewMemory()
	s := NewScheduler(gw, nil)
	s.now = func() time.Time { return t0 }
	return s, gw
}

func TestSchedulerAlwaysCancelsByID(t *testing.T) {
	s, gw := testScheduler(t)
	a := activity.New("Plants", 7, t0)

	if _, err := s.Reschedule(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	cancels := gw.Cancels()
	if len(cancels) != 1 || cancels[0] != activity.RequestIDFor(a.ID) {
		t.Errorf("Cancels = %v, want one cancel by request id", cancels)
	}
}

func TestSchedulerCancelFailure(t *testing.T) {
	s, gw := testScheduler(t)
	a := activity.New("Plants", 7, t0)
	gw.CancelErr = errors.New("unreachable")

	req, err := s.Reschedule(context.Background(), a)
	if req != nil {
		t.Errorf("armed despite cancel failure: %+v", req)
	}
	var se *SchedulingError
	if !errors.As(err, &se) || se.Op != "cancel" {
		t.Errorf("error = %v, want cancel SchedulingError", err)
	}
	if gw.Len() != 0 {
		t.Error("scheduled after failed cancel")
	}
}

func TestSchedulerRejected(t *testing.T) {
	s, gw := testScheduler(t)
	a := activity.New("Plants", 7, t0)
	gw.ScheduleErr = notify.ErrRejected

	_, err := s.Reschedule(context.Background(), a)
	if !errors.Is(err, notify.ErrRejected) {
		t.Errorf("error = %v, want wrapped ErrRejected", err)
	}
	if _, ok := s.Outstanding(a.ID); ok {
		t.Error("rejected request tracked as outstanding")
	}
}

func TestSchedulerLoad(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := activity.New("Plants", 7, t0)
	if err := db.SaveActivity(ctx, a); err != nil {
		t.Fatal(err)
	}
	req := activity.ReminderRequest{
		ActivityID: a.ID,
		RequestID:  activity.RequestIDFor(a.ID),
		FireAt:     t0.Add(7 * activity.Day),
		Handle:     "h-1",
		ArmedAt:    t0,
	}
	if err := db.PutReminder(ctx, req); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(notify.NewMemory(), db)
	rows, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Load returned %d rows", len(rows))
	}
	got, ok := s.Outstanding(a.ID)
	if !ok || got.Handle != "h-1" || !got.FireAt.Equal(req.FireAt) {
		t.Errorf("Outstanding = %+v, %v", got, ok)
	}
}

func TestSchedulerPendingOrder(t *testing.T) {
	s, _ := testScheduler(t)
	ctx := context.Background()
	long := activity.New("Long", 30, t0)
	short := activity.New("Short", 2, t0)
	for _, a := range []*activity.Activity{long, short} {
		if _, err := s.Reschedule(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	p := s.Pending()
	if len(p) != 2 || p[0].ActivityID != short.ID {
		t.Errorf("Pending = %+v, want short first", p)
	}
}

func TestSchedulerCancelKeepsRecordOnFailure(t *testing.T) {
	s, gw := testScheduler(t)
	ctx := context.Background()
	a := activity.New("Plants", 7, t0)
	if _, err := s.Reschedule(ctx, a); err != nil {
		t.Fatal(err)
	}

	gw.CancelErr = errors.New("unreachable")
	if err := s.Cancel(ctx, a.ID); err == nil {
		t.Fatal("Cancel succeeded with gateway down")
	}
	if _, ok := s.Outstanding(a.ID); !ok {
		t.Error("record dropped although the gateway still holds the request")
	}

	gw.CancelErr = nil
	if err := s.Cancel(ctx, a.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, ok := s.Outstanding(a.ID); ok {
		t.Error("record kept after a confirmed cancel")
	}
}
