package engine

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/lazypower/tend/internal/activity"
	"github.com/lazypower/tend/internal/notify"
	"github.com/lazypower/tend/internal/observability"
)

// ReminderTable durably mirrors the scheduler's outstanding requests so they
// can be listed and cancelled after a restart. It is a cache: reconciliation
// rebuilds it from the activities.
type ReminderTable interface {
	PutReminder(ctx context.Context, r activity.ReminderRequest) error
	DeleteReminder(ctx context.Context, activityID string) error
	ListReminders(ctx context.Context) ([]activity.ReminderRequest, error)
}

// Scheduler keeps at most one outstanding reminder per activity. It is the
// only component that talks to the notification gateway.
type Scheduler struct {
	gateway notify.Gateway
	table   ReminderTable
	now     func() time.Time

	mu          sync.Mutex
	outstanding map[string]activity.ReminderRequest
}

// NewScheduler creates a Scheduler. table may be nil.
func NewScheduler(gw notify.Gateway, table ReminderTable) *Scheduler {
	return &Scheduler{
		gateway:     gw,
		table:       table,
		now:         time.Now,
		outstanding: make(map[string]activity.ReminderRequest),
	}
}

// Reschedule replaces the activity's reminder with one derived from its
// current ledger and configuration. It returns the armed request, or nil when
// nothing should be armed (archived, or the next fire time is not in the
// future). A non-nil error is always a *SchedulingError and leaves the
// activity with no outstanding request.
func (s *Scheduler) Reschedule(ctx context.Context, a *activity.Activity) (*activity.ReminderRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	requestID := activity.RequestIDFor(a.ID)

	// Always cancel by id, even with no local record: the table may have
	// been lost between a cancel and an arm.
	if err := s.gateway.Cancel(ctx, requestID); err != nil {
		s.forget(ctx, a.ID)
		observability.RecordReschedule(observability.ResultFailed)
		log.Printf("reschedule: cancel %s: %v", a.ID, err)
		return nil, &SchedulingError{ActivityID: a.ID, Op: "cancel", Err: err}
	}
	s.forget(ctx, a.ID)

	if a.Archived {
		observability.RecordReschedule(observability.ResultArchived)
		return nil, nil
	}

	now := s.now()
	fireAt := a.NextFireTime()
	if !fireAt.After(now) {
		// Overdue activities are surfaced by classification, not pushed.
		observability.RecordReschedule(observability.ResultPastDue)
		return nil, nil
	}

	handle, err := s.gateway.Schedule(ctx, requestID, fireAt, payloadFor(a))
	if err != nil {
		observability.RecordReschedule(observability.ResultFailed)
		log.Printf("reschedule: schedule %s: %v", a.ID, err)
		return nil, &SchedulingError{ActivityID: a.ID, Op: "schedule", Err: err}
	}

	req := activity.ReminderRequest{
		ActivityID: a.ID,
		RequestID:  requestID,
		FireAt:     fireAt,
		Handle:     string(handle),
		ArmedAt:    now,
	}
	s.outstanding[a.ID] = req
	observability.SetOutstanding(len(s.outstanding))
	observability.RecordReschedule(observability.ResultArmed)

	if s.table != nil {
		if err := s.table.PutReminder(ctx, req); err != nil {
			// The gateway has it; reconciliation rewrites the mirror.
			log.Printf("reschedule: record %s: %v", a.ID, err)
			return &req, &SchedulingError{ActivityID: a.ID, Op: "record", Err: err}
		}
	}
	return &req, nil
}

// Cancel removes any reminder for the activity. The record is forgotten only
// once the gateway confirms, so a failed cancel is retried by the next
// reconciliation's orphan pass.
func (s *Scheduler) Cancel(ctx context.Context, activityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gateway.Cancel(ctx, activity.RequestIDFor(activityID)); err != nil {
		log.Printf("cancel reminder %s: %v", activityID, err)
		return &SchedulingError{ActivityID: activityID, Op: "cancel", Err: err}
	}
	s.forget(ctx, activityID)
	return nil
}

// Load replaces the in-memory table with the persisted mirror.
func (s *Scheduler) Load(ctx context.Context) ([]activity.ReminderRequest, error) {
	if s.table == nil {
		return s.Pending(), nil
	}
	rows, err := s.table.ListReminders(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding = make(map[string]activity.ReminderRequest, len(rows))
	for _, r := range rows {
		s.outstanding[r.ActivityID] = r
	}
	observability.SetOutstanding(len(s.outstanding))
	return rows, nil
}

// Outstanding returns the current request for an activity.
func (s *Scheduler) Outstanding(activityID string) (activity.ReminderRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.outstanding[activityID]
	return r, ok
}

// Pending returns all outstanding requests ordered by fire time.
func (s *Scheduler) Pending() []activity.ReminderRequest {
	s.mu.Lock()
	out := make([]activity.ReminderRequest, 0, len(s.outstanding))
	for _, r := range s.outstanding {
		out = append(out, r)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].ActivityID < out[j].ActivityID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

// forget drops the local record. Caller holds s.mu.
func (s *Scheduler) forget(ctx context.Context, activityID string) {
	delete(s.outstanding, activityID)
	observability.SetOutstanding(len(s.outstanding))
	if s.table == nil {
		return
	}
	if err := s.table.DeleteReminder(ctx, activityID); err != nil {
		log.Printf("reschedule: forget %s: %v", activityID, err)
	}
}

func payloadFor(a *activity.Activity) notify.Payload {
	p := notify.Payload{
		ActivityID:   a.ID,
		ActivityName: a.Name,
		IntervalDays: a.IntervalDays,
	}
	if last, ok := a.LastCompletedAt(); ok {
		p.LastCompletedAt = &last
	}
	return p
}
