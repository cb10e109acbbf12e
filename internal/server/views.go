package server

import (
	"time"

	"github.com/lazypower/tend/internal/activity"
	"github.com/lazypower/tend/internal/engine"
)

type activityView struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	IntervalDays    int                 `json:"interval_days"`
	Archived        bool                `json:"archived"`
	State           activity.AgingState `json:"state"`
	DaysSince       *int                `json:"days_since,omitempty"`
	LastCompletedAt *time.Time          `json:"last_completed_at,omitempty"`
	Completions     int                 `json:"completions"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Ledger          []completionView    `json:"ledger,omitempty"`
}

type completionView struct {
	ID          string    `json:"id"`
	CompletedAt time.Time `json:"completed_at"`
	Note        string    `json:"note,omitempty"`
}

type reminderView struct {
	ActivityID string    `json:"activity_id"`
	RequestID  string    `json:"request_id"`
	FireAt     time.Time `json:"fire_at"`
	Handle     string    `json:"handle,omitempty"`
	ArmedAt    time.Time `json:"armed_at"`
}

type resultView struct {
	Activity   activityView    `json:"activity"`
	Completion *completionView `json:"completion,omitempty"`
	Reminder   *reminderView   `json:"reminder,omitempty"`
	Warning    string          `json:"warning,omitempty"`
}

func viewOf(s engine.Snapshot) activityView {
	a := s.Activity
	v := activityView{
		ID:           a.ID,
		Name:         a.Name,
		IntervalDays: a.IntervalDays,
		Archived:     a.Archived,
		State:        s.State,
		Completions:  a.Ledger.Len(),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if s.Completed {
		days, last := s.DaysSince, s.LastCompletedAt
		v.DaysSince = &days
		v.LastCompletedAt = &last
	}
	return v
}

func viewsOf(snaps []engine.Snapshot) []activityView {
	out := make([]activityView, len(snaps))
	for i, s := range snaps {
		out[i] = viewOf(s)
	}
	return out
}

// detailViewOf includes the ledger, newest first.
func detailViewOf(s engine.Snapshot) activityView {
	v := viewOf(s)
	recs := s.Activity.Ledger.Records()
	v.Ledger = make([]completionView, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		v.Ledger = append(v.Ledger, completionOf(recs[i]))
	}
	return v
}

func completionOf(rec activity.CompletionRecord) completionView {
	return completionView{ID: rec.ID, CompletedAt: rec.CompletedAt, Note: rec.Note}
}

func reminderOf(r activity.ReminderRequest) reminderView {
	return reminderView{
		ActivityID: r.ActivityID,
		RequestID:  r.RequestID,
		FireAt:     r.FireAt,
		Handle:     r.Handle,
		ArmedAt:    r.ArmedAt,
	}
}

func (s *Server) resultOf(res *engine.Result) resultView {
	v := resultView{Activity: viewOf(s.engine.Snapshot(*res.Activity))}
	if res.Record != nil {
		c := completionOf(*res.Record)
		v.Completion = &c
	}
	if res.Reminder != nil {
		r := reminderOf(*res.Reminder)
		v.Reminder = &r
	}
	if res.Warning != nil {
		v.Warning = res.Warning.Error()
	}
	return v
}
