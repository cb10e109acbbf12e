package activity

import "time"

// ReminderRequest is the single outstanding notification for an activity.
// It can always be recomputed from the activity.
type ReminderRequest struct {
	ActivityID string
	RequestID  string
	FireAt     time.Time
	Handle     string
	ArmedAt    time.Time
}

// RequestIDFor derives the gateway request id from the activity id, so a
// stale request can be cancelled without any local record of it.
func RequestIDFor(activityID string) string {
	return "reminder:" + activityID
}

// NextFireTime is the anchor (last completion, or creation if never
// completed) plus one interval.
func (a *Activity) NextFireTime() time.Time {
	anchor, ok := a.LastCompletedAt()
	if !ok {
		anchor = a.CreatedAt
	}
	return anchor.Add(a.Interval())
}
