package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lazypower/tend/internal/activity"
)

// PutReminder records the outstanding reminder for an activity, replacing
// any previous one.
func (db *DB) PutReminder(ctx context.Context, r activity.ReminderRequest) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO reminders (activity_id, request_id, fire_at, handle, armed_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)
		ON CONFLICT(activity_id) DO UPDATE SET
			request_id = excluded.request_id,
			fire_at = excluded.fire_at,
			handle = excluded.handle,
			armed_at = excluded.armed_at
	`, r.ActivityID, r.RequestID, r.FireAt.UnixMilli(), r.Handle, r.ArmedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put reminder: %w", err)
	}
	return nil
}

// DeleteReminder forgets the reminder for an activity. Missing rows are fine.
func (db *DB) DeleteReminder(ctx context.Context, activityID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM reminders WHERE activity_id = ?`, activityID); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}

// ListReminders returns all recorded reminders ordered by fire time.
func (db *DB) ListReminders(ctx context.Context) ([]activity.ReminderRequest, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT activity_id, request_id, fire_at, handle, armed_at
		FROM reminders ORDER BY fire_at, activity_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []activity.ReminderRequest
	for rows.Next() {
		var r activity.ReminderRequest
		var fireAt, armedAt int64
		var handle sql.NullString
		if err := rows.Scan(&r.ActivityID, &r.RequestID, &fireAt, &handle, &armedAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.FireAt = fromMillis(fireAt)
		r.ArmedAt = fromMillis(armedAt)
		r.Handle = handle.String
		out = append(out, r)
	}
	return out, rows.Err()
}
