package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/tend/internal/activity"
)

const activityColumns = `id, name, interval_days, archived, created_at, updated_at`

// ListActivities returns every activity with its ledger, oldest first.
func (db *DB) ListActivities(ctx context.Context) ([]activity.Activity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()
	return db.withLedgers(ctx, rows)
}

// ActiveActivities returns unarchived activities.
func (db *DB) ActiveActivities(ctx context.Context) ([]activity.Activity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities WHERE archived = 0
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("active activities: %w", err)
	}
	defer rows.Close()
	return db.withLedgers(ctx, rows)
}

// ActivitiesByIDs returns the activities whose id is in ids. Unknown ids are
// ignored.
func (db *DB) ActivitiesByIDs(ctx context.Context, ids []string) ([]activity.Activity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT `+activityColumns+`
		FROM activities WHERE id IN (%s)
		ORDER BY created_at, id
	`, placeholders(len(ids)))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("activities by ids: %w", err)
	}
	defer rows.Close()
	return db.withLedgers(ctx, rows)
}

// MatchActivities returns unarchived activities whose folded name contains
// folded. The caller folds the query with activity.Fold.
func (db *DB) MatchActivities(ctx context.Context, folded string) ([]activity.Activity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities WHERE archived = 0 AND instr(name_folded, ?) > 0
		ORDER BY created_at, id
	`, folded)
	if err != nil {
		return nil, fmt.Errorf("match activities: %w", err)
	}
	defer rows.Close()
	return db.withLedgers(ctx, rows)
}

// GetActivity returns an activity with its ledger, or nil if not found.
func (db *DB) GetActivity(ctx context.Context, id string) (*activity.Activity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	defer rows.Close()

	acts, err := db.withLedgers(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(acts) == 0 {
		return nil, nil
	}
	return &acts[0], nil
}

// SaveActivity inserts or updates an activity's attributes. The ledger is
// written separately through AppendCompletion.
func (db *DB) SaveActivity(ctx context.Context, a *activity.Activity) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO activities (id, name, name_folded, interval_days, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_folded = excluded.name_folded,
			interval_days = excluded.interval_days,
			archived = excluded.archived,
			updated_at = excluded.updated_at
	`, a.ID, a.Name, activity.Fold(a.Name), a.IntervalDays, boolInt(a.Archived),
		a.CreatedAt.UnixMilli(), a.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}

// AppendCompletion durably adds one record to an activity's ledger and sets
// the activity's updated_at to recordedAt.
func (db *DB) AppendCompletion(ctx context.Context, rec activity.CompletionRecord, recordedAt time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	now := recordedAt.UnixMilli()
	result, err := tx.ExecContext(ctx, `UPDATE activities SET updated_at = ? WHERE id = ?`, now, rec.ActivityID)
	if err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("append completion: no activity %s", rec.ActivityID)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO completions (id, activity_id, completed_at, note, recorded_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)
	`, rec.ID, rec.ActivityID, rec.CompletedAt.UnixMilli(), rec.Note, now); err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit completion: %w", err)
	}
	return nil
}

// DeleteActivity removes an activity together with its ledger. The reminder
// row is left to the scheduler, which forgets it only once the gateway has
// confirmed the cancel.
func (db *DB) DeleteActivity(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM completions WHERE activity_id = ?`,
		`DELETE FROM activities WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete activity %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// withLedgers scans activity rows and attaches each one's completions.
func (db *DB) withLedgers(ctx context.Context, rows *sql.Rows) ([]activity.Activity, error) {
	acts, err := scanActivities(rows)
	if err != nil {
		return nil, err
	}
	if len(acts) == 0 {
		return acts, nil
	}

	ids := make([]any, len(acts))
	index := make(map[string]int, len(acts))
	for i, a := range acts {
		ids[i] = a.ID
		index[a.ID] = i
	}

	crows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, activity_id, completed_at, note
		FROM completions WHERE activity_id IN (%s)
		ORDER BY completed_at, recorded_at
	`, placeholders(len(ids))), ids...)
	if err != nil {
		return nil, fmt.Errorf("load completions: %w", err)
	}
	defer crows.Close()

	records := make(map[string][]activity.CompletionRecord, len(acts))
	for crows.Next() {
		var rec activity.CompletionRecord
		var completedAt int64
		var note sql.NullString
		if err := crows.Scan(&rec.ID, &rec.ActivityID, &completedAt, &note); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		rec.CompletedAt = fromMillis(completedAt)
		rec.Note = note.String
		records[rec.ActivityID] = append(records[rec.ActivityID], rec)
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}

	for id, recs := range records {
		acts[index[id]].Ledger = activity.NewLedger(recs)
	}
	return acts, nil
}

func scanActivities(rows *sql.Rows) ([]activity.Activity, error) {
	var acts []activity.Activity
	for rows.Next() {
		var a activity.Activity
		var archived int
		var createdAt, updatedAt int64
		if err := rows.Scan(&a.ID, &a.Name, &a.IntervalDays, &archived, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Archived = archived != 0
		a.CreatedAt = fromMillis(createdAt)
		a.UpdatedAt = fromMillis(updatedAt)
		acts = append(acts, a)
	}
	return acts, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
