package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "activities: tracked recurring activities",
		SQL: `
CREATE TABLE activities (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL CHECK (length(name) > 0),
    name_folded    TEXT NOT NULL,
    interval_days  INTEGER NOT NULL CHECK (interval_days > 0),
    archived       INTEGER NOT NULL DEFAULT 0 CHECK (archived IN (0, 1)),
    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL
);

CREATE INDEX idx_activities_archived ON activities(archived);
CREATE INDEX idx_activities_created  ON activities(created_at, id);
`,
	},
	{
		Version:     2,
		Description: "completions: append-only completion ledger",
		SQL: `
CREATE TABLE completions (
    id             TEXT PRIMARY KEY,
    activity_id    TEXT NOT NULL,
    completed_at   INTEGER NOT NULL,
    note           TEXT,
    recorded_at    INTEGER NOT NULL,

    FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
);

CREATE INDEX idx_completions_activity ON completions(activity_id, completed_at);
`,
	},
	{
		Version:     3,
		Description: "reminders: mirror of the outstanding reminder per activity",
		SQL: `
CREATE TABLE reminders (
    activity_id    TEXT PRIMARY KEY,
    request_id     TEXT NOT NULL,
    fire_at        INTEGER NOT NULL,
    handle         TEXT,
    armed_at       INTEGER NOT NULL,

    FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
);

CREATE INDEX idx_reminders_fire_at ON reminders(fire_at);
`,
	},
	{
		Version:     4,
		Description: "reminders: keep rows for deleted activities until cancelled",
		SQL: `
CREATE TABLE reminders_v4 (
    activity_id    TEXT PRIMARY KEY,
    request_id     TEXT NOT NULL,
    fire_at        INTEGER NOT NULL,
    handle         TEXT,
    armed_at       INTEGER NOT NULL
);

INSERT INTO reminders_v4 (activity_id, request_id, fire_at, handle, armed_at)
SELECT activity_id, request_id, fire_at, handle, armed_at FROM reminders;

DROP TABLE reminders;
ALTER TABLE reminders_v4 RENAME TO reminders;

CREATE INDEX idx_reminders_fire_at ON reminders(fire_at);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
