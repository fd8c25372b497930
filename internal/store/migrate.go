package store

import "database/sql"

// Migrate applies the schema. Statements are idempotent and written in the
// SQL subset shared by Postgres and SQLite: TEXT/INTEGER/REAL columns and
// integer-millisecond timestamps.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS system_users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS students (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			roll_number   TEXT NOT NULL UNIQUE,
			student_id    TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			department    TEXT NOT NULL DEFAULT 'General',
			status        TEXT NOT NULL DEFAULT 'active',
			created_at_ms INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id            TEXT PRIMARY KEY,
			roll_number   TEXT NOT NULL,
			day           TEXT NOT NULL,
			status        TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_day ON attendance(day)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_roll ON attendance(roll_number)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id                      TEXT PRIMARY KEY,
			student_id              TEXT NOT NULL,
			roll_number             TEXT NOT NULL,
			day                     TEXT NOT NULL,
			overall_rating          REAL NOT NULL,
			session_content         REAL NOT NULL,
			practical_applicability REAL NOT NULL,
			trainer_interaction     REAL NOT NULL,
			feedback_text           TEXT NOT NULL DEFAULT '',
			created_at_ms           INTEGER NOT NULL,
			UNIQUE (student_id, day)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
