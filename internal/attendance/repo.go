package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Record is one attendance mark for a roll number on a day.
type Record struct {
	ID         string    `json:"id"`
	RollNumber string    `json:"roll_number"`
	Date       string    `json:"date"` // YYYY-MM-DD
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository persists attendance records.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a single record.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, roll_number, day, status, created_at_ms)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.RollNumber, rec.Date, rec.Status, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// ReplaceDay swaps the full record set for one day: existing rows for the
// day are purged and the incoming records inserted in the same transaction,
// so no reader observes the emptied state.
func (r *Repository) ReplaceDay(ctx context.Context, day string, recs []Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE day = $1`, day); err != nil {
		return fmt.Errorf("purge day %s: %w", day, err)
	}
	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (id, roll_number, day, status, created_at_ms)
			VALUES ($1, $2, $3, $4, $5)
		`, rec.ID, rec.RollNumber, rec.Date, rec.Status, rec.CreatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert attendance %s: %w", rec.RollNumber, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// Query returns records filtered by optional day and roll number.
func (r *Repository) Query(ctx context.Context, day, rollNumber string) ([]Record, error) {
	query := `SELECT id, roll_number, day, status, created_at_ms FROM attendance`
	var (
		clauses []string
		args    []any
	)
	if day != "" {
		args = append(args, day)
		clauses = append(clauses, fmt.Sprintf("day = $%d", len(args)))
	}
	if rollNumber != "" {
		args = append(args, rollNumber)
		clauses = append(clauses, fmt.Sprintf("roll_number = $%d", len(args)))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY day, roll_number"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var (
			rec Record
			ms  int64
		)
		if err := rows.Scan(&rec.ID, &rec.RollNumber, &rec.Date, &rec.Status, &ms); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.UnixMilli(ms).UTC()
		res = append(res, rec)
	}
	return res, rows.Err()
}
