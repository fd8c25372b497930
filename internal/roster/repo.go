package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateRoll is returned when a student with the same roll number
// already exists.
var ErrDuplicateRoll = errors.New("student with this roll number already exists")

// Student is a roster entry. The password hash never leaves the repository
// layer and is never serialized.
type Student struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number"`
	StudentID  string    `json:"student_id"`
	Department string    `json:"department"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

const studentCols = `id, name, roll_number, student_id, department, status, created_at_ms`

// Repository persists students.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new student. Fails with ErrDuplicateRoll when the roll
// number is taken.
func (r *Repository) Insert(ctx context.Context, st Student, passwordHash string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE roll_number = $1)`, st.RollNumber,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check roll number: %w", err)
	}
	if exists {
		return ErrDuplicateRoll
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO students (id, name, roll_number, student_id, password_hash, department, status, created_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, st.ID, st.Name, st.RollNumber, st.StudentID, passwordHash, st.Department, st.Status, st.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// InsertBatch stages the candidates inside one transaction, skipping rows
// whose roll number already exists, and returns the number inserted. The
// batch commits or rolls back as a whole.
func (r *Repository) InsertBatch(ctx context.Context, candidates []Student, hashes []string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	count := 0
	for i, st := range candidates {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM students WHERE roll_number = $1)`, st.RollNumber,
		).Scan(&exists); err != nil {
			return 0, fmt.Errorf("check roll number %s: %w", st.RollNumber, err)
		}
		if exists {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO students (id, name, roll_number, student_id, password_hash, department, status, created_at_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, st.ID, st.Name, st.RollNumber, st.StudentID, hashes[i], st.Department, st.Status, st.CreatedAt.UnixMilli()); err != nil {
			return 0, fmt.Errorf("insert student %s: %w", st.RollNumber, err)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return count, nil
}

// List returns all students in insertion order.
func (r *Repository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+studentCols+` FROM students ORDER BY created_at_ms, roll_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// Delete removes a student by internal id. Deleting an absent id is not an
// error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	return err
}

// GetByLogin matches loginID against either the derived student id or the
// roll number and returns the student plus stored password hash.
func (r *Repository) GetByLogin(ctx context.Context, loginID string) (Student, string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+studentCols+`, password_hash
		FROM students
		WHERE student_id = $1 OR roll_number = $1
	`, loginID)
	var (
		st   Student
		ms   int64
		hash string
	)
	err := row.Scan(&st.ID, &st.Name, &st.RollNumber, &st.StudentID, &st.Department, &st.Status, &ms, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, "", sql.ErrNoRows
	}
	if err != nil {
		return Student{}, "", err
	}
	st.CreatedAt = time.UnixMilli(ms).UTC()
	return st, hash, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (Student, error) {
	var (
		st Student
		ms int64
	)
	if err := row.Scan(&st.ID, &st.Name, &st.RollNumber, &st.StudentID, &st.Department, &st.Status, &ms); err != nil {
		return Student{}, err
	}
	st.CreatedAt = time.UnixMilli(ms).UTC()
	return st, nil
}
