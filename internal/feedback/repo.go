package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Feedback is one post-session rating, at most one per (student_id, date).
type Feedback struct {
	ID                     string    `json:"id"`
	StudentID              string    `json:"student_id"`
	RollNumber             string    `json:"roll_number"`
	Date                   string    `json:"date"` // YYYY-MM-DD
	OverallRating          float64   `json:"overall_rating"`
	SessionContent         float64   `json:"session_content"`
	PracticalApplicability float64   `json:"practical_applicability"`
	TrainerInteraction     float64   `json:"trainer_interaction"`
	FeedbackText           string    `json:"feedback_text,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

// Repository persists feedback.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts the feedback or, when a row for (student_id, date) exists,
// overwrites its payload. The created-at ordering key is kept from the
// first submission so re-submitting does not reorder the list.
func (r *Repository) Upsert(ctx context.Context, fb Feedback) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback (id, student_id, roll_number, day, overall_rating,
			session_content, practical_applicability, trainer_interaction,
			feedback_text, created_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (student_id, day) DO UPDATE SET
			roll_number = EXCLUDED.roll_number,
			overall_rating = EXCLUDED.overall_rating,
			session_content = EXCLUDED.session_content,
			practical_applicability = EXCLUDED.practical_applicability,
			trainer_interaction = EXCLUDED.trainer_interaction,
			feedback_text = EXCLUDED.feedback_text
	`, fb.ID, fb.StudentID, fb.RollNumber, fb.Date, fb.OverallRating,
		fb.SessionContent, fb.PracticalApplicability, fb.TrainerInteraction,
		fb.FeedbackText, fb.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

// List returns all feedback, newest first.
func (r *Repository) List(ctx context.Context) ([]Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, roll_number, day, overall_rating,
			session_content, practical_applicability, trainer_interaction,
			feedback_text, created_at_ms
		FROM feedback
		ORDER BY created_at_ms DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Feedback
	for rows.Next() {
		var (
			fb Feedback
			ms int64
		)
		if err := rows.Scan(&fb.ID, &fb.StudentID, &fb.RollNumber, &fb.Date,
			&fb.OverallRating, &fb.SessionContent, &fb.PracticalApplicability,
			&fb.TrainerInteraction, &fb.FeedbackText, &ms); err != nil {
			return nil, err
		}
		fb.CreatedAt = time.UnixMilli(ms).UTC()
		res = append(res, fb)
	}
	return res, rows.Err()
}
