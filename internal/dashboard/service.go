package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"
)

// Stats is the aggregate snapshot shown on the admin dashboard.
type Stats struct {
	TotalStudents int     `json:"total_students"`
	PresentToday  int     `json:"present_today"`
	AttendancePct float64 `json:"attendance_pct"`
	AvgFeedback   float64 `json:"avg_feedback"`
}

// Service computes dashboard aggregates. Values are computed fresh on every
// call; nothing is cached.
type Service struct {
	db *sql.DB
}

// NewService creates the service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Stats returns the aggregates for the given day (the server's local date,
// YYYY-MM-DD).
func (s *Service) Stats(ctx context.Context, today string) (Stats, error) {
	var out Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM students WHERE status = 'active'`,
	).Scan(&out.TotalStudents)
	if err != nil {
		return Stats{}, fmt.Errorf("count students: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE day = $1 AND status = 'present'`, today,
	).Scan(&out.PresentToday)
	if err != nil {
		return Stats{}, fmt.Errorf("count attendance: %w", err)
	}

	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT AVG(overall_rating) FROM feedback`,
	).Scan(&avg)
	if err != nil {
		return Stats{}, fmt.Errorf("average feedback: %w", err)
	}

	if out.TotalStudents > 0 {
		out.AttendancePct = round1(float64(out.PresentToday) / float64(out.TotalStudents) * 100)
	}
	if avg.Valid {
		out.AvgFeedback = round1(avg.Float64)
	}
	return out, nil
}

// Today formats the server's local date the way attendance days are keyed.
func Today() string {
	return time.Now().Format("2006-01-02")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
