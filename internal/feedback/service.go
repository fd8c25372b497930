package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrMissingIdentity is returned when the upsert key fields are absent.
var ErrMissingIdentity = errors.New("student_id and date required")

// Service owns feedback collection.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Submit stores the feedback, replacing a prior submission for the same
// (student_id, date) pair.
func (s *Service) Submit(ctx context.Context, fb Feedback) error {
	if fb.StudentID == "" || fb.Date == "" {
		return ErrMissingIdentity
	}
	fb.ID = uuid.NewString()
	fb.CreatedAt = time.Now().UTC()
	return s.repo.Upsert(ctx, fb)
}

// List returns all feedback, newest first.
func (s *Service) List(ctx context.Context) ([]Feedback, error) {
	return s.repo.List(ctx)
}
