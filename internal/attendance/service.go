package attendance

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// StatusPresent is the status value counted towards attendance percentages.
const StatusPresent = "present"

// ErrMissingFields is returned when a record lacks its required fields.
var ErrMissingFields = errors.New("roll_number, date and status required")

// Stats summarizes one roll number's attendance history.
type Stats struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Percentage float64 `json:"percentage"`
}

// Service owns attendance recording and retrieval.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// RecordOne appends a single attendance record.
func (s *Service) RecordOne(ctx context.Context, rec Record) error {
	if rec.RollNumber == "" || rec.Date == "" || rec.Status == "" {
		return ErrMissingFields
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	return s.repo.Insert(ctx, rec)
}

// RecordBulk replaces the day's records with the incoming list. The day is
// taken from the first record; the list is assumed homogeneous in date.
// An empty list is a no-op.
func (s *Service) RecordBulk(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	day := recs[0].Date
	if day == "" {
		return ErrMissingFields
	}
	now := time.Now().UTC()
	for i := range recs {
		recs[i].ID = uuid.NewString()
		recs[i].CreatedAt = now
	}
	return s.repo.ReplaceDay(ctx, day, recs)
}

// Query returns records filtered by optional date and roll number. When a
// roll number is given the per-student stats are computed from the matching
// records.
func (s *Service) Query(ctx context.Context, date, rollNumber string) ([]Record, *Stats, error) {
	recs, err := s.repo.Query(ctx, date, rollNumber)
	if err != nil {
		return nil, nil, err
	}
	if rollNumber == "" {
		return recs, nil, nil
	}
	stats := Stats{Total: len(recs)}
	for _, rec := range recs {
		if rec.Status == StatusPresent {
			stats.Present++
		}
	}
	if stats.Total > 0 {
		stats.Percentage = round1(float64(stats.Present) / float64(stats.Total) * 100)
	}
	return recs, &stats, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
