package roster

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned on a failed student login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CreateInput carries the fields accepted when registering a student.
type CreateInput struct {
	Name       string `json:"name" binding:"required"`
	RollNumber string `json:"roll_number" binding:"required"`
	Password   string `json:"password" binding:"required"`
	StudentID  string `json:"student_id"`
	Department string `json:"department"`
}

// Service owns roster operations.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create registers one student and returns the new internal id.
// The student id is derived as STU-<roll number> unless supplied.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	st := Student{
		ID:         uuid.NewString(),
		Name:       in.Name,
		RollNumber: in.RollNumber,
		StudentID:  in.StudentID,
		Department: in.Department,
		Status:     "active",
		CreatedAt:  time.Now().UTC(),
	}
	if st.StudentID == "" {
		st.StudentID = "STU-" + st.RollNumber
	}
	if st.Department == "" {
		st.Department = "General"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.Insert(ctx, st, string(hash)); err != nil {
		return "", err
	}
	return st.ID, nil
}

// List returns all students.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	return s.repo.List(ctx)
}

// Delete removes a student by internal id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Authenticate verifies a student login. The login id may hold either the
// derived student id or the bare roll number.
func (s *Service) Authenticate(ctx context.Context, loginID, password string) (Student, error) {
	loginID = strings.TrimSpace(loginID)
	password = strings.TrimSpace(password)
	st, hash, err := s.repo.GetByLogin(ctx, loginID)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrInvalidCredentials
	}
	if err != nil {
		return Student{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Student{}, ErrInvalidCredentials
	}
	return st, nil
}

// ImportCSV bulk-imports students from a CSV stream with the fixed headers
// Name, RollNumber, Password and optional Department. Rows whose roll number
// already exists are skipped silently. The whole batch is applied in one
// transaction; any parse failure aborts the import. Returns the number of
// newly inserted students.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Name", "RollNumber", "Password"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("csv missing required column %q", required)
		}
	}

	now := time.Now().UTC()
	var (
		candidates []Student
		hashes     []string
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv row: %w", err)
		}
		roll := strings.TrimSpace(record[col["RollNumber"]])
		department := "General"
		if i, ok := col["Department"]; ok && strings.TrimSpace(record[i]) != "" {
			department = strings.TrimSpace(record[i])
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(record[col["Password"]]), bcrypt.DefaultCost)
		if err != nil {
			return 0, fmt.Errorf("hash password for %s: %w", roll, err)
		}
		candidates = append(candidates, Student{
			ID:         uuid.NewString(),
			Name:       strings.TrimSpace(record[col["Name"]]),
			RollNumber: roll,
			StudentID:  "STU-" + roll,
			Department: department,
			Status:     "active",
			CreatedAt:  now,
		})
		hashes = append(hashes, string(hash))
	}
	if len(candidates) == 0 {
		return 0, nil
	}
	return s.repo.InsertBatch(ctx, candidates, hashes)
}
