package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"internportal/internal/attendance"
	"internportal/internal/auth"
	"internportal/internal/dashboard"
	"internportal/internal/feedback"
	"internportal/internal/roster"
	"internportal/internal/store"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open("sqlite", filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Client))

	users := auth.NewUsers(db.Client)
	require.NoError(t, users.Seed(context.Background(), "admin", "secret", "admin"))

	h := New(
		zap.NewNop(),
		users,
		roster.NewService(roster.NewRepository(db.Client)),
		attendance.NewService(attendance.NewRepository(db.Client)),
		feedback.NewService(feedback.NewRepository(db.Client)),
		dashboard.NewService(db.Client),
		db,
		store.NewRedis("localhost:6379"),
		TokenConfig{Issuer: "test", SigningKey: "test-key", TTL: time.Hour},
	)

	r := gin.New()
	h.Register(r, false)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestSystemLogin(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/system/login", gin.H{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "admin", resp.User.Username)
	assert.Equal(t, "admin", resp.User.Role)

	w = doJSON(t, r, http.MethodPost, "/api/system/login", gin.H{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateListDeleteStudent(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/students", gin.H{
		"name": "Asha", "roll_number": "R1", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	decode(t, w, &created)
	require.True(t, created.Success)
	require.NotEmpty(t, created.ID)

	// Duplicate roll number is a 400.
	w = doJSON(t, r, http.MethodPost, "/api/students", gin.H{
		"name": "Other", "roll_number": "R1", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/students", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var students []map[string]any
	decode(t, w, &students)
	require.Len(t, students, 1)
	assert.Equal(t, "STU-R1", students[0]["student_id"])
	assert.NotContains(t, students[0], "password")
	assert.NotContains(t, students[0], "password_hash")

	w = doJSON(t, r, http.MethodDelete, "/api/students/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/students", nil)
	decode(t, w, &students)
	assert.Empty(t, students)
}

func TestStudentLoginByEitherID(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/students", gin.H{
		"name": "Asha", "roll_number": "R1", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	for _, login := range []string{"STU-R1", "R1"} {
		w = doJSON(t, r, http.MethodPost, "/api/student/login", gin.H{"student_id": login, "password": "pw"})
		require.Equal(t, http.StatusOK, w.Code, "login id %s", login)
		var resp struct {
			Success bool           `json:"success"`
			Student map[string]any `json:"student"`
		}
		decode(t, w, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, "R1", resp.Student["roll_number"])
	}

	w = doJSON(t, r, http.MethodPost, "/api/student/login", gin.H{"student_id": "R1", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadStudentsCSV(t *testing.T) {
	r := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "students.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Name,RollNumber,Password,Department\nAsha,R1,pw1,CS\nBen,R2,pw2,\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/students/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "imported 2 students", resp.Message)

	// Missing file part is a 400.
	w = doJSON(t, r, http.MethodPost, "/api/students/upload", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceBulkAndStats(t *testing.T) {
	r := newTestRouter(t)

	day := "2026-09-01"
	w := doJSON(t, r, http.MethodPost, "/api/attendance", []gin.H{
		{"roll_number": "R1", "date": day, "status": "present"},
		{"roll_number": "R2", "date": day, "status": "absent"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Re-submitting the day replaces its records.
	w = doJSON(t, r, http.MethodPost, "/api/attendance", []gin.H{
		{"roll_number": "R1", "date": day, "status": "absent"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/attendance?date="+day, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []map[string]any
	decode(t, w, &records)
	require.Len(t, records, 1)
	assert.Equal(t, "absent", records[0]["status"])

	// Single record append, then per-student stats.
	w = doJSON(t, r, http.MethodPost, "/api/attendance", gin.H{
		"roll_number": "R1", "date": "2026-09-02", "status": "present",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/attendance?roll_number=R1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		History []map[string]any `json:"history"`
		Stats   struct {
			Total      int     `json:"total"`
			Present    int     `json:"present"`
			Percentage float64 `json:"percentage"`
		} `json:"stats"`
	}
	decode(t, w, &resp)
	assert.Len(t, resp.History, 2)
	assert.Equal(t, 2, resp.Stats.Total)
	assert.Equal(t, 1, resp.Stats.Present)
	assert.InDelta(t, 50.0, resp.Stats.Percentage, 0.001)
}

func TestFeedbackUpsertAndList(t *testing.T) {
	r := newTestRouter(t)

	fb := gin.H{
		"student_id": "STU-R1", "roll_number": "R1", "date": "2026-09-01",
		"overall_rating": 3, "session_content": 3, "practical_applicability": 3, "trainer_interaction": 3,
	}
	w := doJSON(t, r, http.MethodPost, "/api/feedback", fb)
	require.Equal(t, http.StatusOK, w.Code)

	fb["overall_rating"] = 5
	w = doJSON(t, r, http.MethodPost, "/api/feedback", fb)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/feedback", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fbs []map[string]any
	decode(t, w, &fbs)
	require.Len(t, fbs, 1)
	assert.Equal(t, 5.0, fbs[0]["overall_rating"])
}

func TestDashboardStatsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/students", gin.H{
		"name": "Asha", "roll_number": "R1", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	today := dashboard.Today()
	w = doJSON(t, r, http.MethodPost, "/api/attendance", []gin.H{
		{"roll_number": "R1", "date": today, "status": "present"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/stats/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		TotalStudents int     `json:"total_students"`
		PresentToday  int     `json:"present_today"`
		AttendancePct float64 `json:"attendance_pct"`
		AvgFeedback   float64 `json:"avg_feedback"`
	}
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.TotalStudents)
	assert.Equal(t, 1, stats.PresentToday)
	assert.InDelta(t, 100.0, stats.AttendancePct, 0.001)
	assert.Zero(t, stats.AvgFeedback)
}

func TestEmptyCollectionsSerializeAsArrays(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/students", "/api/attendance", "/api/feedback"} {
		w := doJSON(t, r, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "[]", string(bytes.TrimSpace(w.Body.Bytes())), path)
	}
}

func TestBearerGuardOnAdminRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := store.Open("sqlite", filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Client))

	users := auth.NewUsers(db.Client)
	require.NoError(t, users.Seed(context.Background(), "admin", "secret", "admin"))

	h := New(
		zap.NewNop(),
		users,
		roster.NewService(roster.NewRepository(db.Client)),
		attendance.NewService(attendance.NewRepository(db.Client)),
		feedback.NewService(feedback.NewRepository(db.Client)),
		dashboard.NewService(db.Client),
		db,
		store.NewRedis("localhost:6379"),
		TokenConfig{Issuer: "test", SigningKey: "test-key", TTL: time.Hour},
	)
	r := gin.New()
	h.Register(r, true)

	body := gin.H{"name": "Asha", "roll_number": "R1", "password": "pw"}
	w := doJSON(t, r, http.MethodPost, "/api/students", body)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/system/login", gin.H{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	decode(t, w, &login)
	require.NotEmpty(t, login.Token)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/api/students", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
