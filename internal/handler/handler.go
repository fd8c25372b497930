package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"internportal/internal/attendance"
	"internportal/internal/auth"
	"internportal/internal/dashboard"
	"internportal/internal/feedback"
	"internportal/internal/metrics"
	"internportal/internal/roster"
	"internportal/internal/store"
)

// TokenConfig carries the JWT parameters used when issuing login tokens.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	TTL        time.Duration
}

// Handler wires the HTTP API onto the domain services.
type Handler struct {
	log        *zap.Logger
	users      *auth.Users
	roster     *roster.Service
	attendance *attendance.Service
	feedback   *feedback.Service
	dashboard  *dashboard.Service
	db         *store.DB
	redis      *store.Redis
	tokens     TokenConfig
}

// New creates a handler.
func New(log *zap.Logger, users *auth.Users, ros *roster.Service, att *attendance.Service,
	fb *feedback.Service, dash *dashboard.Service, db *store.DB, redis *store.Redis, tokens TokenConfig) *Handler {
	return &Handler{
		log:        log,
		users:      users,
		roster:     ros,
		attendance: att,
		feedback:   fb,
		dashboard:  dash,
		db:         db,
		redis:      redis,
		tokens:     tokens,
	}
}

// Register mounts the API routes. When requireAuth is set the admin mutation
// routes demand a bearer token issued at login.
func (h *Handler) Register(r *gin.Engine, requireAuth bool) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.GET("/stats/dashboard", h.DashboardStats)
	api.POST("/system/login", h.SystemLogin)
	api.POST("/student/login", h.StudentLogin)
	api.GET("/students", h.ListStudents)
	api.GET("/attendance", h.ListAttendance)
	api.GET("/feedback", h.ListFeedback)
	api.POST("/feedback", h.SubmitFeedback)

	admin := api.Group("")
	if requireAuth {
		admin.Use(auth.Bearer(h.tokens.SigningKey, h.tokens.Issuer))
	}
	admin.POST("/students", h.CreateStudent)
	admin.POST("/students/upload", h.UploadStudents)
	admin.DELETE("/students/:id", h.DeleteStudent)
	admin.POST("/attendance", h.RecordAttendance)
}

// Healthz reports db and redis connectivity.
func (h *Handler) Healthz(c *gin.Context) {
	t0 := time.Now()
	dbHealthy := h.db != nil && h.db.Client.PingContext(c.Request.Context()) == nil
	if dbHealthy {
		metrics.ObserveDBPing(time.Since(t0))
	}
	redisHealthy := h.redis.Healthy(c.Request.Context())
	status := http.StatusOK
	if !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "db": dbHealthy, "redis": redisHealthy})
}

// ---------- Dashboard ----------

func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context(), dashboard.Today())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ---------- Logins ----------

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) SystemLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid credentials"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	token, _, err := auth.Issue(user.Username, user.Role, h.tokens.Issuer, h.tokens.SigningKey, h.tokens.TTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user, "token": token})
}

type studentLoginRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// StudentLogin accepts either the derived student id or the roll number in
// the student_id field.
func (h *Handler) StudentLogin(c *gin.Context) {
	var req studentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	st, err := h.roster.Authenticate(c.Request.Context(), req.StudentID, req.Password)
	if errors.Is(err, roster.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid credentials"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	token, _, err := auth.Issue(st.StudentID, "student", h.tokens.Issuer, h.tokens.SigningKey, h.tokens.TTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": st, "token": token})
}

// ---------- Roster ----------

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.roster.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if students == nil {
		students = []roster.Student{}
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req roster.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	id, err := h.roster.Create(c.Request.Context(), req)
	if errors.Is(err, roster.ErrDuplicateRoll) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "student exists"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.roster.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UploadStudents bulk-imports a roster CSV uploaded as the multipart field
// "file".
func (h *Handler) UploadStudents(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "no file"})
		return
	}
	defer file.Close()

	count, err := h.roster.ImportCSV(c.Request.Context(), file)
	if err != nil {
		h.log.Warn("csv import failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	metrics.ImportedStudents.Add(float64(count))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("imported %d students", count)})
}

// ---------- Attendance ----------

// RecordAttendance accepts either a single record or a list. A list replaces
// the full record set of its day.
func (h *Handler) RecordAttendance(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
		var recs []attendance.Record
		if err := json.Unmarshal(body, &recs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		if err := h.attendance.RecordBulk(c.Request.Context(), recs); err != nil {
			if errors.Is(err, attendance.ErrMissingFields) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	var rec attendance.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	if err := h.attendance.RecordOne(c.Request.Context(), rec); err != nil {
		if errors.Is(err, attendance.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListAttendance filters by optional date and roll_number query params. When
// roll_number is given the response carries the history plus stats.
func (h *Handler) ListAttendance(c *gin.Context) {
	date := c.Query("date")
	rollNumber := c.Query("roll_number")

	recs, stats, err := h.attendance.Query(c.Request.Context(), date, rollNumber)
	if err != nil {
		h.fail(c, err)
		return
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	if stats != nil {
		c.JSON(http.StatusOK, gin.H{"history": recs, "stats": stats})
		return
	}
	c.JSON(http.StatusOK, recs)
}

// ---------- Feedback ----------

func (h *Handler) SubmitFeedback(c *gin.Context) {
	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	if err := h.feedback.Submit(c.Request.Context(), fb); err != nil {
		if errors.Is(err, feedback.ErrMissingIdentity) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListFeedback(c *gin.Context) {
	fbs, err := h.feedback.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if fbs == nil {
		fbs = []feedback.Feedback{}
	}
	c.JSON(http.StatusOK, fbs)
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
}
