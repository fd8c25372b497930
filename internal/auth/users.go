package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the username/password pair does not
// match a stored account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is a system account (admin or trainer).
type User struct {
	ID       string `json:"-"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Users persists system accounts.
type Users struct {
	db *sql.DB
}

// NewUsers creates the repository.
func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

// Seed creates the account if the username is not taken. Existing accounts
// are never modified through this path.
func (u *Users) Seed(ctx context.Context, username, password, role string) error {
	if username == "" || password == "" {
		return errors.New("username and password required")
	}
	var exists bool
	err := u.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM system_users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if exists {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = u.db.ExecContext(ctx, `
		INSERT INTO system_users (id, username, password_hash, role, created_at_ms)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), username, string(hash), role, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Authenticate verifies the credential pair and returns the account.
func (u *Users) Authenticate(ctx context.Context, username, password string) (User, error) {
	var (
		user User
		hash string
	)
	err := u.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role FROM system_users WHERE username = $1`, username,
	).Scan(&user.ID, &user.Username, &hash, &user.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}
