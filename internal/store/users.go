package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email,omitempty"`
	AuthProvider string    `json:"provider,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type NewUser struct {
	Username     string
	Password     string
	Email        string
	AuthProvider string
	AvatarURL    string
}

const userColumns = `id, username, password_hash, email, auth_provider, avatar_url, created_at`

func (s *Store) CreateUser(ctx context.Context, nu NewUser) (*User, error) {
	nu.Username = strings.TrimSpace(nu.Username)
	if nu.Username == "" {
		return nil, &ValidationError{Field: "username", Message: "is required"}
	}
	if nu.Password == "" {
		return nil, &ValidationError{Field: "password", Message: "is required"}
	}
	if nu.AuthProvider == "" {
		nu.AuthProvider = "local"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), s.cost)
	if err != nil {
		return nil, &ValidationError{Field: "password", Message: err.Error()}
	}

	if _, err := s.UserByUsername(ctx, nu.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, email, auth_provider, avatar_url, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		nu.Username, string(hash), nu.Email, nu.AuthProvider, nu.AvatarURL, millis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           id,
		Username:     nu.Username,
		PasswordHash: string(hash),
		Email:        nu.Email,
		AuthProvider: nu.AuthProvider,
		AvatarURL:    nu.AvatarURL,
		CreatedAt:    fromMillis(millis(now)),
	}, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// Authenticate checks username and password, returning ErrInvalidCredentials
// for an unknown user or a wrong password alike.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.UserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// SocialLogin returns the account linked to a provider identity, creating it
// on first sight. Provider tokens are trusted as given.
func (s *Store) SocialLogin(ctx context.Context, provider, email, name string) (*User, error) {
	if provider == "" {
		return nil, &ValidationError{Field: "provider", Message: "is required"}
	}

	username := strings.TrimSpace(name)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	if username == "" {
		return nil, &ValidationError{Field: "email", Message: "email or name is required"}
	}

	user, err := s.UserByUsername(ctx, username)
	if err == nil {
		if user.AuthProvider != provider {
			return nil, ErrUsernameTaken
		}
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// social accounts never log in with a password; store an unguessable one
	return s.CreateUser(ctx, NewUser{
		Username:     username,
		Password:     uuid.NewString(),
		Email:        email,
		AuthProvider: provider,
	})
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var created int64
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.AuthProvider, &u.AvatarURL, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}
