package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/dr-oncall-be/internal/auth"
	"github.com/isdelr/dr-oncall-be/internal/database"
	"github.com/isdelr/dr-oncall-be/internal/models"
	"github.com/jmoiron/sqlx"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, username, email, password string) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
}

// UserService provides registration and credential checks over the users table.
type UserService struct {
	db     *sqlx.DB
	hasher auth.PasswordHasher
	// dummyHash is compared against when the username is unknown so that
	// both failure paths cost one hash comparison.
	dummyHash string
}

// NewUserService creates a new UserService.
func NewUserService(db *sqlx.DB, hasher auth.PasswordHasher) *UserService {
	dummy, _ := hasher.Hash("dr-oncall-unknown-user")
	return &UserService{db: db, hasher: hasher, dummyHash: dummy}
}

type registration struct {
	Username string `json:"username" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,notblank"`
	Password string `json:"password" validate:"required,notblank"`
}

type credentials struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required,notblank"`
}

// Register creates a new user, hashing their password. Uniqueness of the
// username and email is left to the table's constraints so that concurrent
// registrations cannot both succeed.
func (s *UserService) Register(ctx context.Context, username, email, password string) (models.User, error) {
	if err := validateStruct(registration{Username: username, Email: email, Password: password}); err != nil {
		return models.User{}, err
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return models.User{}, &ValidationError{Fields: []string{"password"}}
		}
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{Username: username, Email: email}
	err = database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		res, err := conn.ExecContext(ctx,
			"INSERT INTO users (username, email, password) VALUES (?, ?, ?)",
			username, email, hashedPassword)
		if err != nil {
			return err
		}
		user.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, ErrDuplicateIdentity
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// Authenticate verifies a user's credentials. Unknown usernames and wrong
// passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	if err := validateStruct(credentials{Username: username, Password: password}); err != nil {
		return models.User{}, err
	}

	var user models.User
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &user,
			"SELECT id, username, email, password FROM users WHERE username = ?", username)
	})
	if errors.Is(err, sql.ErrNoRows) {
		_ = s.hasher.Compare(s.dummyHash, password)
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.Password, password); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't hand the hash to callers
	user.Password = ""
	return user, nil
}
