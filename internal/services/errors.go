package services

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateIdentity is returned when a username or email is taken.
	ErrDuplicateIdentity = errors.New("username or email already exists")
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("not found")
)

// ValidationError lists the input fields that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
