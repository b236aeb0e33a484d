package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Domain errors. Services wrap them with the offending id and state; callers
// match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNotAvailable       = errors.New("exam not available")
	ErrAlreadySubmitted   = errors.New("attempt already submitted")
	ErrAttemptExpired     = errors.New("attempt expired")
	ErrEmptyExam          = errors.New("exam has no questions")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidAnswerKey   = errors.New("invalid answer key")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrInvalidToken       = errors.New("invalid token")
)

// notFound maps a store miss to ErrNotFound and passes other errors through.
func notFound(err error, what string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s %v: %w", what, id, err)
}
