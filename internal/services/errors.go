package services

import (
	"errors"

	"github.com/devfolio/portfolio/internal/metrics"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrProjectNotFound    = errors.New("project not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError carries a message safe to show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// outcome maps a use-case error to a metrics result label.
func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.As(err, &verr), errors.Is(err, ErrInvalidCredentials):
		return metrics.ResultFailure
	default:
		return metrics.ResultError
	}
}
