package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error taxonomy. DocumentUnreadable and OutputWrite are fatal for a
// document; CapabilityUnavailable degrades a single page; CheckpointCorrupt
// means the persisted state is discarded and processing restarts at page 1.
// A quality-gate rejection is a routing signal, not an error, and has no
// sentinel here.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrDocumentUnreadable     = errors.New("document unreadable")
	ErrCapabilityUnavailable  = errors.New("vision capability unavailable")
	ErrOutputWrite            = errors.New("output write failure")
	ErrCheckpointCorrupt      = errors.New("checkpoint corrupt")
)

// NewAppError builds an AppError with a machine-readable code.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
