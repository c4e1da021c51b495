package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyContent   = errors.New("content is empty")
	ErrInvalidEmotion = errors.New("invalid emotion")
	ErrInvalidDay     = errors.New("invalid day")
)

// ValidationError is returned when caller input is rejected before any state changes
type ValidationError struct {
	Field  string
	Reason string
	kind   error
}

// NewEmptyContentError builds the error returned for blank entry content
func NewEmptyContentError() *ValidationError {
	return &ValidationError{Field: "content", Reason: "must not be blank", kind: ErrEmptyContent}
}

// NewInvalidEmotionError builds the error returned for an emotion outside the closed set
func NewInvalidEmotionError(value string) *ValidationError {
	return &ValidationError{Field: "emotion", Reason: fmt.Sprintf("unknown emotion %q", value), kind: ErrInvalidEmotion}
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Field + ": " + e.Reason
}

// Unwrap exposes the sentinel kind so errors.Is(err, ErrEmptyContent) works
func (e *ValidationError) Unwrap() error {
	return e.kind
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
