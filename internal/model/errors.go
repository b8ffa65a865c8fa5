package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all layers.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// Failure kinds surfaced by the listing and submission paths.
var (
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrPhotoUploadFailed = errors.New("photo upload failed")
	ErrItemCreateFailed  = errors.New("item create failed")
	ErrPhotoLinkFailed   = errors.New("photo link failed")
)

// Submission workflow errors.
var (
	ErrInvalidTransition = errors.New("invalid step transition")
	ErrSubmitInProgress  = errors.New("submission already in progress")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}
