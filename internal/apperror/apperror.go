// Package apperror defines the error taxonomy shared by every layer.
//
// Lower layers wrap one of the sentinels below in an *AppError (or with
// fmt.Errorf and %w). Only the HTTP handler layer turns them into status
// codes, using errors.Is against the sentinels.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	// The identity provider failed during the code-for-token exchange.
	ErrUpstreamAuth = errors.New("upstream auth error")
	// The identity provider failed while returning the user's profile.
	ErrUpstreamProfile = errors.New("upstream profile error")

	ErrMalformedSession  = errors.New("malformed session")
	ErrUnauthorizedAdmin = errors.New("unauthorized admin")
)

type AppError struct {
	Err     error  // sentinel this error matches with errors.Is
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error, kept for logs only
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches the
// sentinel and errors.As can still reach a wrapped transport error.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// UpstreamAuth reports a failed authorization-code exchange.
func UpstreamAuth(message string, cause error) *AppError {
	return &AppError{Err: ErrUpstreamAuth, Message: message, Cause: cause}
}

// UpstreamProfile reports a failed profile fetch.
func UpstreamProfile(message string, cause error) *AppError {
	return &AppError{Err: ErrUpstreamProfile, Message: message, Cause: cause}
}

// MalformedSession reports a session cookie that could not be decoded.
// Handlers treat it exactly like a missing session.
func MalformedSession(cause error) *AppError {
	return &AppError{Err: ErrMalformedSession, Message: "session cookie is malformed", Cause: cause}
}

// UnauthorizedAdmin reports a wrong or missing admin secret.
func UnauthorizedAdmin() *AppError {
	return &AppError{Err: ErrUnauthorizedAdmin, Message: "invalid admin secret"}
}
