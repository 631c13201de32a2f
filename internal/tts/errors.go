package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common synthesis errors
var (
	// ErrNoAPIKey indicates no provider credential has been configured
	ErrNoAPIKey = errors.New("API key is missing - set ELEVENLABS_API_KEY or api_key in the config")

	// ErrEmptyAudio indicates the provider answered with no audio bytes
	ErrEmptyAudio = errors.New("provider returned empty audio")

	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid synthesis engine specified")

	// ErrEmptyText indicates an empty sentence was submitted
	ErrEmptyText = errors.New("text cannot be empty")
)

// ErrorKind is the user-facing class of a synthesis failure.
type ErrorKind string

const (
	// KindAuth covers missing or rejected credentials and permission errors.
	KindAuth ErrorKind = "AUTH"
	// KindGeneric covers every other failure, including storage errors.
	KindGeneric ErrorKind = "GENERIC"
	// KindCanceled is used when the caller's context ended first.
	KindCanceled ErrorKind = "CANCELED"
)

// SynthesisError is a classified provider or pipeline failure.
type SynthesisError struct {
	Kind    ErrorKind
	Status  int // HTTP status, 0 when not applicable
	Message string
	Cause   error
}

// Error implements the error interface
func (e *SynthesisError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error
func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// IsAuth reports whether the failure needs the user to fix their credential.
func (e *SynthesisError) IsAuth() bool {
	return e.Kind == KindAuth
}

// UserMessage is the text shown to the user for this failure.
func (e *SynthesisError) UserMessage() string {
	switch e.Kind {
	case KindAuth:
		return "Permission denied: check that your API key is valid and has text-to-speech access."
	case KindCanceled:
		return "Download canceled."
	default:
		return "Failed to download audio: " + e.Message
	}
}

// NewSynthesisError creates a classified error. The kind is derived from
// status and message.
func NewSynthesisError(status int, message string, cause error) *SynthesisError {
	return &SynthesisError{
		Kind:    classify(status, message),
		Status:  status,
		Message: message,
		Cause:   cause,
	}
}

// Classify converts any error into a SynthesisError, keeping an existing
// classification when err already carries one.
func Classify(err error) *SynthesisError {
	if err == nil {
		return nil
	}
	var se *SynthesisError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &SynthesisError{Kind: KindCanceled, Message: err.Error(), Cause: err}
	}
	if errors.Is(err, ErrNoAPIKey) {
		return &SynthesisError{Kind: KindAuth, Message: err.Error(), Cause: err}
	}
	return &SynthesisError{Kind: classify(0, err.Error()), Message: err.Error(), Cause: err}
}

// Generic wraps err as a generic failure regardless of its message.
func Generic(message string, err error) *SynthesisError {
	return &SynthesisError{Kind: KindGeneric, Message: message, Cause: err}
}

// IsAuthError reports whether err is classified as an auth failure.
func IsAuthError(err error) bool {
	var se *SynthesisError
	return errors.As(err, &se) && se.IsAuth()
}

func classify(status int, message string) ErrorKind {
	if status == 401 {
		return KindAuth
	}
	lower := strings.ToLower(message)
	if strings.Contains(lower, "401") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "permissions") {
		return KindAuth
	}
	return KindGeneric
}
