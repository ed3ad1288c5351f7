package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies transformation engine failures.
type ErrorKind string

const (
	// KindUnrecognizedProvider: the provider is not configured for the object type.
	KindUnrecognizedProvider ErrorKind = "unrecognized_provider"
	// KindMappingResolution: an internal invariant was violated (configuration bug).
	KindMappingResolution ErrorKind = "mapping_resolution"
	// KindInvalidInput: the caller supplied a malformed object or unknown object type.
	KindInvalidInput ErrorKind = "invalid_input"
)

// MappingError is a structured error raised while resolving, unifying or
// disunifying an object. It always carries the (object type, provider) pair.
// None of these errors are transient: mapping resolution is deterministic.
type MappingError struct {
	Kind       ErrorKind
	ObjectType string
	Provider   string
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	parts := []string{
		string(e.Kind),
		fmt.Sprintf("objectType=%s", orUnknown(e.ObjectType)),
		fmt.Sprintf("provider=%s", orUnknown(e.Provider)),
		e.Message,
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *MappingError) Unwrap() error {
	return e.Cause
}

// IsRetryable implements retry.RetryableError. Always false.
func (e *MappingError) IsRetryable() bool {
	return false
}

// HTTPStatus returns the status class the web layer should surface.
func (e *MappingError) HTTPStatus() int {
	switch e.Kind {
	case KindUnrecognizedProvider:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "<unknown>"
	}
	return s
}

// NewUnrecognizedProviderError reports a provider that is not configured for an object type.
func NewUnrecognizedProviderError(objectType, provider, message string) *MappingError {
	return &MappingError{
		Kind:       KindUnrecognizedProvider,
		ObjectType: objectType,
		Provider:   provider,
		Message:    message,
	}
}

// NewMappingResolutionError reports an internal mapping invariant violation.
func NewMappingResolutionError(objectType, provider, message string, cause error) *MappingError {
	return &MappingError{
		Kind:       KindMappingResolution,
		ObjectType: objectType,
		Provider:   provider,
		Message:    message,
		Cause:      cause,
	}
}

// NewInvalidInputError reports malformed caller input.
func NewInvalidInputError(objectType, provider, message string) *MappingError {
	return &MappingError{
		Kind:       KindInvalidInput,
		ObjectType: objectType,
		Provider:   provider,
		Message:    message,
	}
}

// Kind extracts the ErrorKind from an error, or "" if it is not a MappingError.
func Kind(err error) ErrorKind {
	var mErr *MappingError
	if errors.As(err, &mErr) {
		return mErr.Kind
	}
	return ""
}

// IsUnrecognizedProvider returns true if err is an unrecognized provider error.
func IsUnrecognizedProvider(err error) bool {
	return Kind(err) == KindUnrecognizedProvider
}

// IsMappingResolution returns true if err is a mapping resolution error.
func IsMappingResolution(err error) bool {
	return Kind(err) == KindMappingResolution
}

// IsInvalidInput returns true if err is an invalid input error.
func IsInvalidInput(err error) bool {
	return Kind(err) == KindInvalidInput
}
