package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMappingError_Error_IncludesObjectTypeAndProvider(t *testing.T) {
	err := NewUnrecognizedProviderError("deal", "greenhouse", "provider does not serve crm objects")

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "unrecognized_provider"), msg)
	assert.Contains(t, msg, "objectType=deal")
	assert.Contains(t, msg, "provider=greenhouse")
	assert.Contains(t, msg, "provider does not serve crm objects")
}

func TestMappingError_Error_UnknownPair(t *testing.T) {
	err := NewInvalidInputError("", "", "object is not a JSON object")

	assert.Equal(t, "invalid_input objectType=<unknown> provider=<unknown> object is not a JSON object", err.Error())
}

func TestMappingError_Error_WithCause(t *testing.T) {
	cause := errors.New("schema has no fields")
	err := NewMappingResolutionError("lead", "hubspot", "resolved mapping is empty", cause)

	assert.Contains(t, err.Error(), "schema has no fields")
	assert.ErrorIs(t, err, cause)
}

func TestMappingError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *MappingError
		want int
	}{
		{"unrecognized provider is 404", NewUnrecognizedProviderError("deal", "x", "m"), http.StatusNotFound},
		{"invalid input is 400", NewInvalidInputError("deal", "x", "m"), http.StatusBadRequest},
		{"mapping resolution is 500", NewMappingResolutionError("deal", "x", "m", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestMappingError_NeverRetryable(t *testing.T) {
	assert.False(t, NewUnrecognizedProviderError("deal", "x", "m").IsRetryable())
	assert.False(t, NewMappingResolutionError("deal", "x", "m", nil).IsRetryable())
	assert.False(t, NewInvalidInputError("deal", "x", "m").IsRetryable())
}

func TestKindHelpers_UnwrapWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("unify failed: %w", NewInvalidInputError("deal", "pipedrive", "bad"))

	assert.Equal(t, KindInvalidInput, Kind(wrapped))
	assert.True(t, IsInvalidInput(wrapped))
	assert.False(t, IsUnrecognizedProvider(wrapped))
	assert.False(t, IsMappingResolution(wrapped))
	assert.Equal(t, ErrorKind(""), Kind(errors.New("plain")))
}
