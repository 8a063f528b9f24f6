package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Configurationf("provider %q: base URL is required", "gelbooru")

	assert.True(t, Is(err, ErrConfiguration))
	assert.False(t, Is(err, ErrValidation))

	wrapped := fmt.Errorf("build engine: %w", err)
	assert.True(t, Is(wrapped, ErrConfiguration))
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Wrap(cause, CodeUnavailable, "cache store offline")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cache store offline: dial tcp: refused", err.Error())
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeConfiguration, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_WithDetails(t *testing.T) {
	base := Validation("validation failed")
	detailed := base.WithDetails(map[string]string{"page_size": "must be at most 100"})

	assert.Nil(t, base.Details)
	assert.Equal(t, map[string]string{"page_size": "must be at most 100"}, detailed.Details)
	assert.True(t, Is(detailed, ErrValidation))
}
