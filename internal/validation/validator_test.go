package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/listenupapp/artfetch/internal/errors"
	"github.com/listenupapp/artfetch/internal/validation"
)

type testRequest struct {
	Subject    string `json:"subject" validate:"notblank,max=200"`
	Collection string `json:"collection,omitempty" validate:"max=200"`
	Page       int    `json:"page" validate:"gte=1"`
	PageSize   int    `json:"page_size" validate:"gte=1,lte=100"`
}

func validRequest() testRequest {
	return testRequest{Subject: "anya", Collection: "spy x family", Page: 1, PageSize: 10}
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(validRequest()))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		mutate    func(*testRequest)
		wantField string
	}{
		{"blank subject", func(r *testRequest) { r.Subject = "   " }, "subject"},
		{"subject too long", func(r *testRequest) { r.Subject = strings.Repeat("a", 201) }, "subject"},
		{"page zero", func(r *testRequest) { r.Page = 0 }, "page"},
		{"page size zero", func(r *testRequest) { r.PageSize = 0 }, "page_size"},
		{"page size too large", func(r *testRequest) { r.PageSize = 101 }, "page_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := v.Validate(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			var domainErr *apperrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Contains(t, domainErr.Message, tt.wantField)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	req := validRequest()
	req.PageSize = 500

	err := v.Validate(req)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "page_size")
	assert.NotContains(t, err.Error(), "PageSize")
}

func TestValidator_ReportsAllFieldsSorted(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{})
	require.Error(t, err)
	assert.Equal(t,
		"invalid request: page must be greater than or equal to 1; page_size must be greater than or equal to 1; subject is required",
		err.Error())
}
