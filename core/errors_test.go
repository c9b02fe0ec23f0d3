package core

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorCodeStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeServiceUnavailable, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Status())
		})
	}
}

func TestErrorCodeOf(t *testing.T) {
	errBoom := NewConflictError("boom")

	assert.Equal(t, CodeConflict, ErrorCodeOf(errBoom))
	assert.Equal(t, CodeConflict, ErrorCodeOf(errors.Wrap(errBoom, "creating thing")))
	assert.Equal(t, CodeValidation, ErrorCodeOf(NewValidationError(nil, FieldError{Field: "name", Error: "bad"})))
	assert.Equal(t, ErrorCode(""), ErrorCodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), ErrorCodeOf(nil))
}

func TestErrorWithField(t *testing.T) {
	errDup := NewConflictError("duplicate name")
	withField := errDup.WithField("displayName", "already taken")

	assert.Nil(t, errDup.Details)
	assert.Equal(t, map[string]string{"displayName": "already taken"}, withField.Details)
	assert.True(t, errors.Is(withField, errDup))
	assert.False(t, errors.Is(withField, NewConflictError("other")))
}

func TestShutdownError(t *testing.T) {
	err := NewShutdownError("integrity issue")
	assert.True(t, IsShutdown(err))
	assert.True(t, IsShutdown(errors.Wrap(err, "wrapped")))
	assert.False(t, IsShutdown(errors.New("integrity issue")))
}

func TestErrorDetails(t *testing.T) {
	type payload struct {
		Name string `json:"name" validate:"required"`
	}
	vErrs := Validate.Struct(payload{})

	assert.Equal(t, map[string]string{"name": requiredText}, ErrorDetails(vErrs))
	assert.Equal(t, CodeValidation, ErrorCodeOf(vErrs))
	assert.Equal(t,
		map[string]string{"limit": "must be a number"},
		ErrorDetails(NewValidationError(nil, FieldError{Field: "limit", Error: "must be a number"})),
	)
	assert.Equal(t,
		map[string]string{"displayName": "taken"},
		ErrorDetails(errors.Wrap(NewConflictError("dup").WithField("displayName", "taken"), "creating")),
	)
	assert.Nil(t, ErrorDetails(errors.New("plain")))
}
