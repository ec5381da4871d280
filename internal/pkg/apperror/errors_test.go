package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeValidation:         http.StatusBadRequest,
		ErrCodeConflict:           http.StatusConflict,
		ErrCodeInvalidCredentials: http.StatusUnauthorized,
		ErrCodeNotVerified:        http.StatusForbidden,
		ErrCodeForbidden:          http.StatusForbidden,
		ErrCodeCodeExpired:        http.StatusBadRequest,
		ErrCodeCodeMismatch:       http.StatusBadRequest,
		ErrCodeCodeNotFound:       http.StatusBadRequest,
		ErrCodeTokenExpired:       http.StatusUnauthorized,
		ErrCodeProvider:           http.StatusBadGateway,
		ErrCodeInternal:           http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, string(code))
	}
}

func TestErrorsIs_MatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("auth service: %w", Wrap(errors.New("boom"), ErrCodeCodeExpired, "expired"))

	assert.True(t, errors.Is(wrapped, ErrOTPExpired))
	assert.False(t, errors.Is(wrapped, ErrOTPMismatch))
	assert.Equal(t, ErrCodeCodeExpired, CodeOf(wrapped))
}

func TestCodeOf_UnknownError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("sql: connection reset")))
}

func TestErrorsIs_SentinelsWithSharedCode(t *testing.T) {
	// Сравнение идёт по коду, сообщение не учитывается.
	assert.True(t, errors.Is(ErrRoleNotFound, ErrUserNotFound))
	assert.True(t, errors.Is(New(ErrCodeTokenInvalid, "токен отозван"), ErrTokenInvalid))
	assert.False(t, errors.Is(ErrInactiveUser, ErrNotVerified))
}
