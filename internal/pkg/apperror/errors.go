package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeNotVerified        ErrorCode = "NOT_VERIFIED"
	ErrCodeInactiveUser       ErrorCode = "INACTIVE_USER"
	ErrCodeCodeExpired        ErrorCode = "CODE_EXPIRED"
	ErrCodeCodeMismatch       ErrorCode = "CODE_MISMATCH"
	ErrCodeCodeNotFound       ErrorCode = "CODE_NOT_FOUND"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       ErrorCode = "TOKEN_INVALID"
	ErrCodeProvider           ErrorCode = "PROVIDER_ERROR"
	ErrCodeTooManyRequests    ErrorCode = "TOO_MANY_REQUESTS"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	// Fields содержит ошибки по полям для VALIDATION_ERROR.
	Fields map[string]string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки только по коду: errors.Is(err, ErrTokenInvalid) истинно для любой
// ошибки с кодом TOKEN_INVALID, в том числе с другим сообщением. Сентинелы с общим кодом
// (ErrUserNotFound и ErrRoleNotFound) через errors.Is не различаются, для этого
// ошибки репозитория сопоставляются до перевода в AppError.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation создаёт ошибку валидации с деталями по полям.
func Validation(message string, fields map[string]string) *AppError {
	e := New(ErrCodeValidation, message)
	e.Fields = fields
	return e
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized, ErrCodeInvalidCredentials, ErrCodeTokenExpired, ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeNotVerified, ErrCodeInactiveUser:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeCodeExpired, ErrCodeCodeMismatch, ErrCodeCodeNotFound:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeProvider:
		return http.StatusBadGateway
	case ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// As извлекает AppError из цепочки ошибок.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf возвращает код ошибки или INTERNAL_ERROR для неизвестных ошибок.
func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

var (
	ErrUserNotFound       = New(ErrCodeNotFound, "пользователь не найден")
	ErrRoleNotFound       = New(ErrCodeNotFound, "роль не найдена")
	ErrPermissionNotFound = New(ErrCodeNotFound, "право не найдено")
	ErrChatNotFound       = New(ErrCodeNotFound, "диалог не найден")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials = New(ErrCodeInvalidCredentials, "неверный номер телефона или пароль")
	ErrNotVerified        = New(ErrCodeNotVerified, "номер телефона не подтверждён")
	ErrInactiveUser       = New(ErrCodeInactiveUser, "аккаунт заблокирован")
	ErrUserAlreadyExists  = New(ErrCodeConflict, "пользователь с таким номером уже зарегистрирован")
	ErrOTPExpired         = New(ErrCodeCodeExpired, "срок действия кода истёк")
	ErrOTPMismatch        = New(ErrCodeCodeMismatch, "неверный код подтверждения")
	ErrOTPNotFound        = New(ErrCodeCodeNotFound, "код подтверждения не найден")
	ErrTokenExpired       = New(ErrCodeTokenExpired, "срок действия токена истёк")
	ErrTokenInvalid       = New(ErrCodeTokenInvalid, "токен невалиден")
)
