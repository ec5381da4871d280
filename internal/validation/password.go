package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
)

const (
	MinPasswordLength = 8
	// bcrypt учитывает только первые 72 байта пароля.
	MaxPasswordBytes = 72
)

// ValidatePassword проверяет надёжность пароля: 8-72 байта, заглавная и строчная буквы, цифра.
// Ошибка - VALIDATION_ERROR с полем password, в сообщении перечислено всё, чего не хватает.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return passwordError(fmt.Sprintf("пароль должен быть не менее %d символов", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return passwordError(fmt.Sprintf("пароль должен быть не длиннее %d байт", MaxPasswordBytes))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	var missing []string
	if !hasUpper {
		missing = append(missing, "заглавную букву")
	}
	if !hasLower {
		missing = append(missing, "строчную букву")
	}
	if !hasDigit {
		missing = append(missing, "цифру")
	}
	if len(missing) > 0 {
		return passwordError("пароль должен содержать " + strings.Join(missing, ", "))
	}
	return nil
}

func passwordError(msg string) error {
	return apperror.Validation(msg, map[string]string{"password": msg})
}
