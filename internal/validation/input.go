package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinNameLength        = 1
	MaxNameLength        = 100
	MinMobileDigits      = 5
	MaxMobileDigits      = 15
	MinOTPLength         = 4
	MaxOTPLength         = 10
	MaxRoleNameLength    = 50
	MaxDescriptionLength = 500
)

var (
	mobileRegex      = regexp.MustCompile(`^\d+$`)
	countryCodeRegex = regexp.MustCompile(`^\+\d{1,4}$`)
	otpRegex         = regexp.MustCompile(`^\d+$`)
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	// Имя права вида "read:users"
	permissionRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*:[a-z][a-z0-9_]*$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateName проверяет имя или фамилию.
func ValidateName(fieldName, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s обязательно", fieldName)
	}
	return ValidateLength(fieldName, value, MinNameLength, MaxNameLength)
}

// ValidateMobileNumber проверяет номер телефона без кода страны: только цифры, 5-15 знаков.
func ValidateMobileNumber(mobile string) error {
	if mobile == "" {
		return fmt.Errorf("номер телефона обязателен")
	}
	if !mobileRegex.MatchString(mobile) {
		return fmt.Errorf("номер телефона может содержать только цифры")
	}
	if len(mobile) < MinMobileDigits || len(mobile) > MaxMobileDigits {
		return fmt.Errorf("номер телефона должен содержать от %d до %d цифр", MinMobileDigits, MaxMobileDigits)
	}
	return nil
}

// ValidateCountryCode проверяет код страны в формате "+1" ... "+9999".
func ValidateCountryCode(code string) error {
	if code == "" {
		return fmt.Errorf("код страны обязателен")
	}
	if !countryCodeRegex.MatchString(code) {
		return fmt.Errorf("код страны должен быть в формате +<1-4 цифры>")
	}
	return nil
}

// ValidateOTPCode проверяет формат одноразового кода.
func ValidateOTPCode(code string) error {
	if code == "" {
		return fmt.Errorf("код подтверждения обязателен")
	}
	if !otpRegex.MatchString(code) {
		return fmt.Errorf("код подтверждения может содержать только цифры")
	}
	if len(code) < MinOTPLength || len(code) > MaxOTPLength {
		return fmt.Errorf("код подтверждения должен содержать от %d до %d цифр", MinOTPLength, MaxOTPLength)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}
	if !emailLocalRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}
	if !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateRoleName проверяет имя роли.
func ValidateRoleName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("имя роли обязательно")
	}
	return ValidateLength("имя роли", name, 1, MaxRoleNameLength)
}

// ValidatePermissionName проверяет имя права вида "действие:ресурс".
func ValidatePermissionName(name string) error {
	if !permissionRegex.MatchString(name) {
		return fmt.Errorf("имя права должно быть в формате action:resource, например read:users")
	}
	return nil
}

// ValidateDescription проверяет необязательное описание.
func ValidateDescription(description *string) error {
	if description == nil {
		return nil
	}
	return ValidateLength("описание", strings.TrimSpace(*description), 0, MaxDescriptionLength)
}
