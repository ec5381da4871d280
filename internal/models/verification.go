package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationType определяет назначение одноразового кода.
type VerificationType string

const (
	VerificationTypeSignup        VerificationType = "signup"
	VerificationTypeLogin         VerificationType = "login"
	VerificationTypePasswordReset VerificationType = "password_reset"
)

// Valid проверяет, что тип кода известен.
func (t VerificationType) Valid() bool {
	switch t {
	case VerificationTypeSignup, VerificationTypeLogin, VerificationTypePasswordReset:
		return true
	}
	return false
}

// VerificationCode - одноразовый код, отправленный на номер телефона.
// Активным считается только последний неиспользованный код для пары (получатель, тип).
type VerificationCode struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	UserID       *uuid.UUID       `db:"user_id" json:"user_id,omitempty"`
	Type         VerificationType `db:"type" json:"type"`
	MobileNumber string           `db:"mobile_number" json:"mobile_number"`
	CountryCode  string           `db:"country_code" json:"country_code"`
	Code         string           `db:"code" json:"-"`
	ExpiresAt    time.Time        `db:"expires_at" json:"expires_at"`
	Consumed     bool             `db:"consumed" json:"consumed"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// IsExpired сообщает, истёк ли код к моменту now.
func (c *VerificationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
