package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает учётную запись пользователя мобильного приложения.
// Пара (MobileNumber, CountryCode) уникальна.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	MobileNumber string     `db:"mobile_number" json:"mobile_number"`
	CountryCode  string     `db:"country_code" json:"country_code"`
	Email        *string    `db:"email" json:"email,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	IsVerified   bool       `db:"is_verified" json:"is_verified"`
	IsAdmin      bool       `db:"is_admin" json:"is_admin"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FullPhoneNumber возвращает номер в формате для SMS шлюза.
func (u *User) FullPhoneNumber() string {
	return u.CountryCode + u.MobileNumber
}

// FullName возвращает имя и фамилию через пробел.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Session представляет сохранённую сессию пользователя.
// RefreshTokenID совпадает с jti выданного refresh токена.
type Session struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	RefreshTokenID uuid.UUID `db:"refresh_token_id" json:"-"`
	UserAgent      *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress      *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt      time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// UserSummary - публичное представление пользователя в ответах API.
type UserSummary struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	MobileNumber string    `json:"mobile_number"`
	CountryCode  string    `json:"country_code"`
	Email        *string   `json:"email,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary собирает UserSummary из пользователя.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		MobileNumber: u.MobileNumber,
		CountryCode:  u.CountryCode,
		Email:        u.Email,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
	}
}
