package dto

import (
	"github.com/ignatzorin/lemon-backend/internal/models"
)

// ErrorResponse - стандартный ответ с ошибкой.
// Fields заполняется для VALIDATION_ERROR.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// SuccessResponse - стандартный ответ без полезной нагрузки или с ней.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// TokensResponse - пара токенов.
type TokensResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthResponse - пользователь и токены после входа или подтверждения.
type AuthResponse struct {
	User   models.UserSummary `json:"user"`
	Tokens TokensResponse     `json:"tokens"`
}

// RegisterResponse - результат регистрации.
type RegisterResponse struct {
	User             models.UserSummary `json:"user"`
	VerificationSent bool               `json:"verification_sent"`
	Message          string             `json:"message"`
}

// Pagination - метаданные страницы.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}
