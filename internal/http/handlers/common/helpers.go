package common

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/dto"
	"github.com/ignatzorin/lemon-backend/internal/http/middleware"
	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lemon-backend/internal/service"
	"github.com/ignatzorin/lemon-backend/internal/validation"
)

var (
	// ErrUserNotFound is returned when user is not found in context
	ErrUserNotFound = errors.New("пользователь не найден в контексте")

	// ErrInvalidUUID is returned when UUID parsing fails
	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// CurrentUserID extracts user ID from Gin context
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUserNotFound
	}

	return userID, nil
}

// CurrentClaims returns verified access token claims set by AuthMiddleware
func CurrentClaims(c *gin.Context) (*service.Claims, error) {
	raw, exists := c.Get(middleware.ContextClaimsKey)
	if !exists {
		return nil, ErrUserNotFound
	}

	claims, ok := raw.(*service.Claims)
	if !ok {
		return nil, ErrUserNotFound
	}

	return claims, nil
}

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		return uuid.Nil, apperror.Validation("некорректные параметры пути", map[string]string{
			paramName: "ожидается UUID",
		})
	}
	return parsed, nil
}

// BindJSON binds the request body; binding errors become VALIDATION_ERROR with per-field details
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		if fields := validation.FieldErrors(err); fields != nil {
			return apperror.Validation("ошибка валидации запроса", fields)
		}
		return apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректное тело запроса")
	}
	return nil
}

// SessionMeta collects client info stored with a session
func SessionMeta(c *gin.Context) service.SessionMeta {
	return service.SessionMeta{
		UserAgent: c.GetHeader("User-Agent"),
		IP:        c.ClientIP(),
	}
}

// RespondAppError maps err to its HTTP status; unknown errors are logged and masked as 500
func RespondAppError(c *gin.Context, err error) {
	status, body := middleware.ErrorBody(err)
	if status >= http.StatusInternalServerError {
		logger.Log.WithFields(map[string]interface{}{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Request error")
	}
	c.JSON(status, body)
}

// RespondSuccess sends a standardized success response
func RespondSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, dto.SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context) {
	RespondAppError(c, apperror.ErrUnauthorized)
}

// ParseIntQuery safely reads an integer query parameter with a fallback value
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// ParseBoolQuery reads an optional boolean query parameter
func ParseBoolQuery(c *gin.Context, key string) (*bool, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperror.Validation("некорректные параметры запроса", map[string]string{
			key: "ожидается true или false",
		})
	}
	return &parsed, nil
}

// NewTokensResponse converts a token pair to its API shape
func NewTokensResponse(pair *service.TokenPair) dto.TokensResponse {
	return dto.TokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}
}

// NewAuthResponse builds the user+tokens response
func NewAuthResponse(res *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		User:   res.User.Summary(),
		Tokens: NewTokensResponse(res.TokenPair),
	}
}
