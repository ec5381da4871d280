package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/dto"
	"github.com/ignatzorin/lemon-backend/internal/http/handlers/common"
	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/service"
)

// AuthAPI - операции AuthService, которые нужны HTTP слою.
type AuthAPI interface {
	Register(ctx context.Context, providerName string, creds service.Credentials) (*service.RegisterResult, error)
	Login(ctx context.Context, providerName string, creds service.Credentials, meta service.SessionMeta) (*service.AuthResult, error)
	Verify(ctx context.Context, check service.CodeCheck, meta service.SessionMeta) (*service.AuthResult, error)
	ResendVerification(ctx context.Context, codeType models.VerificationType, mobile, countryCode string) error
	ForgotPassword(ctx context.Context, mobile, countryCode string) error
	ResetPassword(ctx context.Context, mobile, countryCode, code, newPassword string) error
	ChangePassword(ctx context.Context, userID, currentSessionID uuid.UUID, currentPassword, newPassword string) error
	Refresh(ctx context.Context, refreshToken string, meta service.SessionMeta) (*service.TokenPair, error)
	Logout(ctx context.Context, claims *service.Claims) error
	ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	DeleteSession(ctx context.Context, sessionID, userID uuid.UUID) error
}

const defaultProvider = "mobile"

// Ответ на resend и forgot-password одинаков для любого номера.
const codeRequestedMessage = "если номер зарегистрирован, код отправлен"

// AuthHandler предоставляет HTTP слой для регистрации, входа и работы с сессиями.
type AuthHandler struct {
	auth AuthAPI
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth AuthAPI) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register обрабатывает POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	result, err := h.auth.Register(c.Request.Context(), providerOrDefault(req.Provider), service.Credentials{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MobileNumber: req.MobileNumber,
		CountryCode:  req.CountryCode,
		Email:        req.Email,
		Password:     req.Password,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	message := "код подтверждения отправлен"
	if !result.VerificationSent {
		message = "аккаунт создан, но отправить код не удалось, запросите его повторно"
	}

	c.JSON(http.StatusCreated, dto.RegisterResponse{
		User:             result.User.Summary(),
		VerificationSent: result.VerificationSent,
		Message:          message,
	})
}

// Login обрабатывает POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), providerOrDefault(req.Provider), service.Credentials{
		MobileNumber: req.MobileNumber,
		CountryCode:  req.CountryCode,
		Password:     req.Password,
	}, common.SessionMeta(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewAuthResponse(result))
}

// Verify обрабатывает POST /auth/verify. По умолчанию тип кода signup.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	codeType := models.VerificationTypeSignup
	if req.Type != "" {
		codeType = models.VerificationType(req.Type)
	}

	result, err := h.auth.Verify(c.Request.Context(), service.CodeCheck{
		Type:        codeType,
		Recipient:   req.MobileNumber,
		CountryCode: req.CountryCode,
		Code:        req.Code,
	}, common.SessionMeta(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewAuthResponse(result))
}

// ResendVerification обрабатывает POST /auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req dto.ResendVerificationRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	codeType := models.VerificationTypeSignup
	if req.Type != "" {
		codeType = models.VerificationType(req.Type)
	}

	if err := h.auth.ResendVerification(c.Request.Context(), codeType, req.MobileNumber, req.CountryCode); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, codeRequestedMessage, nil)
}

// ForgotPassword обрабатывает POST /auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.MobileNumber, req.CountryCode); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, codeRequestedMessage, nil)
}

// ResetPassword обрабатывает POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.MobileNumber, req.CountryCode, req.Code, req.NewPassword); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "пароль изменён, войдите заново", nil)
}

// ChangePassword обрабатывает POST /auth/change-password. Текущая сессия сохраняется.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, err := common.CurrentClaims(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req dto.ChangePasswordRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	sessionID, _ := claims.SessionID()
	if err := h.auth.ChangePassword(c.Request.Context(), userID, sessionID, req.CurrentPassword, req.NewPassword); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "пароль изменён", nil)
}

// RefreshToken обрабатывает POST /auth/refresh-token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	tokenPair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, common.SessionMeta(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewTokensResponse(tokenPair))
}

// Logout обрабатывает POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, err := common.CurrentClaims(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "выход выполнен", nil)
}

// ListSessions обрабатывает GET /auth/sessions - список активных сессий.
func (h *AuthHandler) ListSessions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	sessions, err := h.auth.ListSessions(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// DeleteSession обрабатывает DELETE /auth/sessions/:id - удаление конкретной сессии.
func (h *AuthHandler) DeleteSession(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	sessionID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	if err := h.auth.DeleteSession(c.Request.Context(), sessionID, userID); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "сессия успешно удалена", nil)
}

func providerOrDefault(name string) string {
	if name == "" {
		return defaultProvider
	}
	return name
}
