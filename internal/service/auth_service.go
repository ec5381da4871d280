package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lemon-backend/internal/repository"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByMobile(ctx context.Context, mobile, countryCode string) (*models.User, error)
	MarkVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
	CreateSession(ctx context.Context, session *models.Session) error
	ConsumeSession(ctx context.Context, refreshTokenID uuid.UUID) (*models.Session, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	DeleteSessionByID(ctx context.Context, sessionID, userID uuid.UUID) error
	DeleteAllSessions(ctx context.Context, userID uuid.UUID) error
	DeleteAllSessionsExcept(ctx context.Context, userID, exceptRefreshTokenID uuid.UUID) error
}

// DefaultRoleAssigner выдаёт роли по умолчанию новому пользователю.
type DefaultRoleAssigner interface {
	AssignDefaultRoles(ctx context.Context, userID uuid.UUID) error
}

// CodeService - операции OTPService, которыми пользуется AuthService.
type CodeService interface {
	CreateVerificationCode(ctx context.Context, req CodeRequest) error
	VerifyCode(ctx context.Context, check CodeCheck) (*models.VerificationCode, error)
}

// SessionMeta - данные клиента, сохраняемые вместе с сессией.
type SessionMeta struct {
	UserAgent string
	IP        string
}

// RegisterResult возвращает итог регистрации.
type RegisterResult struct {
	User             *models.User
	VerificationSent bool
}

// AuthResult возвращает итог входа или подтверждения номера.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// AuthService инкапсулирует бизнес-логику регистрации, подтверждения и сессий.
type AuthService struct {
	providers    *ProviderRegistry
	repo         AuthRepository
	roles        DefaultRoleAssigner
	codes        CodeService
	tokenManager *TokenManager
	blacklist    TokenBlacklist
	bcryptCost   int
	now          func() time.Time
}

// AuthDeps - зависимости AuthService.
type AuthDeps struct {
	Providers    *ProviderRegistry
	Repo         AuthRepository
	Roles        DefaultRoleAssigner
	Codes        CodeService
	TokenManager *TokenManager
	Blacklist    TokenBlacklist
	BcryptCost   int
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(deps AuthDeps) *AuthService {
	return &AuthService{
		providers:    deps.Providers,
		repo:         deps.Repo,
		roles:        deps.Roles,
		codes:        deps.Codes,
		tokenManager: deps.TokenManager,
		blacklist:    deps.Blacklist,
		bcryptCost:   deps.BcryptCost,
		now:          time.Now,
	}
}

// Register создаёт пользователя через провайдера и выдаёт роли по умолчанию.
// Если SMS не ушло, пользователь всё равно создан: VerificationSent=false, код можно запросить повторно.
func (s *AuthService) Register(ctx context.Context, providerName string, creds Credentials) (*RegisterResult, error) {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "неизвестный способ регистрации")
	}

	reg, err := provider.Register(ctx, creds)
	if err != nil {
		return nil, err
	}

	if err := s.roles.AssignDefaultRoles(ctx, reg.User.ID); err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id": reg.User.ID,
			"error":   err.Error(),
		}).Error("auth service: не удалось выдать роли по умолчанию")
	}

	return &RegisterResult{User: reg.User, VerificationSent: reg.CodeSent}, nil
}

// Login проверяет учётные данные и возвращает токены. Неподтверждённый пользователь
// получает NOT_VERIFIED без токенов.
func (s *AuthService) Login(ctx context.Context, providerName string, creds Credentials, meta SessionMeta) (*AuthResult, error) {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "неизвестный способ входа")
	}

	user, err := provider.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	return s.IssueSession(ctx, user, meta)
}

// Verify проверяет код signup или login. Signup код переводит пользователя в подтверждённые.
// В обоих случаях выдаётся пара токенов.
func (s *AuthService) Verify(ctx context.Context, check CodeCheck, meta SessionMeta) (*AuthResult, error) {
	if check.Type != models.VerificationTypeSignup && check.Type != models.VerificationTypeLogin {
		return nil, apperror.Validation("неподдерживаемый тип кода", map[string]string{
			"type": "допустимы signup и login",
		})
	}

	if _, err := s.codes.VerifyCode(ctx, check); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByMobile(ctx, check.Recipient, check.CountryCode)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("auth service: %w", err)
	}

	if !user.IsActive {
		return nil, apperror.ErrInactiveUser
	}

	if check.Type == models.VerificationTypeSignup && !user.IsVerified {
		if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("auth service: %w", err)
		}
		user.IsVerified = true
	}

	if !user.IsVerified {
		return nil, apperror.ErrNotVerified
	}

	return s.IssueSession(ctx, user, meta)
}

// ResendVerification отправляет новый код. Для неизвестного номера или пользователя,
// которому код этого типа не положен, ничего не делает и не сообщает об этом.
func (s *AuthService) ResendVerification(ctx context.Context, codeType models.VerificationType, mobile, countryCode string) error {
	if !codeType.Valid() {
		return apperror.Validation("неизвестный тип кода", map[string]string{"type": "допустимы signup, login и password_reset"})
	}

	user, err := s.repo.GetByMobile(ctx, mobile, countryCode)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("auth service: %w", err)
	}

	switch codeType {
	case models.VerificationTypeSignup:
		if user.IsVerified {
			return nil
		}
	case models.VerificationTypeLogin:
		if !user.IsVerified || !user.IsActive {
			return nil
		}
	case models.VerificationTypePasswordReset:
		if !user.IsActive {
			return nil
		}
	}

	userID := user.ID
	return s.codes.CreateVerificationCode(ctx, CodeRequest{
		Type:        codeType,
		Recipient:   user.MobileNumber,
		CountryCode: user.CountryCode,
		UserID:      &userID,
	})
}

// ForgotPassword отправляет код сброса пароля.
func (s *AuthService) ForgotPassword(ctx context.Context, mobile, countryCode string) error {
	return s.ResendVerification(ctx, models.VerificationTypePasswordReset, mobile, countryCode)
}

// ResetPassword меняет пароль по коду сброса и завершает все сессии пользователя.
// Флаг is_verified не меняется.
func (s *AuthService) ResetPassword(ctx context.Context, mobile, countryCode, code, newPassword string) error {
	if _, err := s.codes.VerifyCode(ctx, CodeCheck{
		Type:        models.VerificationTypePasswordReset,
		Recipient:   mobile,
		CountryCode: countryCode,
		Code:        code,
	}); err != nil {
		return err
	}

	user, err := s.repo.GetByMobile(ctx, mobile, countryCode)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return fmt.Errorf("auth service: %w", err)
	}

	hash, err := hashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	if err := s.repo.DeleteAllSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	return nil
}

// ChangePassword меняет пароль после проверки текущего. Остальные сессии пользователя
// завершаются, текущая (currentSessionID) сохраняется.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentSessionID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if !checkPassword(user, currentPassword) {
		return apperror.New(apperror.ErrCodeInvalidCredentials, "текущий пароль указан неверно")
	}

	hash, err := hashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	if currentSessionID == uuid.Nil {
		err = s.repo.DeleteAllSessions(ctx, user.ID)
	} else {
		err = s.repo.DeleteAllSessionsExcept(ctx, user.ID, currentSessionID)
	}
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	return nil
}

// Refresh выпускает новую пару токенов. Старая сессия удаляется атомарно,
// поэтому повторное использование того же refresh токена даёт TOKEN_INVALID.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta SessionMeta) (*TokenPair, error) {
	claims, err := s.tokenManager.VerifyToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	session, err := s.repo.ConsumeSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.New(apperror.ErrCodeTokenInvalid, "refresh токен отозван или уже использован")
		}
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if session.UserID != userID {
		return nil, apperror.ErrTokenInvalid
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.IssueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	return result.TokenPair, nil
}

// Logout завершает сессию, к которой привязан access токен, и заносит токен в блэклист
// до истечения его срока.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if sid, ok := claims.SessionID(); ok {
		if _, err := s.repo.ConsumeSession(ctx, sid); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			return fmt.Errorf("auth service: %w", err)
		}
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if err := s.blacklist.Revoke(ctx, claims.ID.String(), ttl); err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	return nil
}

// IsRevoked сообщает, отозван ли access токен.
func (s *AuthService) IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	return s.blacklist.IsRevoked(ctx, jti.String())
}

// ListSessions возвращает список активных сессий пользователя.
func (s *AuthService) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	return s.repo.ListSessions(ctx, userID)
}

// DeleteSession удаляет сессию по идентификатору.
func (s *AuthService) DeleteSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	if err := s.repo.DeleteSessionByID(ctx, sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "сессия не найдена")
		}
		return fmt.Errorf("auth service: %w", err)
	}
	return nil
}

// Me возвращает текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, userID)
}

func (s *AuthService) getUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.ErrInactiveUser
	}
	return user, nil
}

// IsActive сообщает, может ли пользователь работать с API. Ненайденный
// пользователь считается неактивным.
func (s *AuthService) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("auth service: %w", err)
	}
	return user.IsActive, nil
}

// IssueSession выпускает пару токенов и сохраняет сессию под jti refresh токена.
func (s *AuthService) IssueSession(ctx context.Context, user *models.User, meta SessionMeta) (*AuthResult, error) {
	tokenPair, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: generate tokens: %w", err)
	}

	session := &models.Session{
		UserID:         user.ID,
		RefreshTokenID: tokenPair.RefreshTokenID,
		ExpiresAt:      tokenPair.RefreshExpiresAt,
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		session.UserAgent = &ua
	}
	if meta.IP != "" {
		ip := meta.IP
		session.IPAddress = &ip
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		// Не прерываем вход из-за last_login_at
		logger.Log.WithFields(map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("auth service: не удалось обновить last_login_at")
	}

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}
