package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
)

// Значения claim token_type.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenPair хранит пару access/refresh токенов.
// Поля со скрытым json нужны для сохранения сессии и блэклиста.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresIn - время жизни access токена в секундах.
	ExpiresIn int64 `json:"expires_in"`

	AccessTokenID    uuid.UUID `json:"-"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshTokenID   uuid.UUID `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// Claims - проверенное содержимое токена.
type Claims struct {
	Subject   string
	ID        uuid.UUID
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// UserID разбирает subject как UUID пользователя.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, apperror.Wrap(err, apperror.ErrCodeTokenInvalid, "некорректный subject токена")
	}
	return id, nil
}

// IsVerified возвращает claim is_verified из access токена.
func (c *Claims) IsVerified() bool {
	v, _ := c.Extra["is_verified"].(bool)
	return v
}

// SessionID возвращает jti refresh токена, выпущенного в паре с этим access токеном.
func (c *Claims) SessionID() (uuid.UUID, bool) {
	sid, _ := c.Extra["sid"].(string)
	id, err := uuid.Parse(sid)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// TokenManager отвечает за выпуск и проверку JWT.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// AccessTTL возвращает время жизни access токена.
func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

// CreateAccessToken подписывает access токен. extra добавляется к стандартным claims,
// но не может перезаписать sub, exp, iat, jti и token_type.
func (m *TokenManager) CreateAccessToken(subject string, extra map[string]any) (string, uuid.UUID, time.Time, error) {
	now := m.now()
	exp := now.Add(m.accessTTL)
	jti := uuid.New()

	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["sub"] = subject
	claims["iat"] = now.Unix()
	claims["exp"] = exp.Unix()
	claims["jti"] = jti.String()
	claims["token_type"] = TokenTypeAccess

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
	if err != nil {
		return "", uuid.Nil, time.Time{}, err
	}
	return signed, jti, exp, nil
}

// CreateRefreshToken подписывает refresh токен со случайным jti.
func (m *TokenManager) CreateRefreshToken(subject string) (string, uuid.UUID, time.Time, error) {
	now := m.now()
	exp := now.Add(m.refreshTTL)
	jti := uuid.New()

	claims := jwt.MapClaims{
		"sub":        subject,
		"iat":        now.Unix(),
		"exp":        exp.Unix(),
		"jti":        jti.String(),
		"token_type": TokenTypeRefresh,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", uuid.Nil, time.Time{}, err
	}
	return signed, jti, exp, nil
}

// GeneratePair выпускает новую пару токенов для пользователя.
func (m *TokenManager) GeneratePair(user *models.User) (*TokenPair, error) {
	subject := user.ID.String()

	refresh, refreshID, refreshExp, err := m.CreateRefreshToken(subject)
	if err != nil {
		return nil, err
	}

	// sid связывает access токен с сессией, созданной под refresh токен.
	access, accessID, accessExp, err := m.CreateAccessToken(subject, map[string]any{
		"is_verified": user.IsVerified,
		"sid":         refreshID.String(),
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "bearer",
		ExpiresIn:        int64(m.accessTTL.Seconds()),
		AccessTokenID:    accessID,
		AccessExpiresAt:  accessExp,
		RefreshTokenID:   refreshID,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyToken проверяет подпись, срок действия и token_type.
// Истёкший токен даёт apperror.ErrTokenExpired, любой другой дефект - apperror.ErrTokenInvalid.
func (m *TokenManager) VerifyToken(token, kind string) (*Claims, error) {
	var secret []byte
	switch kind {
	case TokenTypeAccess:
		secret = m.accessSecret
	case TokenTypeRefresh:
		secret = m.refreshSecret
	default:
		return nil, apperror.New(apperror.ErrCodeTokenInvalid, "неизвестный тип токена")
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Wrap(err, apperror.ErrCodeTokenExpired, "срок действия токена истёк")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeTokenInvalid, "токен невалиден")
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, apperror.ErrTokenInvalid
	}

	if tt, _ := mc["token_type"].(string); tt != kind {
		return nil, apperror.New(apperror.ErrCodeTokenInvalid, "неверный тип токена")
	}

	claims := &Claims{TokenType: kind, Extra: map[string]any{}}
	if claims.Subject, err = mc.GetSubject(); err != nil || claims.Subject == "" {
		return nil, apperror.New(apperror.ErrCodeTokenInvalid, "в токене нет subject")
	}
	jti, _ := mc["jti"].(string)
	if claims.ID, err = uuid.Parse(jti); err != nil {
		return nil, apperror.New(apperror.ErrCodeTokenInvalid, "в токене нет jti")
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	for k, v := range mc {
		switch k {
		case "sub", "iat", "exp", "jti", "token_type":
		default:
			claims.Extra[k] = v
		}
	}

	return claims, nil
}
