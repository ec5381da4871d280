package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lemon-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey   = "userID"
	ContextClaimsKey   = "claims"
	ContextVerifiedKey = "isVerified"
)

// TokenVerifier проверяет подпись и тип токена.
type TokenVerifier interface {
	VerifyToken(token, kind string) (*service.Claims, error)
}

// RevocationChecker сообщает, отозван ли access токен.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error)
}

// AuthMiddleware проверяет JWT access токен и отсекает токены из блэклиста.
func AuthMiddleware(tokens TokenVerifier, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			abortWithError(c, apperror.ErrUnauthorized)
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		claims, err := tokens.VerifyToken(raw, service.TokenTypeAccess)
		if err != nil {
			abortWithError(c, err)
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			abortWithError(c, err)
			return
		}

		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Log.WithError(err).Error("auth middleware: проверка блэклиста")
				abortWithError(c, err)
				return
			}
			if revoked {
				abortWithError(c, apperror.New(apperror.ErrCodeTokenInvalid, "токен отозван"))
				return
			}
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextClaimsKey, claims)
		c.Set(ContextVerifiedKey, claims.IsVerified())
		c.Next()
	}
}

// RequireVerified пропускает только пользователей с подтверждённым номером.
// Ставится после AuthMiddleware.
func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextVerifiedKey) {
			abortWithError(c, apperror.ErrNotVerified)
			return
		}
		c.Next()
	}
}
