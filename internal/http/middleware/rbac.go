package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
)

// AccessChecker отвечает на вопросы о ролях и правах пользователя.
type AccessChecker interface {
	HasRole(ctx context.Context, userID uuid.UUID, name string) (bool, error)
	HasPermission(ctx context.Context, userID uuid.UUID, name string) (bool, error)
}

// AdminChecker проверяет флаг администратора.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ActiveChecker проверяет, не заблокирован ли аккаунт.
type ActiveChecker interface {
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

// RequireRole пропускает запрос, если у пользователя есть роль name.
func RequireRole(checker AccessChecker, name string) gin.HandlerFunc {
	return guard("role", name, apperror.ErrForbidden, checker.HasRole)
}

// RequirePermission пропускает запрос, если право name есть хотя бы у одной роли пользователя.
func RequirePermission(checker AccessChecker, name string) gin.HandlerFunc {
	return guard("permission", name, apperror.ErrForbidden, checker.HasPermission)
}

// RequireAdmin читает is_admin из хранилища на каждом запросе.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return guard("admin", "is_admin", apperror.ErrForbidden, func(ctx context.Context, userID uuid.UUID, _ string) (bool, error) {
		return checker.IsAdmin(ctx, userID)
	})
}

// RequireActive читает is_active из хранилища на каждом запросе. Заблокированный
// аккаунт получает INACTIVE_USER даже с ещё не истёкшим access токеном.
func RequireActive(checker ActiveChecker) gin.HandlerFunc {
	return guard("active", "is_active", apperror.ErrInactiveUser, func(ctx context.Context, userID uuid.UUID, _ string) (bool, error) {
		return checker.IsActive(ctx, userID)
	})
}

func guard(kind, name string, denied error, check func(context.Context, uuid.UUID, string) (bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get(ContextUserIDKey)
		userID, ok := raw.(uuid.UUID)
		if !exists || !ok {
			abortWithError(c, apperror.ErrUnauthorized)
			return
		}

		allowed, err := check(c.Request.Context(), userID, name)
		if err != nil {
			logger.Log.WithFields(map[string]interface{}{
				"user_id": userID,
				kind:      name,
				"error":   err.Error(),
			}).Error("rbac middleware: проверка доступа")
			abortWithError(c, err)
			return
		}
		if !allowed {
			abortWithError(c, denied)
			return
		}

		c.Next()
	}
}
