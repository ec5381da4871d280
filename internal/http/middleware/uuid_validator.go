package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметры пути с указанными именами - валидные UUID.
// Использование: router.GET("/roles/:id", UUIDValidator("id"), handler.GetRole)
func UUIDValidator(paramNames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := map[string]string{}
		for _, name := range paramNames {
			raw := c.Param(name)
			if raw == "" {
				fields[name] = "обязательный параметр"
				continue
			}
			if _, err := uuid.Parse(raw); err != nil {
				fields[name] = "ожидается UUID"
			}
		}

		if len(fields) > 0 {
			abortWithError(c, apperror.Validation("некорректные параметры пути", fields))
			return
		}

		c.Next()
	}
}
