package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
)

const rateLimitPrefix = "lemon:ratelimit"

// NewLimiterStore возвращает Redis store, если клиент задан, иначе хранит счётчики в памяти.
// Redis store нужен, когда сервер запущен в нескольких экземплярах.
func NewLimiterStore(client redis.UniversalClient) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateLimitPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		}), nil
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
	if err != nil {
		return nil, fmt.Errorf("rate limit: redis store: %w", err)
	}
	return store, nil
}

// RateLimitMiddleware ограничивает число запросов с одного IP.
// scope разделяет счётчики разных групп маршрутов в общем store.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(store limiter.Store, scope string, limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = 1 * time.Minute
	}

	instance := limiter.New(store, limiter.Rate{
		Period: period,
		Limit:  limit,
	})

	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		lctx, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			// Недоступный store не должен блокировать вход
			logger.Log.WithError(err).Warn("rate limit: store недоступен")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", lctx.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", lctx.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", lctx.Reset))

		if lctx.Reached {
			abortWithError(c, apperror.New(apperror.ErrCodeTooManyRequests, "слишком много запросов, попробуйте позже"))
			return
		}

		c.Next()
	}
}
