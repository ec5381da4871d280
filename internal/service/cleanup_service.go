package service

import (
	"context"
	"time"

	"github.com/ignatzorin/lemon-backend/internal/goroutine"
	"github.com/ignatzorin/lemon-backend/internal/logger"
)

// ExpiredSessionPurger удаляет истёкшие сессии.
type ExpiredSessionPurger interface {
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// ExpiredCodePurger удаляет отработавшие коды подтверждения.
type ExpiredCodePurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// CleanupService периодически чистит таблицы сессий и кодов.
type CleanupService struct {
	sessions ExpiredSessionPurger
	codes    ExpiredCodePurger
	// codeRetention - сколько хранить использованные коды для разбора инцидентов.
	codeRetention time.Duration
	now           func() time.Time
}

func NewCleanupService(sessions ExpiredSessionPurger, codes ExpiredCodePurger, codeRetention time.Duration) *CleanupService {
	return &CleanupService{
		sessions:      sessions,
		codes:         codes,
		codeRetention: codeRetention,
		now:           time.Now,
	}
}

// RunOnce выполняет одну чистку. Ошибка одной таблицы не мешает чистке другой.
func (s *CleanupService) RunOnce(ctx context.Context) {
	now := s.now()
	log := logger.Component("cleanup")

	if n, err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		log.WithError(err).Error("не удалось удалить истёкшие сессии")
	} else if n > 0 {
		log.WithField("count", n).Info("удалены истёкшие сессии")
	}

	if n, err := s.codes.DeleteExpired(ctx, now.Add(-s.codeRetention)); err != nil {
		log.WithError(err).Error("не удалось удалить старые коды")
	} else if n > 0 {
		log.WithField("count", n).Info("удалены старые коды подтверждения")
	}
}

// Start запускает чистку в фоне с интервалом interval до отмены ctx.
func (s *CleanupService) Start(ctx context.Context, interval time.Duration) {
	goroutine.SafeGo(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	})
}
