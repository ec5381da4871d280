package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/ignatzorin/lemon-backend/internal/logger"
)

// SafeGo запускает горутину; panic логируется вместе со стеком и не роняет процесс.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Errorf("panic in goroutine: %v\nstack trace:\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// RunWithContext выполняет блокирующий вызов, который не принимает контекст, и ждёт
// либо его результата, либо отмены ctx. При отмене вызов продолжает работу в фоне,
// а вызывающему возвращается ctx.Err(). Panic внутри fn превращается в ошибку.
func RunWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Errorf("panic in goroutine: %v\nstack trace:\n%s", r, debug.Stack())
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
