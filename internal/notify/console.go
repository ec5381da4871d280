package notify

import (
	"context"

	"github.com/ignatzorin/lemon-backend/internal/logger"
)

// ConsoleSender пишет сообщение в лог вместо отправки. Только для разработки.
type ConsoleSender struct{}

func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

func (s *ConsoleSender) Send(_ context.Context, to, message string) error {
	logger.Component("notify").WithField("to", to).Infof("[DEV SMS] %s", message)
	return nil
}
