// Package notify доставляет одноразовые коды пользователю.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ignatzorin/lemon-backend/internal/config"
)

// ErrUnknownProvider возвращается Build для незарегистрированного имени.
var ErrUnknownProvider = errors.New("notify: unknown provider")

// Sender отправляет текстовое сообщение на номер в формате E.164.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// Factory создаёт Sender из конфигурации.
type Factory func(cfg *config.Config) (Sender, error)

// Registry сопоставляет имя провайдера с фабрикой.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry возвращает реестр со встроенными провайдерами console и twilio.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("console", func(*config.Config) (Sender, error) {
		return NewConsoleSender(), nil
	})
	r.Register("twilio", func(cfg *config.Config) (Sender, error) {
		return NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
	})
	return r
}

// Register добавляет или заменяет фабрику.
func (r *Registry) Register(name string, f Factory) {
	r.factories[strings.ToLower(name)] = f
}

// Names возвращает зарегистрированные имена в алфавитном порядке.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build создаёт Sender по имени. Вызывается при старте, до приёма запросов.
func (r *Registry) Build(name string, cfg *config.Config) (Sender, error) {
	f, ok := r.factories[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownProvider, name, strings.Join(r.Names(), ", "))
	}
	sender, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("notify: build %s: %w", name, err)
	}
	return sender, nil
}
