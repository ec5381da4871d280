package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lemon-backend/internal/repository"
)

// Credentials - данные, которые провайдер использует для регистрации и входа.
type Credentials struct {
	FirstName    string
	LastName     string
	MobileNumber string
	CountryCode  string
	Email        *string
	Password     string
}

// Registration - итог регистрации через провайдера.
// Пользователь создаётся даже если код не удалось отправить; тогда SendErr != nil.
type Registration struct {
	User     *models.User
	CodeSent bool
	SendErr  error
}

// AuthProvider - способ регистрации и входа.
type AuthProvider interface {
	Name() string
	Register(ctx context.Context, creds Credentials) (*Registration, error)
	Authenticate(ctx context.Context, creds Credentials) (*models.User, error)
}

// ProviderRegistry хранит провайдеров по имени.
type ProviderRegistry struct {
	providers map[string]AuthProvider
}

func NewProviderRegistry(providers ...AuthProvider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[string]AuthProvider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *ProviderRegistry) Register(p AuthProvider) {
	r.providers[strings.ToLower(p.Name())] = p
}

// Get возвращает провайдера по имени.
func (r *ProviderRegistry) Get(name string) (AuthProvider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("auth provider %q not registered", name)
	}
	return p, nil
}

// Names возвращает имена зарегистрированных провайдеров.
func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate проверяет, что все имена из конфигурации зарегистрированы.
// Вызывается при старте сервера.
func (r *ProviderRegistry) Validate(names []string) error {
	var missing []string
	for _, n := range names {
		if _, ok := r.providers[strings.ToLower(n)]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("auth providers not registered: %s (available: %s)",
			strings.Join(missing, ", "), strings.Join(r.Names(), ", "))
	}
	return nil
}

// CredentialStore - часть хранилища пользователей, нужная провайдеру.
type CredentialStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByMobile(ctx context.Context, mobile, countryCode string) (*models.User, error)
}

// CodeIssuer выпускает одноразовые коды.
type CodeIssuer interface {
	CreateVerificationCode(ctx context.Context, req CodeRequest) error
}

// MobileProvider регистрирует и аутентифицирует по номеру телефона и паролю.
type MobileProvider struct {
	users      CredentialStore
	codes      CodeIssuer
	bcryptCost int
}

func NewMobileProvider(users CredentialStore, codes CodeIssuer, bcryptCost int) *MobileProvider {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &MobileProvider{users: users, codes: codes, bcryptCost: bcryptCost}
}

func (p *MobileProvider) Name() string { return "mobile" }

// Register создаёт активного неподтверждённого пользователя и отправляет signup код.
func (p *MobileProvider) Register(ctx context.Context, creds Credentials) (*Registration, error) {
	if creds.FirstName == "" || creds.MobileNumber == "" || creds.CountryCode == "" || creds.Password == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "не заполнены обязательные поля")
	}

	if _, err := p.users.GetByMobile(ctx, creds.MobileNumber, creds.CountryCode); err == nil {
		return nil, apperror.ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("mobile provider: %w", err)
	}

	hash, err := hashPassword(creds.Password, p.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("mobile provider: hash password: %w", err)
	}

	user := &models.User{
		FirstName:    creds.FirstName,
		LastName:     creds.LastName,
		MobileNumber: creds.MobileNumber,
		CountryCode:  creds.CountryCode,
		Email:        creds.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := p.users.Create(ctx, user); err != nil {
		// Конкурентная регистрация того же номера упирается в уникальный индекс.
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, apperror.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("mobile provider: %w", err)
	}

	reg := &Registration{User: user}
	userID := user.ID
	reg.SendErr = p.codes.CreateVerificationCode(ctx, CodeRequest{
		Type:        models.VerificationTypeSignup,
		Recipient:   user.MobileNumber,
		CountryCode: user.CountryCode,
		UserID:      &userID,
	})
	reg.CodeSent = reg.SendErr == nil
	if reg.SendErr != nil {
		logger.Component("auth").WithField("user_id", user.ID).
			WithError(reg.SendErr).Warn("пользователь создан, но код не отправлен")
	}

	return reg, nil
}

// Authenticate проверяет номер и пароль. Неизвестный номер и неверный пароль
// дают одну и ту же ошибку.
func (p *MobileProvider) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	user, err := p.users.GetByMobile(ctx, creds.MobileNumber, creds.CountryCode)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("mobile provider: %w", err)
	}

	if !checkPassword(user, creds.Password) {
		return nil, apperror.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperror.ErrInactiveUser
	}

	if !user.IsVerified {
		return nil, apperror.ErrNotVerified
	}

	return user, nil
}

// checkPassword сравнивает пароль с хешем пользователя.
func checkPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// hashPassword хеширует пароль с заданной стоимостью.
func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
