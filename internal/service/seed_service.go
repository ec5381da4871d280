package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/repository"
	"github.com/ignatzorin/lemon-backend/internal/validation"
)

// SeedUserStore - операции с пользователями, нужные для начального наполнения.
type SeedUserStore interface {
	GetByMobile(ctx context.Context, mobile, countryCode string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// SeedRoleStore выдаёт роли созданным пользователям.
type SeedRoleStore interface {
	AssignDefaultRoles(ctx context.Context, userID uuid.UUID) error
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	AddRoleToUser(ctx context.Context, userID, roleID uuid.UUID) error
}

// AdminSeed - учётные данные первого администратора.
type AdminSeed struct {
	FirstName    string
	LastName     string
	MobileNumber string
	CountryCode  string
	Password     string
}

// SeedService создаёт начальные учётные записи при старте.
type SeedService struct {
	users      SeedUserStore
	roles      SeedRoleStore
	bcryptCost int
}

// NewSeedService создаёт сервис начального наполнения.
func NewSeedService(users SeedUserStore, roles SeedRoleStore, bcryptCost int) *SeedService {
	return &SeedService{users: users, roles: roles, bcryptCost: bcryptCost}
}

// SeedAdmin создаёт администратора, если номер ещё не занят.
// Существующий пользователь не изменяется: created=false.
func (s *SeedService) SeedAdmin(ctx context.Context, in AdminSeed) (bool, error) {
	if err := validateSeed(in); err != nil {
		return false, err
	}

	existing, err := s.users.GetByMobile(ctx, in.MobileNumber, in.CountryCode)
	if err == nil {
		logger.Component("seed").WithFields(map[string]interface{}{
			"user_id":  existing.ID,
			"is_admin": existing.IsAdmin,
		}).Info("администратор уже существует, пропускаем")
		return false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("seed service: %w", err)
	}

	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("seed service: hash password: %w", err)
	}

	user := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		MobileNumber: in.MobileNumber,
		CountryCode:  in.CountryCode,
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   true,
		IsAdmin:      true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Параллельный старт второго экземпляра успел создать ту же запись.
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("seed service: create admin: %w", err)
	}

	if err := s.roles.AssignDefaultRoles(ctx, user.ID); err != nil {
		return true, fmt.Errorf("seed service: default roles: %w", err)
	}

	role, err := s.roles.GetRoleByName(ctx, models.RoleAdmin)
	if err != nil {
		return true, fmt.Errorf("seed service: admin role: %w", err)
	}
	if err := s.roles.AddRoleToUser(ctx, user.ID, role.ID); err != nil {
		return true, fmt.Errorf("seed service: assign admin role: %w", err)
	}

	logger.Component("seed").WithField("user_id", user.ID).Info("создан администратор")
	return true, nil
}

func validateSeed(in AdminSeed) error {
	checks := []error{
		validation.ValidateName("first_name", in.FirstName),
		validation.ValidateMobileNumber(in.MobileNumber),
		validation.ValidateCountryCode(in.CountryCode),
		validation.ValidatePassword(in.Password),
	}
	for _, err := range checks {
		if err != nil {
			return fmt.Errorf("seed service: %w", err)
		}
	}
	return nil
}
