package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lemon-backend/internal/repository"
)

// RBACRepository описывает хранилище ролей и прав.
type RBACRepository interface {
	UserHasRole(ctx context.Context, userID uuid.UUID, name string) (bool, error)
	UserHasPermission(ctx context.Context, userID uuid.UUID, name string) (bool, error)

	ListRoles(ctx context.Context) ([]models.Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error)
	CreateRole(ctx context.Context, role *models.Role) error
	UpdateRole(ctx context.Context, role *models.Role) error
	DeleteRole(ctx context.Context, id uuid.UUID) error

	ListPermissions(ctx context.Context) ([]models.Permission, error)
	GetPermission(ctx context.Context, id uuid.UUID) (*models.Permission, error)
	CreatePermission(ctx context.Context, perm *models.Permission) error

	RolePermissions(ctx context.Context, roleID uuid.UUID) ([]models.Permission, error)
	AddPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID) error
	RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error

	UserRoles(ctx context.Context, userID uuid.UUID) ([]models.Role, error)
	AddRoleToUser(ctx context.Context, userID, roleID uuid.UUID) error
	RemoveRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error
}

// UserLookup возвращает пользователя по ID.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RBACService проверяет роли и права и управляет их назначением.
// Проверки каждый раз читают актуальные назначения из хранилища.
type RBACService struct {
	repo  RBACRepository
	users UserLookup
}

func NewRBACService(repo RBACRepository, users UserLookup) *RBACService {
	return &RBACService{repo: repo, users: users}
}

// HasRole сообщает, есть ли у пользователя роль name.
func (s *RBACService) HasRole(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	ok, err := s.repo.UserHasRole(ctx, userID, name)
	if err != nil {
		return false, fmt.Errorf("rbac service: %w", err)
	}
	return ok, nil
}

// HasPermission сообщает, есть ли право name хотя бы у одной из ролей пользователя.
func (s *RBACService) HasPermission(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	ok, err := s.repo.UserHasPermission(ctx, userID, name)
	if err != nil {
		return false, fmt.Errorf("rbac service: %w", err)
	}
	return ok, nil
}

func (s *RBACService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole возвращает роль вместе с правами.
func (s *RBACService) GetRole(ctx context.Context, id uuid.UUID) (*models.RoleWithPermissions, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, mapRBACError(err)
	}
	perms, err := s.repo.RolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.RoleWithPermissions{Role: *role, Permissions: perms}, nil
}

func (s *RBACService) CreateRole(ctx context.Context, name string, description *string, isDefault bool) (*models.Role, error) {
	role := &models.Role{Name: name, Description: description, IsDefault: isDefault}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, mapRBACError(err)
	}
	return role, nil
}

// RoleUpdate - изменяемые поля роли; nil означает "не менять".
type RoleUpdate struct {
	Name        *string
	Description *string
	IsDefault   *bool
}

func (s *RBACService) UpdateRole(ctx context.Context, id uuid.UUID, upd RoleUpdate) (*models.Role, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, mapRBACError(err)
	}
	if upd.Name != nil {
		role.Name = *upd.Name
	}
	if upd.Description != nil {
		role.Description = upd.Description
	}
	if upd.IsDefault != nil {
		role.IsDefault = *upd.IsDefault
	}
	if err := s.repo.UpdateRole(ctx, role); err != nil {
		return nil, mapRBACError(err)
	}
	return role, nil
}

func (s *RBACService) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return mapRBACError(s.repo.DeleteRole(ctx, id))
}

func (s *RBACService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *RBACService) CreatePermission(ctx context.Context, name string, description *string) (*models.Permission, error) {
	perm := &models.Permission{Name: name, Description: description}
	if err := s.repo.CreatePermission(ctx, perm); err != nil {
		return nil, mapRBACError(err)
	}
	return perm, nil
}

// AssignPermission добавляет право роли и возвращает роль с обновлённым списком прав.
func (s *RBACService) AssignPermission(ctx context.Context, roleID, permissionID uuid.UUID) (*models.RoleWithPermissions, error) {
	if _, err := s.repo.GetPermission(ctx, permissionID); err != nil {
		return nil, mapRBACError(err)
	}
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, mapRBACError(err)
	}
	if err := s.repo.AddPermissionToRole(ctx, roleID, permissionID); err != nil {
		return nil, err
	}
	return s.GetRole(ctx, roleID)
}

func (s *RBACService) RemovePermission(ctx context.Context, roleID, permissionID uuid.UUID) (*models.RoleWithPermissions, error) {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, mapRBACError(err)
	}
	if err := s.repo.RemovePermissionFromRole(ctx, roleID, permissionID); err != nil {
		return nil, err
	}
	return s.GetRole(ctx, roleID)
}

// UserWithRoles возвращает пользователя и его роли.
func (s *RBACService) UserWithRoles(ctx context.Context, userID uuid.UUID) (*models.UserWithRoles, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	roles, err := s.repo.UserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserWithRoles{UserSummary: user.Summary(), Roles: roles}, nil
}

func (s *RBACService) AssignRole(ctx context.Context, userID, roleID uuid.UUID) (*models.UserWithRoles, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, mapRBACError(err)
	}
	if err := s.repo.AddRoleToUser(ctx, userID, roleID); err != nil {
		return nil, err
	}
	return s.UserWithRoles(ctx, userID)
}

func (s *RBACService) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) (*models.UserWithRoles, error) {
	if err := s.repo.RemoveRoleFromUser(ctx, userID, roleID); err != nil {
		return nil, err
	}
	return s.UserWithRoles(ctx, userID)
}

func mapRBACError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrRoleNotFound):
		return apperror.ErrRoleNotFound
	case errors.Is(err, repository.ErrPermissionNotFound):
		return apperror.ErrPermissionNotFound
	case errors.Is(err, repository.ErrRoleAlreadyExists):
		return apperror.New(apperror.ErrCodeConflict, "роль с таким именем уже существует")
	case errors.Is(err, repository.ErrPermissionExists):
		return apperror.New(apperror.ErrCodeConflict, "право с таким именем уже существует")
	default:
		return fmt.Errorf("rbac service: %w", err)
	}
}
