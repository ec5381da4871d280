package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/repository/common"
)

var (
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrRoleAlreadyExists  = errors.New("role already exists")
	ErrPermissionExists   = errors.New("permission already exists")
)

const (
	roleColumns       = "id, name, description, is_default, created_at"
	permissionColumns = "id, name, description, created_at"
)

// RBACRepository работает с ролями, правами и связями user_roles / role_permissions.
type RBACRepository struct {
	db *sqlx.DB
}

func NewRBACRepository(db *sqlx.DB) *RBACRepository {
	return &RBACRepository{db: db}
}

// UserHasRole проверяет наличие у пользователя роли с именем name.
func (r *RBACRepository) UserHasRole(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles ur
			JOIN roles ro ON ro.id = ur.role_id
			WHERE ur.user_id = $1 AND ro.name = $2
		)
	`, userID, name)
	if err != nil {
		return false, fmt.Errorf("rbac repository: user has role %w", err)
	}
	return ok, nil
}

// UserHasPermission проверяет право через роли пользователя. Наследования ролей нет.
func (r *RBACRepository) UserHasPermission(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE ur.user_id = $1 AND p.name = $2
		)
	`, userID, name)
	if err != nil {
		return false, fmt.Errorf("rbac repository: user has permission %w", err)
	}
	return ok, nil
}

// AssignDefaultRoles выдаёт пользователю все роли с is_default = TRUE.
func (r *RBACRepository) AssignDefaultRoles(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE is_default = TRUE
		ON CONFLICT DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("rbac repository: assign default roles %w", err)
	}
	return nil
}

func (r *RBACRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles := []models.Role{}
	if err := r.db.SelectContext(ctx, &roles, `SELECT `+roleColumns+` FROM roles ORDER BY name`); err != nil {
		return nil, fmt.Errorf("rbac repository: list roles %w", err)
	}
	return roles, nil
}

func (r *RBACRepository) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return common.GetByField[models.Role](ctx, r.db, "roles", roleColumns, "id", id, ErrRoleNotFound)
}

func (r *RBACRepository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	return common.GetByField[models.Role](ctx, r.db, "roles", roleColumns, "name", name, ErrRoleNotFound)
}

func (r *RBACRepository) CreateRole(ctx context.Context, role *models.Role) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO roles (name, description, is_default) VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, role.Name, role.Description, role.IsDefault).Scan(&role.ID, &role.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRoleAlreadyExists
		}
		return fmt.Errorf("rbac repository: create role %w", err)
	}
	return nil
}

func (r *RBACRepository) UpdateRole(ctx context.Context, role *models.Role) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE roles SET name = $2, description = $3, is_default = $4 WHERE id = $1
	`, role.ID, role.Name, role.Description, role.IsDefault)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRoleAlreadyExists
		}
		return fmt.Errorf("rbac repository: update role %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func (r *RBACRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("rbac repository: delete role %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func (r *RBACRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	perms := []models.Permission{}
	if err := r.db.SelectContext(ctx, &perms, `SELECT `+permissionColumns+` FROM permissions ORDER BY name`); err != nil {
		return nil, fmt.Errorf("rbac repository: list permissions %w", err)
	}
	return perms, nil
}

func (r *RBACRepository) GetPermission(ctx context.Context, id uuid.UUID) (*models.Permission, error) {
	return common.GetByField[models.Permission](ctx, r.db, "permissions", permissionColumns, "id", id, ErrPermissionNotFound)
}

func (r *RBACRepository) CreatePermission(ctx context.Context, perm *models.Permission) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO permissions (name, description) VALUES ($1, $2)
		RETURNING id, created_at
	`, perm.Name, perm.Description).Scan(&perm.ID, &perm.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPermissionExists
		}
		return fmt.Errorf("rbac repository: create permission %w", err)
	}
	return nil
}

// RolePermissions возвращает права роли.
func (r *RBACRepository) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]models.Permission, error) {
	perms := []models.Permission{}
	err := r.db.SelectContext(ctx, &perms, `
		SELECT p.id, p.name, p.description, p.created_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`, roleID)
	if err != nil {
		return nil, fmt.Errorf("rbac repository: role permissions %w", err)
	}
	return perms, nil
}

func (r *RBACRepository) AddPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("rbac repository: add permission to role %w", err)
	}
	return nil
}

func (r *RBACRepository) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("rbac repository: remove permission from role %w", err)
	}
	return nil
}

// UserRoles возвращает роли пользователя.
func (r *RBACRepository) UserRoles(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	roles := []models.Role{}
	err := r.db.SelectContext(ctx, &roles, `
		SELECT ro.id, ro.name, ro.description, ro.is_default, ro.created_at
		FROM roles ro
		JOIN user_roles ur ON ur.role_id = ro.id
		WHERE ur.user_id = $1
		ORDER BY ro.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac repository: user roles %w", err)
	}
	return roles, nil
}

func (r *RBACRepository) AddRoleToUser(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, roleID)
	if err != nil {
		return fmt.Errorf("rbac repository: add role to user %w", err)
	}
	return nil
}

func (r *RBACRepository) RemoveRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return fmt.Errorf("rbac repository: remove role from user %w", err)
	}
	return nil
}
