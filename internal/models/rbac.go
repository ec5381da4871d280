package models

import (
	"time"

	"github.com/google/uuid"
)

// Role группирует права. Роли с IsDefault выдаются при регистрации.
type Role struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsDefault   bool      `db:"is_default" json:"is_default"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Permission - именованное право, например "read:users".
type Permission struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// RoleWithPermissions - роль вместе с её правами.
type RoleWithPermissions struct {
	Role
	Permissions []Permission `json:"permissions"`
}

// UserWithRoles - пользователь вместе с назначенными ролями.
type UserWithRoles struct {
	UserSummary
	Roles []Role `json:"roles"`
}
