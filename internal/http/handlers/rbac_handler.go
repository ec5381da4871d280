package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/dto"
	"github.com/ignatzorin/lemon-backend/internal/http/handlers/common"
	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/service"
)

// RBACAPI - управление ролями и правами.
type RBACAPI interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (*models.RoleWithPermissions, error)
	CreateRole(ctx context.Context, name string, description *string, isDefault bool) (*models.Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, upd service.RoleUpdate) (*models.Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error

	ListPermissions(ctx context.Context) ([]models.Permission, error)
	CreatePermission(ctx context.Context, name string, description *string) (*models.Permission, error)
	AssignPermission(ctx context.Context, roleID, permissionID uuid.UUID) (*models.RoleWithPermissions, error)
	RemovePermission(ctx context.Context, roleID, permissionID uuid.UUID) (*models.RoleWithPermissions, error)

	UserWithRoles(ctx context.Context, userID uuid.UUID) (*models.UserWithRoles, error)
	AssignRole(ctx context.Context, userID, roleID uuid.UUID) (*models.UserWithRoles, error)
	RemoveRole(ctx context.Context, userID, roleID uuid.UUID) (*models.UserWithRoles, error)
}

// RBACHandler обслуживает /auth/admin/*.
type RBACHandler struct {
	rbac RBACAPI
}

func NewRBACHandler(rbac RBACAPI) *RBACHandler {
	return &RBACHandler{rbac: rbac}
}

func (h *RBACHandler) ListRoles(c *gin.Context) {
	roles, err := h.rbac.ListRoles(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

func (h *RBACHandler) GetRole(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	role, err := h.rbac.GetRole(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

func (h *RBACHandler) CreateRole(c *gin.Context) {
	var req dto.CreateRoleRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	role, err := h.rbac.CreateRole(c.Request.Context(), req.Name, req.Description, req.IsDefault)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

func (h *RBACHandler) UpdateRole(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req dto.UpdateRoleRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	role, err := h.rbac.UpdateRole(c.Request.Context(), id, service.RoleUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

func (h *RBACHandler) DeleteRole(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	if err := h.rbac.DeleteRole(c.Request.Context(), id); err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "роль удалена", nil)
}

func (h *RBACHandler) ListPermissions(c *gin.Context) {
	perms, err := h.rbac.ListPermissions(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

func (h *RBACHandler) CreatePermission(c *gin.Context) {
	var req dto.CreatePermissionRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	perm, err := h.rbac.CreatePermission(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, perm)
}

// AssignPermission обрабатывает POST /auth/admin/roles/:id/permissions.
func (h *RBACHandler) AssignPermission(c *gin.Context) {
	roleID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req dto.RolePermissionRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	role, err := h.rbac.AssignPermission(c.Request.Context(), roleID, uuid.MustParse(req.PermissionID))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

// RemovePermission обрабатывает DELETE /auth/admin/roles/:id/permissions/:permissionId.
func (h *RBACHandler) RemovePermission(c *gin.Context) {
	roleID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	permID, err := common.ParseUUIDParam(c, "permissionId")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	role, err := h.rbac.RemovePermission(c.Request.Context(), roleID, permID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

// UserRoles обрабатывает GET /auth/admin/users/:id/roles.
func (h *RBACHandler) UserRoles(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	user, err := h.rbac.UserWithRoles(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// AssignRole обрабатывает POST /auth/admin/users/:id/roles.
func (h *RBACHandler) AssignRole(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req dto.UserRoleRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	user, err := h.rbac.AssignRole(c.Request.Context(), userID, uuid.MustParse(req.RoleID))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RemoveRole обрабатывает DELETE /auth/admin/users/:id/roles/:roleId.
func (h *RBACHandler) RemoveRole(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	roleID, err := common.ParseUUIDParam(c, "roleId")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	user, err := h.rbac.RemoveRole(c.Request.Context(), userID, roleID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
