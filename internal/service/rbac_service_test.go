package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
)

func newRBACEnv(t *testing.T) (*RBACService, *mockRBACRepository, *models.User) {
	t.Helper()
	users := newMockUserRepository()
	user := &models.User{FirstName: "Ann", MobileNumber: testMobile, CountryCode: testCountry, IsActive: true, IsVerified: true}
	require.NoError(t, users.Create(context.Background(), user))

	repo := newMockRBACRepository()
	return NewRBACService(repo, users), repo, user
}

func TestRBACService_GrantThenAllow(t *testing.T) {
	svc, repo, user := newRBACEnv(t)
	ctx := context.Background()

	viewer := repo.seed("viewer", false, models.PermissionReadUsers)

	ok, err := svc.HasPermission(ctx, user.ID, models.PermissionReadUsers)
	require.NoError(t, err)
	assert.False(t, ok)

	withRoles, err := svc.AssignRole(ctx, user.ID, viewer.ID)
	require.NoError(t, err)
	require.Len(t, withRoles.Roles, 1)
	assert.Equal(t, "viewer", withRoles.Roles[0].Name)

	ok, err = svc.HasPermission(ctx, user.ID, models.PermissionReadUsers)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasRole(ctx, user.ID, "viewer")
	require.NoError(t, err)
	assert.True(t, ok)

	// Отзыв роли действует сразу
	_, err = svc.RemoveRole(ctx, user.ID, viewer.ID)
	require.NoError(t, err)

	ok, err = svc.HasPermission(ctx, user.ID, models.PermissionReadUsers)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRBACService_PermissionThroughRoleChange(t *testing.T) {
	svc, _, user := newRBACEnv(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "editor", nil, false)
	require.NoError(t, err)
	perm, err := svc.CreatePermission(ctx, models.PermissionWriteUsers, nil)
	require.NoError(t, err)

	_, err = svc.AssignRole(ctx, user.ID, role.ID)
	require.NoError(t, err)

	ok, _ := svc.HasPermission(ctx, user.ID, models.PermissionWriteUsers)
	assert.False(t, ok)

	withPerms, err := svc.AssignPermission(ctx, role.ID, perm.ID)
	require.NoError(t, err)
	require.Len(t, withPerms.Permissions, 1)

	ok, _ = svc.HasPermission(ctx, user.ID, models.PermissionWriteUsers)
	assert.True(t, ok)

	withPerms, err = svc.RemovePermission(ctx, role.ID, perm.ID)
	require.NoError(t, err)
	assert.Empty(t, withPerms.Permissions)

	ok, _ = svc.HasPermission(ctx, user.ID, models.PermissionWriteUsers)
	assert.False(t, ok)
}

func TestRBACService_CreateDuplicates(t *testing.T) {
	svc, _, _ := newRBACEnv(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "editor", nil, false)
	require.NoError(t, err)
	_, err = svc.CreateRole(ctx, "editor", nil, false)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.CodeOf(err))

	_, err = svc.CreatePermission(ctx, "read:reports", nil)
	require.NoError(t, err)
	_, err = svc.CreatePermission(ctx, "read:reports", nil)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.CodeOf(err))
}

func TestRBACService_NotFound(t *testing.T) {
	svc, repo, user := newRBACEnv(t)
	ctx := context.Background()
	role := repo.seed("viewer", false)

	tests := []struct {
		name string
		call func() error
	}{
		{"get role", func() error { _, err := svc.GetRole(ctx, uuid.New()); return err }},
		{"delete role", func() error { return svc.DeleteRole(ctx, uuid.New()) }},
		{"update role", func() error { _, err := svc.UpdateRole(ctx, uuid.New(), RoleUpdate{}); return err }},
		{"assign unknown permission", func() error { _, err := svc.AssignPermission(ctx, role.ID, uuid.New()); return err }},
		{"assign to unknown user", func() error { _, err := svc.AssignRole(ctx, uuid.New(), role.ID); return err }},
		{"assign unknown role", func() error { _, err := svc.AssignRole(ctx, user.ID, uuid.New()); return err }},
		{"roles of unknown user", func() error { _, err := svc.UserWithRoles(ctx, uuid.New()); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, apperror.ErrCodeNotFound, apperror.CodeOf(tt.call()))
		})
	}
}

func TestRBACService_UpdateRole(t *testing.T) {
	svc, repo, _ := newRBACEnv(t)
	ctx := context.Background()
	role := repo.seed("viewer", false)

	name := "reader"
	desc := "только чтение"
	isDefault := true
	updated, err := svc.UpdateRole(ctx, role.ID, RoleUpdate{Name: &name, Description: &desc, IsDefault: &isDefault})
	require.NoError(t, err)
	assert.Equal(t, "reader", updated.Name)
	assert.Equal(t, "только чтение", *updated.Description)
	assert.True(t, updated.IsDefault)

	got, err := svc.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, "reader", got.Name)
}

func TestRBACService_DeleteRoleRevokesAccess(t *testing.T) {
	svc, repo, user := newRBACEnv(t)
	ctx := context.Background()
	role := repo.seed("viewer", false, models.PermissionReadUsers)

	_, err := svc.AssignRole(ctx, user.ID, role.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteRole(ctx, role.ID))

	ok, err := svc.HasPermission(ctx, user.ID, models.PermissionReadUsers)
	require.NoError(t, err)
	assert.False(t, ok)

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
}
