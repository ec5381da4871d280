package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lemon-backend/internal/service"
)

type profileStub map[uuid.UUID]*models.User

func (p profileStub) Me(_ context.Context, userID uuid.UUID) (*models.User, error) {
	if u, ok := p[userID]; ok {
		return u, nil
	}
	return nil, apperror.ErrUserNotFound
}

type listerStub struct {
	got service.UserListQuery
}

func (l *listerStub) ListUsers(_ context.Context, q service.UserListQuery) (*service.UserPage, error) {
	l.got = q
	return &service.UserPage{Users: []models.UserSummary{}, Page: q.Page, PerPage: q.PerPage}, nil
}

func TestUserHandler_Me(t *testing.T) {
	user := testUser()
	user.PasswordHash = "$2a$10$hash"
	h := NewUserHandler(profileStub{user.ID: user}, &listerStub{})

	r := gin.New()
	r.GET("/users/me", withClaims(user.ID, nil), h.Me)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got models.UserSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, user.ID, got.ID)
	assert.NotContains(t, w.Body.String(), "hash")
}

func TestUserHandler_Me_Unauthorized(t *testing.T) {
	r := gin.New()
	r.GET("/users/me", NewUserHandler(profileStub{}, &listerStub{}).Me)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserHandler_List_Defaults(t *testing.T) {
	lister := &listerStub{}
	r := gin.New()
	r.GET("/users", NewUserHandler(profileStub{}, lister).List)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/users", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, lister.got.Page)
	assert.Equal(t, 20, lister.got.PerPage)
	assert.Nil(t, lister.got.IsActive)
}
