package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/http/handlers/common"
	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/service"
)

// ProfileReader возвращает текущего пользователя.
type ProfileReader interface {
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// UserLister возвращает страницу пользователей.
type UserLister interface {
	ListUsers(ctx context.Context, q service.UserListQuery) (*service.UserPage, error)
}

// UserHandler - пользовательские эндпоинты /users.
type UserHandler struct {
	profiles ProfileReader
	users    UserLister
}

func NewUserHandler(profiles ProfileReader, users UserLister) *UserHandler {
	return &UserHandler{profiles: profiles, users: users}
}

// Me обрабатывает GET /users/me.
func (h *UserHandler) Me(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	user, err := h.profiles.Me(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, user.Summary())
}

// List обрабатывает GET /users. Доступ ограничен правом read:users.
func (h *UserHandler) List(c *gin.Context) {
	q, err := userListQuery(c)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	page, err := h.users.ListUsers(c.Request.Context(), q)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// userListQuery читает фильтры списка пользователей из query string.
func userListQuery(c *gin.Context) (service.UserListQuery, error) {
	isActive, err := common.ParseBoolQuery(c, "is_active")
	if err != nil {
		return service.UserListQuery{}, err
	}
	isVerified, err := common.ParseBoolQuery(c, "is_verified")
	if err != nil {
		return service.UserListQuery{}, err
	}

	return service.UserListQuery{
		Page:       common.ParseIntQuery(c, "page", 1),
		PerPage:    common.ParseIntQuery(c, "per_page", 20),
		Search:     c.Query("search"),
		IsActive:   isActive,
		IsVerified: isVerified,
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
	}, nil
}
