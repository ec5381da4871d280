package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/dto"
	"github.com/ignatzorin/lemon-backend/internal/http/handlers/common"
	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lemon-backend/internal/service"
)

// AdminAPI - операции админ-панели.
type AdminAPI interface {
	Login(ctx context.Context, mobile, countryCode, password string, meta service.SessionMeta) (*service.AuthResult, error)
	DashboardStats(ctx context.Context, duration, start, end string) (*models.DashboardStats, error)
	ListUsers(ctx context.Context, q service.UserListQuery) (*service.UserPage, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, actorID uuid.UUID, in service.AdminCreateUser) (*models.User, error)
	UpdateUser(ctx context.Context, actorID, id uuid.UUID, in service.AdminUpdateUser) (*models.User, error)
	DeleteUser(ctx context.Context, actorID, id uuid.UUID) error
	ChatHistory(ctx context.Context, userID *uuid.UUID, page, perPage int) (*service.ChatPage, error)
	ChatConversation(ctx context.Context, id uuid.UUID) (*models.ChatConversationDetail, error)
}

// AdminHandler обслуживает /admin/*.
type AdminHandler struct {
	admin AdminAPI
}

func NewAdminHandler(admin AdminAPI) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Login обрабатывает POST /admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	result, err := h.admin.Login(c.Request.Context(), req.MobileNumber, req.CountryCode, req.Password, common.SessionMeta(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewAuthResponse(result))
}

// DashboardStats обрабатывает GET /admin/dashboard/stats?duration=today|week|month|custom.
func (h *AdminHandler) DashboardStats(c *gin.Context) {
	stats, err := h.admin.DashboardStats(c.Request.Context(), c.Query("duration"), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	q, err := userListQuery(c)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	page, err := h.admin.ListUsers(c.Request.Context(), q)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	user, err := h.admin.GetUser(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	actorID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.AdminCreateUserRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	user, err := h.admin.CreateUser(c.Request.Context(), actorID, service.AdminCreateUser{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MobileNumber: req.MobileNumber,
		CountryCode:  req.CountryCode,
		Email:        req.Email,
		Password:     req.Password,
		IsAdmin:      req.IsAdmin,
		IsActive:     req.IsActive,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	actorID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req dto.AdminUpdateUserRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	user, err := h.admin.UpdateUser(c.Request.Context(), actorID, id, service.AdminUpdateUser{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		IsActive:   req.IsActive,
		IsVerified: req.IsVerified,
		IsAdmin:    req.IsAdmin,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser обрабатывает DELETE /admin/users/:id (мягкое удаление).
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actorID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	if err := h.admin.DeleteUser(c.Request.Context(), actorID, id); err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "пользователь деактивирован", nil)
}

// ChatHistory обрабатывает GET /admin/chat/history?user_id=&page=&per_page=.
func (h *AdminHandler) ChatHistory(c *gin.Context) {
	var userID *uuid.UUID
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.RespondAppError(c, apperror.Validation("некорректные параметры запроса", map[string]string{
				"user_id": "ожидается UUID",
			}))
			return
		}
		userID = &id
	}

	page, err := h.admin.ChatHistory(c.Request.Context(), userID,
		common.ParseIntQuery(c, "page", 1), common.ParseIntQuery(c, "per_page", 20))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *AdminHandler) ChatConversation(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	detail, err := h.admin.ChatConversation(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
