package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lemon-backend/internal/repository"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	dateLayout     = "2006-01-02"
	statsCacheTTL  = 30 * time.Second
)

// AdminQueries - запросы админки только на чтение.
type AdminQueries interface {
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error)
	UserStats(ctx context.Context, from, to *time.Time) (*models.DashboardStats, error)
	CountUsersCreatedSince(ctx context.Context, since time.Time) (int, error)
	ListConversations(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]models.ChatConversation, int, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.ChatConversationDetail, error)
}

// AdminUserStore - операции над пользователями, доступные админке.
type AdminUserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByMobile(ctx context.Context, mobile, countryCode string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	DeleteAllSessions(ctx context.Context, userID uuid.UUID) error
}

// SessionIssuer выпускает токены и сохраняет сессию.
type SessionIssuer interface {
	IssueSession(ctx context.Context, user *models.User, meta SessionMeta) (*AuthResult, error)
}

// AdminService обслуживает админ-панель.
type AdminService struct {
	queries    AdminQueries
	users      AdminUserStore
	roles      DefaultRoleAssigner
	sessions   SessionIssuer
	cache      *CacheService
	bcryptCost int
	now        func() time.Time
}

// AdminDeps - зависимости AdminService.
type AdminDeps struct {
	Queries    AdminQueries
	Users      AdminUserStore
	Roles      DefaultRoleAssigner
	Sessions   SessionIssuer
	Cache      *CacheService
	BcryptCost int
}

func NewAdminService(deps AdminDeps) *AdminService {
	return &AdminService{
		queries:    deps.Queries,
		users:      deps.Users,
		roles:      deps.Roles,
		sessions:   deps.Sessions,
		cache:      deps.Cache,
		bcryptCost: deps.BcryptCost,
		now:        time.Now,
	}
}

// Login - вход в админку. Требует is_admin и активный аккаунт.
func (s *AdminService) Login(ctx context.Context, mobile, countryCode, password string, meta SessionMeta) (*AuthResult, error) {
	user, err := s.users.GetByMobile(ctx, mobile, countryCode)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("admin service: %w", err)
	}

	if !checkPassword(user, password) {
		return nil, apperror.ErrInvalidCredentials
	}
	if !user.IsAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "требуются права администратора")
	}
	if !user.IsActive {
		return nil, apperror.ErrInactiveUser
	}

	logger.Component("admin").WithField("admin_id", user.ID).Info("admin login")

	return s.sessions.IssueSession(ctx, user, meta)
}

// IsAdmin читает флаг is_admin из хранилища.
func (s *AdminService) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("admin service: %w", err)
	}
	return user.IsAdmin && user.IsActive, nil
}

// DashboardStats считает статистику пользователей. duration: today, week, month или
// custom с датами start/end в формате YYYY-MM-DD. Пустой duration - за всё время.
func (s *AdminService) DashboardStats(ctx context.Context, duration, start, end string) (*models.DashboardStats, error) {
	from, to, err := s.resolvePeriod(duration, start, end)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("admin:stats:%s:%s:%s", duration, start, end)
	v, err := s.cache.GetOrSet(ctx, key, statsCacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.computeStats(ctx, from, to)
	})
	if err != nil {
		return nil, err
	}
	stats := *v.(*models.DashboardStats)
	return &stats, nil
}

func (s *AdminService) computeStats(ctx context.Context, from, to *time.Time) (*models.DashboardStats, error) {
	stats, err := s.queries.UserStats(ctx, from, to)
	if err != nil {
		return nil, err
	}

	// С фильтром все счётчики "создано за период" равны числу пользователей в периоде.
	if from != nil || to != nil {
		stats.UsersCreatedToday = stats.TotalUsers
		stats.UsersCreatedThisWeek = stats.TotalUsers
		stats.UsersCreatedThisMonth = stats.TotalUsers
		return stats, nil
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if stats.UsersCreatedToday, err = s.queries.CountUsersCreatedSince(ctx, today); err != nil {
		return nil, err
	}
	if stats.UsersCreatedThisWeek, err = s.queries.CountUsersCreatedSince(ctx, now.AddDate(0, 0, -7)); err != nil {
		return nil, err
	}
	if stats.UsersCreatedThisMonth, err = s.queries.CountUsersCreatedSince(ctx, now.AddDate(0, 0, -30)); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *AdminService) resolvePeriod(duration, start, end string) (*time.Time, *time.Time, error) {
	if duration == "" {
		return nil, nil, nil
	}
	if _, ok := models.ValidDurations[duration]; !ok {
		return nil, nil, apperror.Validation("неизвестный период", map[string]string{
			"duration": "допустимы today, week, month, custom",
		})
	}

	now := s.now().UTC()
	var from time.Time
	switch duration {
	case models.DurationToday:
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case models.DurationWeek:
		from = now.AddDate(0, 0, -7)
	case models.DurationMonth:
		from = now.AddDate(0, 0, -30)
	case models.DurationCustom:
		return parseDateRange(start, end, true)
	}
	return &from, nil, nil
}

// parseDateRange разбирает даты YYYY-MM-DD в полуинтервал [start, end+1d).
func parseDateRange(start, end string, required bool) (*time.Time, *time.Time, error) {
	if start == "" && end == "" && !required {
		return nil, nil, nil
	}
	fields := map[string]string{}
	from, errFrom := time.Parse(dateLayout, start)
	if errFrom != nil {
		fields["start_date"] = "ожидается дата YYYY-MM-DD"
	}
	till, errTill := time.Parse(dateLayout, end)
	if errTill != nil {
		fields["end_date"] = "ожидается дата YYYY-MM-DD"
	}
	if len(fields) > 0 {
		return nil, nil, apperror.Validation("некорректный период", fields)
	}
	if till.Before(from) {
		return nil, nil, apperror.Validation("некорректный период", map[string]string{
			"end_date": "не может быть раньше start_date",
		})
	}
	till = till.AddDate(0, 0, 1)
	return &from, &till, nil
}

// UserListQuery - параметры списка пользователей.
type UserListQuery struct {
	Page       int
	PerPage    int
	Search     string
	IsActive   *bool
	IsVerified *bool
	StartDate  string
	EndDate    string
}

// UserPage - страница пользователей.
type UserPage struct {
	Users      []models.UserSummary `json:"users"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
	TotalPages int                  `json:"total_pages"`
}

func (s *AdminService) ListUsers(ctx context.Context, q UserListQuery) (*UserPage, error) {
	page, perPage := normalizePage(q.Page, q.PerPage)

	from, to, err := parseDateRange(q.StartDate, q.EndDate, false)
	if err != nil {
		return nil, err
	}

	users, total, err := s.queries.ListUsers(ctx, models.UserFilter{
		Search:     q.Search,
		IsActive:   q.IsActive,
		IsVerified: q.IsVerified,
		From:       from,
		To:         to,
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for i := range users {
		summaries = append(summaries, users[i].Summary())
	}

	return &UserPage{
		Users:      summaries,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
	}, nil
}

func (s *AdminService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("admin service: %w", err)
	}
	return user, nil
}

// AdminCreateUser - данные пользователя, создаваемого администратором.
type AdminCreateUser struct {
	FirstName    string
	LastName     string
	MobileNumber string
	CountryCode  string
	Email        *string
	Password     string
	IsAdmin      bool
	IsActive     *bool
}

// CreateUser создаёт пользователя. Номер считается подтверждённым.
func (s *AdminService) CreateUser(ctx context.Context, actorID uuid.UUID, in AdminCreateUser) (*models.User, error) {
	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("admin service: hash password: %w", err)
	}

	user := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		MobileNumber: in.MobileNumber,
		CountryCode:  in.CountryCode,
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   true,
		IsAdmin:      in.IsAdmin,
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, apperror.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("admin service: %w", err)
	}

	if err := s.roles.AssignDefaultRoles(ctx, user.ID); err != nil {
		logger.Component("admin").WithError(err).WithField("user_id", user.ID).Error("не удалось выдать роли по умолчанию")
	}

	s.invalidateStats()
	logger.Component("admin").WithFields(map[string]interface{}{
		"admin_id": actorID,
		"user_id":  user.ID,
	}).Info("admin created user")

	return user, nil
}

// AdminUpdateUser - изменяемые поля; nil означает "не менять".
type AdminUpdateUser struct {
	FirstName  *string
	LastName   *string
	Email      *string
	IsActive   *bool
	IsVerified *bool
	IsAdmin    *bool
}

func (s *AdminService) UpdateUser(ctx context.Context, actorID, id uuid.UUID, in AdminUpdateUser) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if actorID == id && ((in.IsAdmin != nil && !*in.IsAdmin) || (in.IsActive != nil && !*in.IsActive)) {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя снять с себя права администратора или заблокировать себя")
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Email != nil {
		user.Email = in.Email
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.IsVerified != nil {
		user.IsVerified = *in.IsVerified
	}
	if in.IsAdmin != nil {
		user.IsAdmin = *in.IsAdmin
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, apperror.New(apperror.ErrCodeConflict, "email уже используется")
		}
		return nil, fmt.Errorf("admin service: %w", err)
	}

	if !user.IsActive {
		if err := s.users.DeleteAllSessions(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("admin service: %w", err)
		}
	}

	s.invalidateStats()
	logger.Component("admin").WithFields(map[string]interface{}{
		"admin_id": actorID,
		"user_id":  user.ID,
	}).Info("admin updated user")

	return user, nil
}

// DeleteUser деактивирует пользователя и завершает его сессии. Запись не удаляется.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return apperror.New(apperror.ErrCodeBadRequest, "нельзя удалить собственный аккаунт")
	}
	inactive := false
	_, err := s.UpdateUser(ctx, actorID, id, AdminUpdateUser{IsActive: &inactive})
	return err
}

// ChatPage - страница диалогов.
type ChatPage struct {
	Conversations []models.ChatConversation `json:"conversations"`
	Total         int                       `json:"total"`
	Page          int                       `json:"page"`
	PerPage       int                       `json:"per_page"`
	TotalPages    int                       `json:"total_pages"`
}

// ChatHistory возвращает диалоги всех пользователей или одного, если userID != nil.
func (s *AdminService) ChatHistory(ctx context.Context, userID *uuid.UUID, page, perPage int) (*ChatPage, error) {
	page, perPage = normalizePage(page, perPage)

	convs, total, err := s.queries.ListConversations(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}

	return &ChatPage{
		Conversations: convs,
		Total:         total,
		Page:          page,
		PerPage:       perPage,
		TotalPages:    totalPages(total, perPage),
	}, nil
}

func (s *AdminService) ChatConversation(ctx context.Context, id uuid.UUID) (*models.ChatConversationDetail, error) {
	detail, err := s.queries.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, apperror.ErrChatNotFound
		}
		return nil, fmt.Errorf("admin service: %w", err)
	}
	return detail, nil
}

func (s *AdminService) invalidateStats() {
	s.cache.InvalidateByPrefix("admin:stats:")
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func totalPages(total, perPage int) int {
	if total == 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
