package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/lemon-backend/internal/models"
)

// ErrConversationNotFound возвращается, когда диалог не найден.
var ErrConversationNotFound = errors.New("conversation not found")

// AdminRepository содержит запросы только для чтения, которые нужны админке.
type AdminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// ListUsers возвращает страницу пользователей и общее число записей под фильтром.
func (r *AdminRepository) ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if f.Search != "" {
		where += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR mobile_number ILIKE $%d OR email ILIKE $%d)`,
			argIndex, argIndex, argIndex, argIndex)
		args = append(args, "%"+f.Search+"%")
		argIndex++
	}
	if f.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argIndex)
		args = append(args, *f.IsActive)
		argIndex++
	}
	if f.IsVerified != nil {
		where += fmt.Sprintf(" AND is_verified = $%d", argIndex)
		args = append(args, *f.IsVerified)
		argIndex++
	}
	if f.From != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *f.From)
		argIndex++
	}
	if f.To != nil {
		where += fmt.Sprintf(" AND created_at < $%d", argIndex)
		args = append(args, *f.To)
		argIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("admin repository: count users %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, f.Limit, f.Offset)

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("admin repository: list users %w", err)
	}

	return users, total, nil
}

// UserStats считает пользователей по флагам. При from/to != nil учитываются только
// пользователи, созданные в [from, to).
func (r *AdminRepository) UserStats(ctx context.Context, from, to *time.Time) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_users,
			COUNT(*) FILTER (WHERE is_active) AS active_users,
			COUNT(*) FILTER (WHERE is_verified) AS verified_users,
			COUNT(*) FILTER (WHERE is_admin) AS admin_users
		FROM users
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("admin repository: user stats %w", err)
	}
	return &stats, nil
}

// CountUsersCreatedSince возвращает число пользователей, созданных не раньше since.
func (r *AdminRepository) CountUsersCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, since); err != nil {
		return 0, fmt.Errorf("admin repository: count users since %w", err)
	}
	return n, nil
}

// ListConversations возвращает диалоги с числом сообщений, свежие первыми.
func (r *AdminRepository) ListConversations(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]models.ChatConversation, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM chat_conversations WHERE ($1::uuid IS NULL OR user_id = $1)
	`, userID); err != nil {
		return nil, 0, fmt.Errorf("admin repository: count conversations %w", err)
	}

	convs := []models.ChatConversation{}
	err := r.db.SelectContext(ctx, &convs, `
		SELECT c.id, c.user_id, c.title, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM chat_messages m WHERE m.conversation_id = c.id) AS message_count
		FROM chat_conversations c
		WHERE ($1::uuid IS NULL OR c.user_id = $1)
		ORDER BY c.updated_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("admin repository: list conversations %w", err)
	}
	return convs, total, nil
}

// GetConversation возвращает диалог вместе с сообщениями в хронологическом порядке.
func (r *AdminRepository) GetConversation(ctx context.Context, id uuid.UUID) (*models.ChatConversationDetail, error) {
	var detail models.ChatConversationDetail
	err := r.db.GetContext(ctx, &detail.ChatConversation, `
		SELECT c.id, c.user_id, c.title, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM chat_messages m WHERE m.conversation_id = c.id) AS message_count
		FROM chat_conversations c
		WHERE c.id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("admin repository: get conversation %w", err)
	}

	detail.Messages = []models.ChatMessage{}
	if err := r.db.SelectContext(ctx, &detail.Messages, `
		SELECT id, conversation_id, user_id, role, content, created_at
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY created_at
	`, id); err != nil {
		return nil, fmt.Errorf("admin repository: conversation messages %w", err)
	}

	return &detail, nil
}
