package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/lemon-backend/internal/models"
)

var (
	// ErrUserNotFound возвращается, когда запись пользователя не найдена.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists возвращается при нарушении уникальности (mobile_number, country_code) или email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrSessionNotFound возвращается, когда сессия не найдена или уже использована.
	ErrSessionNotFound = errors.New("session not found")
)

const userColumns = `id, first_name, last_name, mobile_number, country_code, email, password_hash,
	is_active, is_verified, is_admin, last_login_at, created_at, updated_at`

// UserRepository отвечает за работу с таблицами users и user_sessions.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя. Флаги is_active, is_verified и is_admin берутся из user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (first_name, last_name, mobile_number, country_code, email, password_hash, is_active, is_verified, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.FirstName, user.LastName, user.MobileNumber, user.CountryCode, user.Email,
		user.PasswordHash, user.IsActive, user.IsVerified, user.IsAdmin,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

// GetByMobile возвращает пользователя по номеру телефона и коду страны.
func (r *UserRepository) GetByMobile(ctx context.Context, mobile, countryCode string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE mobile_number = $1 AND country_code = $2`
	if err := r.db.GetContext(ctx, &user, query, mobile, countryCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by mobile %w", err)
	}

	return &user, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}

	return &user, nil
}

// MarkVerified помечает номер пользователя подтверждённым.
func (r *UserRepository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	return r.execOne(ctx, "mark verified",
		`UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`, userID)
}

// UpdatePassword сохраняет новый хеш пароля.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return r.execOne(ctx, "update password",
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
}

// UpdateLastLoginAt обновляет время последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	return r.execOne(ctx, "update last login",
		`UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
}

// Update сохраняет изменяемые поля пользователя (используется админкой).
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, is_active = $5, is_verified = $6, is_admin = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Email, user.IsActive, user.IsVerified, user.IsAdmin,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("user repository: update %w", err)
	}
	return nil
}

// CreateSession сохраняет сессию, привязанную к jti refresh токена.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, refresh_token_id, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		session.UserID, session.RefreshTokenID, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}
	return nil
}

// ConsumeSession атомарно удаляет сессию по jti refresh токена и возвращает её.
// Из двух конкурентных запросов с одним токеном сессию получит только один.
func (r *UserRepository) ConsumeSession(ctx context.Context, refreshTokenID uuid.UUID) (*models.Session, error) {
	var session models.Session
	query := `
		DELETE FROM user_sessions
		WHERE refresh_token_id = $1
		RETURNING id, user_id, refresh_token_id, user_agent, ip_address, expires_at, created_at
	`
	if err := r.db.GetContext(ctx, &session, query, refreshTokenID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("user repository: consume session %w", err)
	}
	return &session, nil
}

// ListSessions возвращает активные сессии пользователя.
func (r *UserRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	var sessions []models.Session
	query := `
		SELECT id, user_id, refresh_token_id, user_agent, ip_address, expires_at, created_at
		FROM user_sessions
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("user repository: list sessions %w", err)
	}
	return sessions, nil
}

// DeleteSessionByID удаляет сессию пользователя по её ID.
func (r *UserRepository) DeleteSessionByID(ctx context.Context, sessionID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteAllSessions удаляет все сессии пользователя.
func (r *UserRepository) DeleteAllSessions(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("user repository: delete all sessions %w", err)
	}
	return nil
}

// DeleteAllSessionsExcept удаляет все сессии пользователя, кроме указанной.
func (r *UserRepository) DeleteAllSessionsExcept(ctx context.Context, userID, exceptRefreshTokenID uuid.UUID) error {
	query := `DELETE FROM user_sessions WHERE user_id = $1 AND refresh_token_id <> $2`
	if _, err := r.db.ExecContext(ctx, query, userID, exceptRefreshTokenID); err != nil {
		return fmt.Errorf("user repository: delete sessions except %w", err)
	}
	return nil
}

func (r *UserRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("user repository: %s %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// isUniqueViolation проверяет код ошибки PostgreSQL 23505.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// DeleteExpiredSessions удаляет сессии, срок действия refresh токена которых истёк до before.
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("user repository: delete expired sessions %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
