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
	"github.com/ignatzorin/lemon-backend/internal/repository/common"
)

// ErrVerificationCodeNotFound - активного кода нет, либо его уже использовали.
var ErrVerificationCodeNotFound = errors.New("verification code not found")

const verificationColumns = `id, user_id, type, mobile_number, country_code, code, expires_at, consumed, created_at`

type VerificationRepository struct {
	db *sqlx.DB
}

func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create сохраняет новый код. В той же транзакции все прежние неиспользованные коды
// для пары (получатель, тип) помечаются использованными.
func (r *VerificationRepository) Create(ctx context.Context, vc *models.VerificationCode) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE verification_codes SET consumed = TRUE
			WHERE mobile_number = $1 AND country_code = $2 AND type = $3 AND consumed = FALSE
		`, vc.MobileNumber, vc.CountryCode, vc.Type); err != nil {
			return fmt.Errorf("verification repository: supersede %w", err)
		}

		err := tx.QueryRowxContext(ctx, `
			INSERT INTO verification_codes (user_id, type, mobile_number, country_code, code, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, consumed, created_at
		`, vc.UserID, vc.Type, vc.MobileNumber, vc.CountryCode, vc.Code, vc.ExpiresAt,
		).Scan(&vc.ID, &vc.Consumed, &vc.CreatedAt)
		if err != nil {
			return fmt.Errorf("verification repository: create %w", err)
		}
		return nil
	})
}

// LatestActive возвращает самый свежий неиспользованный код. Срок действия не проверяется,
// чтобы сервис мог отличить истёкший код от отсутствующего.
func (r *VerificationRepository) LatestActive(ctx context.Context, codeType models.VerificationType, mobile, countryCode string) (*models.VerificationCode, error) {
	var vc models.VerificationCode
	err := r.db.GetContext(ctx, &vc, `
		SELECT `+verificationColumns+`
		FROM verification_codes
		WHERE mobile_number = $1 AND country_code = $2 AND type = $3 AND consumed = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`, mobile, countryCode, codeType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVerificationCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verification repository: latest active %w", err)
	}
	return &vc, nil
}

// Consume помечает код использованным, только если он ещё не был использован.
func (r *VerificationRepository) Consume(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE verification_codes SET consumed = TRUE WHERE id = $1 AND consumed = FALSE`, id)
	if err != nil {
		return fmt.Errorf("verification repository: consume %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verification repository: consume %w", err)
	}
	if n == 0 {
		return ErrVerificationCodeNotFound
	}
	return nil
}

// DeleteExpired удаляет использованные и просроченные коды, созданные раньше before.
func (r *VerificationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM verification_codes
		WHERE created_at < $1 AND (consumed = TRUE OR expires_at < NOW())
	`, before)
	if err != nil {
		return 0, fmt.Errorf("verification repository: delete expired %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
