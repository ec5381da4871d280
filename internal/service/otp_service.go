package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/notify"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lemon-backend/internal/repository"
)

// VerificationStore описывает зависимости OTPService от хранилища кодов.
type VerificationStore interface {
	Create(ctx context.Context, vc *models.VerificationCode) error
	LatestActive(ctx context.Context, codeType models.VerificationType, mobile, countryCode string) (*models.VerificationCode, error)
	Consume(ctx context.Context, id uuid.UUID) error
}

// CodeRequest - запрос на выпуск кода.
type CodeRequest struct {
	Type        models.VerificationType
	Recipient   string
	CountryCode string
	UserID      *uuid.UUID
}

// CodeCheck - проверка введённого пользователем кода.
type CodeCheck struct {
	Type        models.VerificationType
	Recipient   string
	CountryCode string
	Code        string
}

// OTPService выпускает, отправляет и проверяет одноразовые коды.
type OTPService struct {
	store       VerificationStore
	sender      notify.Sender
	length      int
	ttl         time.Duration
	sendTimeout time.Duration
	appName     string

	now      func() time.Time
	generate func(length int) (string, error)
}

// OTPOptions - параметры OTPService из конфигурации.
type OTPOptions struct {
	Length      int
	TTL         time.Duration
	SendTimeout time.Duration
	AppName     string
}

func NewOTPService(store VerificationStore, sender notify.Sender, opts OTPOptions) *OTPService {
	return &OTPService{
		store:       store,
		sender:      sender,
		length:      opts.Length,
		ttl:         opts.TTL,
		sendTimeout: opts.SendTimeout,
		appName:     opts.AppName,
		now:         time.Now,
		generate:    generateNumericCode,
	}
}

// CreateVerificationCode сохраняет новый код (предыдущие активные коды того же типа
// гасятся) и отправляет его. Ошибка отправки возвращается как PROVIDER_ERROR,
// сохранённый код при этом остаётся действительным.
func (s *OTPService) CreateVerificationCode(ctx context.Context, req CodeRequest) error {
	if !req.Type.Valid() {
		return apperror.New(apperror.ErrCodeBadRequest, "неизвестный тип кода")
	}

	code, err := s.generate(s.length)
	if err != nil {
		return fmt.Errorf("otp service: generate code: %w", err)
	}

	vc := &models.VerificationCode{
		UserID:       req.UserID,
		Type:         req.Type,
		MobileNumber: req.Recipient,
		CountryCode:  req.CountryCode,
		Code:         code,
		ExpiresAt:    s.now().Add(s.ttl),
	}
	if err := s.store.Create(ctx, vc); err != nil {
		return fmt.Errorf("otp service: store code: %w", err)
	}

	sendCtx := ctx
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}

	to := req.CountryCode + req.Recipient
	if err := s.sender.Send(sendCtx, to, s.message(req.Type, code)); err != nil {
		logger.Component("otp").WithFields(map[string]interface{}{
			"type":  req.Type,
			"error": err.Error(),
		}).Warn("не удалось отправить код")
		return apperror.Wrap(err, apperror.ErrCodeProvider, "не удалось отправить код подтверждения")
	}

	return nil
}

// VerifyCode проверяет последний активный код и атомарно погашает его.
// Порядок проверок: нет кода, истёк, не совпал.
func (s *OTPService) VerifyCode(ctx context.Context, check CodeCheck) (*models.VerificationCode, error) {
	vc, err := s.store.LatestActive(ctx, check.Type, check.Recipient, check.CountryCode)
	if err != nil {
		if errors.Is(err, repository.ErrVerificationCodeNotFound) {
			return nil, apperror.ErrOTPNotFound
		}
		return nil, fmt.Errorf("otp service: lookup code: %w", err)
	}

	if vc.IsExpired(s.now()) {
		return nil, apperror.ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(vc.Code), []byte(check.Code)) != 1 {
		return nil, apperror.ErrOTPMismatch
	}

	if err := s.store.Consume(ctx, vc.ID); err != nil {
		if errors.Is(err, repository.ErrVerificationCodeNotFound) {
			return nil, apperror.ErrOTPNotFound
		}
		return nil, fmt.Errorf("otp service: consume code: %w", err)
	}
	vc.Consumed = true

	return vc, nil
}

func (s *OTPService) message(t models.VerificationType, code string) string {
	minutes := int(s.ttl.Minutes())
	switch t {
	case models.VerificationTypePasswordReset:
		return fmt.Sprintf("Код для сброса пароля %s: %s. Действует %d мин.", s.appName, code, minutes)
	default:
		return fmt.Sprintf("Ваш код подтверждения %s: %s. Действует %d мин.", s.appName, code, minutes)
	}
}

// generateNumericCode возвращает строку из length цифр, полученных через crypto/rand.
func generateNumericCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
