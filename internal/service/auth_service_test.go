package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
)

const (
	testMobile  = "5551234"
	testCountry = "+1"
	testPhone   = testCountry + testMobile
)

type authEnv struct {
	auth   *AuthService
	users  *mockUserRepository
	codes  *mockVerificationStore
	sender *recordingSender
	rbac   *mockRBACRepository
	tokens *TokenManager
	cache  *CacheService
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	users := newMockUserRepository()
	codes := &mockVerificationStore{}
	sender := newRecordingSender()
	rbac := newMockRBACRepository()
	rbac.seed(models.RoleUser, true)
	tokens := newTestTokenManager()
	cache := NewCacheService()
	t.Cleanup(cache.Close)

	otp := NewOTPService(codes, sender, OTPOptions{Length: 6, TTL: 10 * time.Minute, SendTimeout: time.Second, AppName: "Lemon Health"})
	providers := NewProviderRegistry(NewMobileProvider(users, otp, bcrypt.MinCost))

	auth := NewAuthService(AuthDeps{
		Providers:    providers,
		Repo:         users,
		Roles:        rbac,
		Codes:        otp,
		TokenManager: tokens,
		Blacklist:    NewMemoryBlacklist(cache),
		BcryptCost:   bcrypt.MinCost,
	})

	return &authEnv{auth: auth, users: users, codes: codes, sender: sender, rbac: rbac, tokens: tokens, cache: cache}
}

func testCreds(password string) Credentials {
	return Credentials{FirstName: "Ann", MobileNumber: testMobile, CountryCode: testCountry, Password: password}
}

// registerVerified регистрирует пользователя и подтверждает номер.
func (e *authEnv) registerVerified(t *testing.T, password string) *AuthResult {
	t.Helper()
	ctx := context.Background()

	_, err := e.auth.Register(ctx, "mobile", testCreds(password))
	require.NoError(t, err)

	res, err := e.auth.Verify(ctx, CodeCheck{
		Type: models.VerificationTypeSignup, Recipient: testMobile, CountryCode: testCountry, Code: e.sender.lastCode(testPhone),
	}, SessionMeta{})
	require.NoError(t, err)
	return res
}

func TestAuthService_RegisterVerifyLoginScenario(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, "mobile", testCreds("p@ss"))
	require.NoError(t, err)
	assert.False(t, reg.User.IsVerified)
	assert.True(t, reg.User.IsActive)
	assert.True(t, reg.VerificationSent)

	verified, err := env.auth.Verify(ctx, CodeCheck{
		Type:        models.VerificationTypeSignup,
		Recipient:   testMobile,
		CountryCode: testCountry,
		Code:        env.sender.lastCode(testPhone),
	}, SessionMeta{})
	require.NoError(t, err)
	assert.True(t, verified.User.IsVerified)

	stored, err := env.users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)

	login, err := env.auth.Login(ctx, "mobile", Credentials{MobileNumber: testMobile, CountryCode: testCountry, Password: "p@ss"}, SessionMeta{UserAgent: "ios"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.TokenPair.AccessToken)
	assert.NotEmpty(t, login.TokenPair.RefreshToken)

	claims, err := env.tokens.VerifyToken(login.TokenPair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID.String(), claims.Subject)
	assert.True(t, claims.IsVerified())

	_, err = env.auth.Login(ctx, "mobile", Credentials{MobileNumber: testMobile, CountryCode: testCountry, Password: "wrong"}, SessionMeta{})
	assert.Equal(t, apperror.ErrCodeInvalidCredentials, apperror.CodeOf(err))
}

func TestAuthService_RegisterDuplicateIsConflict(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "mobile", testCreds("p@ss"))
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, "mobile", testCreds("other"))
	assert.Equal(t, apperror.ErrCodeConflict, apperror.CodeOf(err))

	// Тот же номер с другим кодом страны - другой пользователь
	other := testCreds("p@ss")
	other.CountryCode = "+44"
	_, err = env.auth.Register(ctx, "mobile", other)
	assert.NoError(t, err)
}

func TestAuthService_RegisterAssignsDefaultRoles(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, "mobile", testCreds("p@ss"))
	require.NoError(t, err)

	ok, err := env.rbac.UserHasRole(ctx, reg.User.ID, models.RoleUser)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthService_RegisterKeepsUserWhenProviderFails(t *testing.T) {
	env := newAuthEnv(t)
	env.sender.err = errors.New("twilio down")
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, "mobile", testCreds("p@ss"))
	require.NoError(t, err)
	assert.False(t, reg.VerificationSent)

	_, err = env.users.GetByMobile(ctx, testMobile, testCountry)
	assert.NoError(t, err)
}

func TestAuthService_RegisterUnknownProvider(t *testing.T) {
	env := newAuthEnv(t)

	_, err := env.auth.Register(context.Background(), "google", testCreds("p@ss"))
	assert.Equal(t, apperror.ErrCodeBadRequest, apperror.CodeOf(err))
}

func TestAuthService_LoginUnverifiedGetsNoTokens(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "mobile", testCreds("p@ss"))
	require.NoError(t, err)

	res, err := env.auth.Login(ctx, "mobile", testCreds("p@ss"), SessionMeta{})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, apperror.ErrNotVerified))
	assert.Equal(t, 0, len(env.users.sessions))
}

func TestAuthService_LoginUnknownUserIsInvalidCredentials(t *testing.T) {
	env := newAuthEnv(t)

	_, err := env.auth.Login(context.Background(), "mobile", testCreds("p@ss"), SessionMeta{})
	assert.True(t, errors.Is(err, apperror.ErrInvalidCredentials))
}

func TestAuthService_LoginInactiveUser(t *testing.T) {
	env := newAuthEnv(t)
	res := env.registerVerified(t, "p@ss")
	require.NoError(t, env.users.mutate(res.User.ID, func(u *models.User) { u.IsActive = false }))

	_, err := env.auth.Login(context.Background(), "mobile", testCreds("p@ss"), SessionMeta{})
	assert.Equal(t, apperror.ErrCodeInactiveUser, apperror.CodeOf(err))
}

func TestAuthService_VerifyWrongCode(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, "mobile", testCreds("p@ss"))
	require.NoError(t, err)

	wrong := "000000"
	if env.sender.lastCode(testPhone) == wrong {
		wrong = "111111"
	}
	_, err = env.auth.Verify(ctx, CodeCheck{Type: models.VerificationTypeSignup, Recipient: testMobile, CountryCode: testCountry, Code: wrong}, SessionMeta{})
	assert.Equal(t, apperror.ErrCodeCodeMismatch, apperror.CodeOf(err))

	stored, _ := env.users.GetByID(ctx, reg.User.ID)
	assert.False(t, stored.IsVerified)
}

func TestAuthService_VerifyRejectsPasswordResetType(t *testing.T) {
	env := newAuthEnv(t)

	_, err := env.auth.Verify(context.Background(), CodeCheck{Type: models.VerificationTypePasswordReset, Recipient: testMobile, CountryCode: testCountry, Code: "123456"}, SessionMeta{})
	assert.Equal(t, apperror.ErrCodeValidation, apperror.CodeOf(err))
}

func TestAuthService_LoginCodeFlow(t *testing.T) {
	env := newAuthEnv(t)
	env.registerVerified(t, "p@ss")
	ctx := context.Background()

	require.NoError(t, env.auth.ResendVerification(ctx, models.VerificationTypeLogin, testMobile, testCountry))

	res, err := env.auth.Verify(ctx, CodeCheck{
		Type: models.VerificationTypeLogin, Recipient: testMobile, CountryCode: testCountry, Code: env.sender.lastCode(testPhone),
	}, SessionMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.TokenPair.AccessToken)
}

func TestAuthService_ResendDoesNotLeakExistence(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	// Неизвестный номер: ошибки нет, сообщение не отправлено
	require.NoError(t, env.auth.ResendVerification(ctx, models.VerificationTypeSignup, "5550000", testCountry))
	assert.Equal(t, 0, env.sender.count(testCountry+"5550000"))

	// Уже подтверждённый пользователь: тот же ответ, новый signup код не отправляется
	env.registerVerified(t, "p@ss")
	sent := env.sender.count(testPhone)
	require.NoError(t, env.auth.ResendVerification(ctx, models.VerificationTypeSignup, testMobile, testCountry))
	assert.Equal(t, sent, env.sender.count(testPhone))
}

func TestAuthService_ResendSupersedesOldCode(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "mobile", testCreds("p@ss"))
	require.NoError(t, err)
	first := env.sender.lastCode(testPhone)

	require.NoError(t, env.auth.ResendVerification(ctx, models.VerificationTypeSignup, testMobile, testCountry))
	second := env.sender.lastCode(testPhone)
	assert.Equal(t, 1, env.codes.active())

	if first != second {
		_, err = env.auth.Verify(ctx, CodeCheck{Type: models.VerificationTypeSignup, Recipient: testMobile, CountryCode: testCountry, Code: first}, SessionMeta{})
		assert.Equal(t, apperror.ErrCodeCodeMismatch, apperror.CodeOf(err))
	}

	_, err = env.auth.Verify(ctx, CodeCheck{Type: models.VerificationTypeSignup, Recipient: testMobile, CountryCode: testCountry, Code: second}, SessionMeta{})
	assert.NoError(t, err)
}

func TestAuthService_ResendProviderFailure(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "mobile", testCreds("p@ss"))
	require.NoError(t, err)

	env.sender.err = errors.New("gateway timeout")
	err = env.auth.ResendVerification(ctx, models.VerificationTypeSignup, testMobile, testCountry)
	assert.Equal(t, apperror.ErrCodeProvider, apperror.CodeOf(err))
}

func TestAuthService_ForgotAndResetPassword(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "old-pass")

	_, err := env.auth.Login(ctx, "mobile", testCreds("old-pass"), SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, env.auth.ForgotPassword(ctx, testMobile, testCountry))
	code := env.sender.lastCode(testPhone)

	require.NoError(t, env.auth.ResetPassword(ctx, testMobile, testCountry, code, "new-pass"))

	user, _ := env.users.GetByMobile(ctx, testMobile, testCountry)
	assert.True(t, user.IsVerified)
	assert.Equal(t, 0, env.users.sessionCount(user.ID))

	_, err = env.auth.Login(ctx, "mobile", testCreds("old-pass"), SessionMeta{})
	assert.True(t, errors.Is(err, apperror.ErrInvalidCredentials))
	_, err = env.auth.Login(ctx, "mobile", testCreds("new-pass"), SessionMeta{})
	assert.NoError(t, err)

	// Код сброса одноразовый
	err = env.auth.ResetPassword(ctx, testMobile, testCountry, code, "third-pass")
	assert.Equal(t, apperror.ErrCodeCodeNotFound, apperror.CodeOf(err))
}

func TestAuthService_ForgotPasswordUnknownUser(t *testing.T) {
	env := newAuthEnv(t)

	assert.NoError(t, env.auth.ForgotPassword(context.Background(), "5550000", testCountry))
	assert.Equal(t, 0, env.sender.count(testCountry+"5550000"))
}

func TestAuthService_ResetPasswordDoesNotVerifyUser(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "mobile", testCreds("p@ss"))
	require.NoError(t, err)

	require.NoError(t, env.auth.ForgotPassword(ctx, testMobile, testCountry))
	require.NoError(t, env.auth.ResetPassword(ctx, testMobile, testCountry, env.sender.lastCode(testPhone), "new-pass"))

	user, _ := env.users.GetByMobile(ctx, testMobile, testCountry)
	assert.False(t, user.IsVerified)
}

func TestAuthService_ChangePassword(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	first := env.registerVerified(t, "p@ss")

	second, err := env.auth.Login(ctx, "mobile", testCreds("p@ss"), SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, 2, env.users.sessionCount(first.User.ID))

	err = env.auth.ChangePassword(ctx, first.User.ID, second.TokenPair.RefreshTokenID, "wrong", "new-pass")
	assert.Equal(t, apperror.ErrCodeInvalidCredentials, apperror.CodeOf(err))

	require.NoError(t, env.auth.ChangePassword(ctx, first.User.ID, second.TokenPair.RefreshTokenID, "p@ss", "new-pass"))
	assert.Equal(t, 1, env.users.sessionCount(first.User.ID))

	// Текущая сессия продолжает работать
	_, err = env.auth.Refresh(ctx, second.TokenPair.RefreshToken, SessionMeta{})
	assert.NoError(t, err)
	// Остальные завершены
	_, err = env.auth.Refresh(ctx, first.TokenPair.RefreshToken, SessionMeta{})
	assert.True(t, errors.Is(err, apperror.ErrTokenInvalid))
}

func TestAuthService_RefreshRotation(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	res := env.registerVerified(t, "p@ss")

	pair, err := env.auth.Refresh(ctx, res.TokenPair.RefreshToken, SessionMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, res.TokenPair.RefreshToken, pair.RefreshToken)

	// Старый refresh токен больше не принимается
	_, err = env.auth.Refresh(ctx, res.TokenPair.RefreshToken, SessionMeta{})
	assert.True(t, errors.Is(err, apperror.ErrTokenInvalid))

	// Новый работает
	_, err = env.auth.Refresh(ctx, pair.RefreshToken, SessionMeta{})
	assert.NoError(t, err)
}

func TestAuthService_RefreshRejectsAccessToken(t *testing.T) {
	env := newAuthEnv(t)
	res := env.registerVerified(t, "p@ss")

	_, err := env.auth.Refresh(context.Background(), res.TokenPair.AccessToken, SessionMeta{})
	assert.True(t, errors.Is(err, apperror.ErrTokenInvalid))
}

func TestAuthService_RefreshExpired(t *testing.T) {
	env := newAuthEnv(t)
	res := env.registerVerified(t, "p@ss")

	env.tokens.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err := env.auth.Refresh(context.Background(), res.TokenPair.RefreshToken, SessionMeta{})
	assert.True(t, errors.Is(err, apperror.ErrTokenExpired))
}

func TestAuthService_LogoutRevokesAccessAndSession(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	res := env.registerVerified(t, "p@ss")

	claims, err := env.tokens.VerifyToken(res.TokenPair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)

	revoked, err := env.auth.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, env.auth.Logout(ctx, claims))

	revoked, err = env.auth.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = env.auth.Refresh(ctx, res.TokenPair.RefreshToken, SessionMeta{})
	assert.True(t, errors.Is(err, apperror.ErrTokenInvalid))
}

func TestAuthService_Sessions(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	res := env.registerVerified(t, "p@ss")

	sessions, err := env.auth.ListSessions(ctx, res.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	err = env.auth.DeleteSession(ctx, sessions[0].ID, uuid.New())
	assert.Equal(t, apperror.ErrCodeNotFound, apperror.CodeOf(err))

	require.NoError(t, env.auth.DeleteSession(ctx, sessions[0].ID, res.User.ID))
	sessions, _ = env.auth.ListSessions(ctx, res.User.ID)
	assert.Empty(t, sessions)
}

func TestAuthService_Me(t *testing.T) {
	env := newAuthEnv(t)
	res := env.registerVerified(t, "p@ss")

	me, err := env.auth.Me(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", me.FirstName)

	_, err = env.auth.Me(context.Background(), uuid.New())
	assert.Equal(t, apperror.ErrCodeNotFound, apperror.CodeOf(err))
}

func TestAuthService_DeactivatedUserAfterLogin(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	res := env.registerVerified(t, "p@ss")

	active, err := env.auth.IsActive(ctx, res.User.ID)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, env.users.mutate(res.User.ID, func(u *models.User) { u.IsActive = false }))

	active, err = env.auth.IsActive(ctx, res.User.ID)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = env.auth.Me(ctx, res.User.ID)
	assert.Equal(t, apperror.ErrCodeInactiveUser, apperror.CodeOf(err))

	err = env.auth.ChangePassword(ctx, res.User.ID, res.TokenPair.RefreshTokenID, "p@ss", "new-pass")
	assert.Equal(t, apperror.ErrCodeInactiveUser, apperror.CodeOf(err))

	// Неизвестный пользователь тоже не считается активным.
	active, err = env.auth.IsActive(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestProviderRegistry_Validate(t *testing.T) {
	reg := NewProviderRegistry(NewMobileProvider(newMockUserRepository(), nil, bcrypt.MinCost))

	assert.NoError(t, reg.Validate([]string{"mobile"}))
	assert.NoError(t, reg.Validate([]string{"MOBILE"}))

	err := reg.Validate([]string{"mobile", "google"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google")
}
