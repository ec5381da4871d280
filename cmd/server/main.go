package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/lemon-backend/internal/config"
	"github.com/ignatzorin/lemon-backend/internal/db"
	httpHandlers "github.com/ignatzorin/lemon-backend/internal/http/handlers"
	"github.com/ignatzorin/lemon-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/lemon-backend/internal/http/router"
	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/notify"
	"github.com/ignatzorin/lemon-backend/internal/repository"
	"github.com/ignatzorin/lemon-backend/internal/service"
	"github.com/ignatzorin/lemon-backend/internal/validation"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.IsProduction() {
		logger.Init("info")
	} else {
		logger.Init("debug")
		logger.SetTextFormatter()
	}

	if err := validation.RegisterBindingTags(); err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Redis опционален: без него блэклист и rate limit живут в памяти процесса.
	var redisClient redis.UniversalClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("main: некорректный REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Log.Fatalf("main: redis недоступен: %v", err)
		}
		defer redisClient.Close()
	}

	// SMS провайдер выбирается по OTP_PROVIDER, неизвестное имя - ошибка старта.
	sender, err := notify.NewRegistry().Build(cfg.OTP.Provider, cfg)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	cache := service.NewCacheService()
	defer cache.Close()

	var blacklist service.TokenBlacklist
	if redisClient != nil {
		blacklist = service.NewRedisBlacklist(redisClient)
	} else {
		blacklist = service.NewMemoryBlacklist(cache)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	verificationRepo := repository.NewVerificationRepository(dbConn)
	rbacRepo := repository.NewRBACRepository(dbConn)
	adminRepo := repository.NewAdminRepository(dbConn)

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	otpService := service.NewOTPService(verificationRepo, sender, service.OTPOptions{
		Length:      cfg.OTP.Length,
		TTL:         cfg.OTP.TTL,
		SendTimeout: cfg.OTP.SendTimeout,
		AppName:     cfg.OTP.AppName,
	})

	providers := service.NewProviderRegistry(
		service.NewMobileProvider(userRepo, otpService, cfg.BcryptCost),
	)
	if err := providers.Validate(cfg.AuthProviders); err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	authService := service.NewAuthService(service.AuthDeps{
		Providers:    providers,
		Repo:         userRepo,
		Roles:        rbacRepo,
		Codes:        otpService,
		TokenManager: tokenManager,
		Blacklist:    blacklist,
		BcryptCost:   cfg.BcryptCost,
	})
	rbacService := service.NewRBACService(rbacRepo, userRepo)
	adminService := service.NewAdminService(service.AdminDeps{
		Queries:    adminRepo,
		Users:      userRepo,
		Roles:      rbacRepo,
		Sessions:   authService,
		Cache:      cache,
		BcryptCost: cfg.BcryptCost,
	})

	// Фоновая чистка истёкших сессий и старых кодов.
	service.NewCleanupService(userRepo, verificationRepo, 24*time.Hour).Start(ctx, time.Hour)

	// Первый администратор из ADMIN_SEED_*.
	if cfg.AdminSeed.Enabled() {
		seeds := service.NewSeedService(userRepo, rbacRepo, cfg.BcryptCost)
		if _, err := seeds.SeedAdmin(ctx, service.AdminSeed{
			FirstName:    cfg.AdminSeed.FirstName,
			LastName:     cfg.AdminSeed.LastName,
			MobileNumber: cfg.AdminSeed.MobileNumber,
			CountryCode:  cfg.AdminSeed.CountryCode,
			Password:     cfg.AdminSeed.Password,
		}); err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
	}

	limitStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Deps{
		Auth:   httpHandlers.NewAuthHandler(authService),
		Users:  httpHandlers.NewUserHandler(authService, adminService),
		RBAC:   httpHandlers.NewRBACHandler(rbacService),
		Admin:  httpHandlers.NewAdminHandler(adminService),
		Health: httpHandlers.NewHealthHandler(dbConn, redisClient),

		Tokens:      tokenManager,
		Revocations: authService,
		Access:      rbacService,
		Admins:      adminService,
		Actives:     authService,
		LimitStore:  limitStore,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	logger.Log.WithFields(map[string]interface{}{
		"port":         cfg.HTTPPort,
		"env":          cfg.Env,
		"otp_provider": cfg.OTP.Provider,
		"redis":        redisClient != nil,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.Errorf("main: ошибка закрытия базы: %v", err)
	}
}
