package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/lemon-backend/internal/config"
	"github.com/ignatzorin/lemon-backend/internal/http/handlers"
	"github.com/ignatzorin/lemon-backend/internal/http/middleware"
	"github.com/ignatzorin/lemon-backend/internal/models"
)

// Deps собирает хэндлеры и проверки доступа для роутера.
type Deps struct {
	Auth   *handlers.AuthHandler
	Users  *handlers.UserHandler
	RBAC   *handlers.RBACHandler
	Admin  *handlers.AdminHandler
	Health *handlers.HealthHandler

	Tokens      middleware.TokenVerifier
	Revocations middleware.RevocationChecker
	Access      middleware.AccessChecker
	Admins      middleware.AdminChecker
	Actives     middleware.ActiveChecker
	LimitStore  limiter.Store
}

func SetupRouter(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	if d.Health != nil {
		r.GET("/health", d.Health.Health)
	}

	api := r.Group("/api")
	// Токен проверяется подписью, а блокировка аккаунта - по хранилищу.
	requireAuth := []gin.HandlerFunc{
		middleware.AuthMiddleware(d.Tokens, d.Revocations),
		middleware.RequireActive(d.Actives),
	}

	// Публичные маршруты auth: регистрация, вход и коды ограничены по IP
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(d.LimitStore, "auth", cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", d.Auth.Register)
		authGroup.POST("/login", d.Auth.Login)
		authGroup.POST("/verify", d.Auth.Verify)
		authGroup.POST("/resend-verification", d.Auth.ResendVerification)
		authGroup.POST("/forgot-password", d.Auth.ForgotPassword)
		authGroup.POST("/reset-password", d.Auth.ResetPassword)
		authGroup.POST("/refresh-token", d.Auth.RefreshToken)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(requireAuth...)
	{
		protectedAuth.POST("/logout", d.Auth.Logout)
		protectedAuth.POST("/change-password", d.Auth.ChangePassword)
		protectedAuth.GET("/sessions", d.Auth.ListSessions)
		protectedAuth.DELETE("/sessions/:id", middleware.UUIDValidator("id"), d.Auth.DeleteSession)
	}

	// Управление ролями и правами
	rbacAdmin := api.Group("/auth/admin")
	rbacAdmin.Use(requireAuth...)
	rbacAdmin.Use(middleware.RequireRole(d.Access, models.RoleAdmin))
	{
		rbacAdmin.GET("/roles", d.RBAC.ListRoles)
		rbacAdmin.POST("/roles", d.RBAC.CreateRole)
		rbacAdmin.GET("/roles/:id", middleware.UUIDValidator("id"), d.RBAC.GetRole)
		rbacAdmin.PUT("/roles/:id", middleware.UUIDValidator("id"), d.RBAC.UpdateRole)
		rbacAdmin.DELETE("/roles/:id", middleware.UUIDValidator("id"), d.RBAC.DeleteRole)
		rbacAdmin.POST("/roles/:id/permissions", middleware.UUIDValidator("id"), d.RBAC.AssignPermission)
		rbacAdmin.DELETE("/roles/:id/permissions/:permissionId", middleware.UUIDValidator("id", "permissionId"), d.RBAC.RemovePermission)

		rbacAdmin.GET("/permissions", d.RBAC.ListPermissions)
		rbacAdmin.POST("/permissions", d.RBAC.CreatePermission)

		rbacAdmin.GET("/users/:id/roles", middleware.UUIDValidator("id"), d.RBAC.UserRoles)
		rbacAdmin.POST("/users/:id/roles", middleware.UUIDValidator("id"), d.RBAC.AssignRole)
		rbacAdmin.DELETE("/users/:id/roles/:roleId", middleware.UUIDValidator("id", "roleId"), d.RBAC.RemoveRole)
	}

	users := api.Group("/users")
	users.Use(requireAuth...)
	{
		users.GET("/me", middleware.RequireVerified(), d.Users.Me)
		users.GET("", middleware.RequirePermission(d.Access, models.PermissionReadUsers), d.Users.List)
	}

	admin := api.Group("/admin")
	admin.POST("/login", middleware.RateLimitMiddleware(d.LimitStore, "admin", cfg.RateLimitLimit, cfg.RateLimitPeriod), d.Admin.Login)

	adminProtected := admin.Group("")
	adminProtected.Use(requireAuth...)
	adminProtected.Use(middleware.RequireAdmin(d.Admins))
	{
		adminProtected.GET("/dashboard/stats", d.Admin.DashboardStats)
		adminProtected.GET("/users", d.Admin.ListUsers)
		adminProtected.POST("/users", d.Admin.CreateUser)
		adminProtected.GET("/users/:id", middleware.UUIDValidator("id"), d.Admin.GetUser)
		adminProtected.PUT("/users/:id", middleware.UUIDValidator("id"), d.Admin.UpdateUser)
		adminProtected.DELETE("/users/:id", middleware.UUIDValidator("id"), d.Admin.DeleteUser)
		adminProtected.GET("/chat/history", d.Admin.ChatHistory)
		adminProtected.GET("/chat/history/:id", middleware.UUIDValidator("id"), d.Admin.ChatConversation)
	}

	return r
}
