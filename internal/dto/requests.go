package dto

// RegisterRequest - регистрация по номеру телефона.
type RegisterRequest struct {
	FirstName    string  `json:"first_name" binding:"required,max=100"`
	LastName     string  `json:"last_name" binding:"max=100"`
	MobileNumber string  `json:"mobile_number" binding:"required,mobile"`
	CountryCode  string  `json:"country_code" binding:"required,country_code"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Password     string  `json:"password" binding:"required,strong_password"`
	// Provider по умолчанию "mobile"
	Provider string `json:"provider"`
}

// LoginRequest - вход по номеру и паролю.
type LoginRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required,mobile"`
	CountryCode  string `json:"country_code" binding:"required,country_code"`
	Password     string `json:"password" binding:"required"`
	Provider     string `json:"provider"`
}

// VerifyRequest - подтверждение кода signup или login.
type VerifyRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required,mobile"`
	CountryCode  string `json:"country_code" binding:"required,country_code"`
	Code         string `json:"code" binding:"required,otp_code"`
	Type         string `json:"type" binding:"omitempty,oneof=signup login"`
}

// ResendVerificationRequest - повторная отправка кода.
type ResendVerificationRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required,mobile"`
	CountryCode  string `json:"country_code" binding:"required,country_code"`
	Type         string `json:"type" binding:"omitempty,oneof=signup login password_reset"`
}

// ForgotPasswordRequest - запрос кода сброса пароля.
type ForgotPasswordRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required,mobile"`
	CountryCode  string `json:"country_code" binding:"required,country_code"`
}

// ResetPasswordRequest - установка нового пароля по коду.
type ResetPasswordRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required,mobile"`
	CountryCode  string `json:"country_code" binding:"required,country_code"`
	Code         string `json:"code" binding:"required,otp_code"`
	NewPassword  string `json:"new_password" binding:"required,strong_password"`
}

// ChangePasswordRequest - смена пароля авторизованным пользователем.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,strong_password"`
}

// RefreshTokenRequest - обмен refresh токена на новую пару.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateRoleRequest - создание роли.
type CreateRoleRequest struct {
	Name        string  `json:"name" binding:"required,max=50"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsDefault   bool    `json:"is_default"`
}

// UpdateRoleRequest - частичное изменение роли.
type UpdateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=50"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsDefault   *bool   `json:"is_default"`
}

// CreatePermissionRequest - создание права.
type CreatePermissionRequest struct {
	Name        string  `json:"name" binding:"required,permission_name"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// RolePermissionRequest - назначение права роли.
type RolePermissionRequest struct {
	PermissionID string `json:"permission_id" binding:"required,uuid"`
}

// UserRoleRequest - назначение роли пользователю.
type UserRoleRequest struct {
	RoleID string `json:"role_id" binding:"required,uuid"`
}

// AdminLoginRequest - вход в админку.
type AdminLoginRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required,mobile"`
	CountryCode  string `json:"country_code" binding:"required,country_code"`
	Password     string `json:"password" binding:"required"`
}

// AdminCreateUserRequest - создание пользователя администратором.
type AdminCreateUserRequest struct {
	FirstName    string  `json:"first_name" binding:"required,max=100"`
	LastName     string  `json:"last_name" binding:"max=100"`
	MobileNumber string  `json:"mobile_number" binding:"required,mobile"`
	CountryCode  string  `json:"country_code" binding:"required,country_code"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Password     string  `json:"password" binding:"required,strong_password"`
	IsAdmin      bool    `json:"is_admin"`
	IsActive     *bool   `json:"is_active"`
}

// AdminUpdateUserRequest - частичное изменение пользователя администратором.
type AdminUpdateUserRequest struct {
	FirstName  *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName   *string `json:"last_name" binding:"omitempty,max=100"`
	Email      *string `json:"email" binding:"omitempty,email"`
	IsActive   *bool   `json:"is_active"`
	IsVerified *bool   `json:"is_verified"`
	IsAdmin    *bool   `json:"is_admin"`
}
