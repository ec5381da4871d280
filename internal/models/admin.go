package models

import "time"

// DashboardStats - сводка по пользователям для админки.
type DashboardStats struct {
	TotalUsers            int `db:"total_users" json:"total_users"`
	ActiveUsers           int `db:"active_users" json:"active_users"`
	VerifiedUsers         int `db:"verified_users" json:"verified_users"`
	AdminUsers            int `db:"admin_users" json:"admin_users"`
	UsersCreatedToday     int `json:"users_created_today"`
	UsersCreatedThisWeek  int `json:"users_created_this_week"`
	UsersCreatedThisMonth int `json:"users_created_this_month"`
}

// UserFilter - параметры выборки пользователей в админке.
// From/To ограничивают created_at полуинтервалом [From, To).
type UserFilter struct {
	Search     string
	IsActive   *bool
	IsVerified *bool
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
