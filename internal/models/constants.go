package models

// Имена ролей и прав, на которые опирается код.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	PermissionReadUsers   = "read:users"
	PermissionWriteUsers  = "write:users"
	PermissionManageRoles = "manage:roles"
)

// Значения фильтра периода для статистики админки.
const (
	DurationToday  = "today"
	DurationWeek   = "week"
	DurationMonth  = "month"
	DurationCustom = "custom"
)

// ValidDurations список допустимых значений duration.
var ValidDurations = map[string]struct{}{
	DurationToday:  {},
	DurationWeek:   {},
	DurationMonth:  {},
	DurationCustom: {},
}
