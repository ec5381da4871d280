package service

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/lemon-backend/internal/models"
	"github.com/ignatzorin/lemon-backend/internal/repository"
)

// mockUserRepository хранит пользователей и сессии в памяти.
type mockUserRepository struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	sessions map[uuid.UUID]*models.Session // ключ - refresh_token_id
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:    make(map[uuid.UUID]*models.User),
		sessions: make(map[uuid.UUID]*models.Session),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.MobileNumber == user.MobileNumber && u.CountryCode == user.CountryCode {
			return repository.ErrUserAlreadyExists
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepository) GetByMobile(ctx context.Context, mobile, countryCode string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.MobileNumber == mobile && u.CountryCode == countryCode {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepository) mutate(id uuid.UUID, fn func(u *models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (m *mockUserRepository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	return m.mutate(userID, func(u *models.User) { u.IsVerified = true })
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	return m.mutate(userID, func(u *models.User) { u.PasswordHash = hash })
}

func (m *mockUserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	return m.mutate(userID, func(u *models.User) {
		now := time.Now()
		u.LastLoginAt = &now
	})
}

func (m *mockUserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	cp := *session
	m.sessions[session.RefreshTokenID] = &cp
	return nil
}

func (m *mockUserRepository) ConsumeSession(ctx context.Context, refreshTokenID uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[refreshTokenID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	delete(m.sessions, refreshTokenID)
	return s, nil
}

func (m *mockUserRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockUserRepository) DeleteSessionByID(ctx context.Context, sessionID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.sessions {
		if s.ID == sessionID && s.UserID == userID {
			delete(m.sessions, k)
			return nil
		}
	}
	return repository.ErrSessionNotFound
}

func (m *mockUserRepository) DeleteAllSessions(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, k)
		}
	}
	return nil
}

func (m *mockUserRepository) DeleteAllSessionsExcept(ctx context.Context, userID, except uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.sessions {
		if s.UserID == userID && k != except {
			delete(m.sessions, k)
		}
	}
	return nil
}

func (m *mockUserRepository) sessionCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

// mockVerificationStore повторяет семантику VerificationRepository:
// Create гасит прежние коды, Consume срабатывает только один раз.
type mockVerificationStore struct {
	mu    sync.Mutex
	codes []*models.VerificationCode
}

func (m *mockVerificationStore) Create(ctx context.Context, vc *models.VerificationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.MobileNumber == vc.MobileNumber && c.CountryCode == vc.CountryCode && c.Type == vc.Type {
			c.Consumed = true
		}
	}
	vc.ID = uuid.New()
	vc.CreatedAt = time.Now()
	cp := *vc
	m.codes = append(m.codes, &cp)
	return nil
}

func (m *mockVerificationStore) LatestActive(ctx context.Context, t models.VerificationType, mobile, country string) (*models.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.codes) - 1; i >= 0; i-- {
		c := m.codes[i]
		if c.MobileNumber == mobile && c.CountryCode == country && c.Type == t && !c.Consumed {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrVerificationCodeNotFound
}

func (m *mockVerificationStore) Consume(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.ID == id && !c.Consumed {
			c.Consumed = true
			return nil
		}
	}
	return repository.ErrVerificationCodeNotFound
}

func (m *mockVerificationStore) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.codes {
		if !c.Consumed {
			n++
		}
	}
	return n
}

var codePattern = regexp.MustCompile(`\d{4,10}`)

// recordingSender запоминает отправленные сообщения; err имитирует сбой шлюза.
type recordingSender struct {
	mu       sync.Mutex
	messages map[string][]string
	err      error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{messages: make(map[string][]string)}
}

func (s *recordingSender) Send(ctx context.Context, to, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages[to] = append(s.messages[to], message)
	return nil
}

// lastCode возвращает код из последнего сообщения на номер to.
func (s *recordingSender) lastCode(to string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[to]
	if len(msgs) == 0 {
		return ""
	}
	return codePattern.FindString(msgs[len(msgs)-1])
}

func (s *recordingSender) count(to string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[to])
}

// mockRBACRepository хранит роли, права и связи в памяти.
type mockRBACRepository struct {
	mu          sync.Mutex
	roles       map[uuid.UUID]*models.Role
	permissions map[uuid.UUID]*models.Permission
	rolePerms   map[uuid.UUID]map[uuid.UUID]bool
	userRoles   map[uuid.UUID]map[uuid.UUID]bool
}

func newMockRBACRepository() *mockRBACRepository {
	return &mockRBACRepository{
		roles:       make(map[uuid.UUID]*models.Role),
		permissions: make(map[uuid.UUID]*models.Permission),
		rolePerms:   make(map[uuid.UUID]map[uuid.UUID]bool),
		userRoles:   make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *mockRBACRepository) UserHasRole(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for roleID := range m.userRoles[userID] {
		if m.roles[roleID].Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRBACRepository) UserHasPermission(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for roleID := range m.userRoles[userID] {
		for permID := range m.rolePerms[roleID] {
			if m.permissions[permID].Name == name {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockRBACRepository) AssignDefaultRoles(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.roles {
		if r.IsDefault {
			if m.userRoles[userID] == nil {
				m.userRoles[userID] = make(map[uuid.UUID]bool)
			}
			m.userRoles[userID][id] = true
		}
	}
	return nil
}

func (m *mockRBACRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Role{}
	for _, r := range m.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRBACRepository) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.roles[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, repository.ErrRoleNotFound
}

func (m *mockRBACRepository) CreateRole(ctx context.Context, role *models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == role.Name {
			return repository.ErrRoleAlreadyExists
		}
	}
	role.ID = uuid.New()
	role.CreatedAt = time.Now()
	cp := *role
	m.roles[role.ID] = &cp
	return nil
}

func (m *mockRBACRepository) UpdateRole(ctx context.Context, role *models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[role.ID]; !ok {
		return repository.ErrRoleNotFound
	}
	cp := *role
	m.roles[role.ID] = &cp
	return nil
}

func (m *mockRBACRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return repository.ErrRoleNotFound
	}
	delete(m.roles, id)
	delete(m.rolePerms, id)
	for _, roles := range m.userRoles {
		delete(roles, id)
	}
	return nil
}

func (m *mockRBACRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Permission{}
	for _, p := range m.permissions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRBACRepository) GetPermission(ctx context.Context, id uuid.UUID) (*models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.permissions[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrPermissionNotFound
}

func (m *mockRBACRepository) CreatePermission(ctx context.Context, perm *models.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.permissions {
		if p.Name == perm.Name {
			return repository.ErrPermissionExists
		}
	}
	perm.ID = uuid.New()
	perm.CreatedAt = time.Now()
	cp := *perm
	m.permissions[perm.ID] = &cp
	return nil
}

func (m *mockRBACRepository) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Permission{}
	for id := range m.rolePerms[roleID] {
		out = append(out, *m.permissions[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRBACRepository) AddPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rolePerms[roleID] == nil {
		m.rolePerms[roleID] = make(map[uuid.UUID]bool)
	}
	m.rolePerms[roleID][permissionID] = true
	return nil
}

func (m *mockRBACRepository) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rolePerms[roleID], permissionID)
	return nil
}

func (m *mockRBACRepository) UserRoles(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Role{}
	for id := range m.userRoles[userID] {
		out = append(out, *m.roles[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRBACRepository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrRoleNotFound
}

func (m *mockRBACRepository) AddRoleToUser(ctx context.Context, userID, roleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userRoles[userID] == nil {
		m.userRoles[userID] = make(map[uuid.UUID]bool)
	}
	m.userRoles[userID][roleID] = true
	return nil
}

func (m *mockRBACRepository) RemoveRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.userRoles[userID], roleID)
	return nil
}

// seed добавляет роль с правами и возвращает её.
func (m *mockRBACRepository) seed(name string, isDefault bool, perms ...string) *models.Role {
	role := &models.Role{Name: name, IsDefault: isDefault}
	_ = m.CreateRole(context.Background(), role)
	for _, p := range perms {
		perm := &models.Permission{Name: p}
		if err := m.CreatePermission(context.Background(), perm); errors.Is(err, repository.ErrPermissionExists) {
			for _, existing := range m.permissions {
				if existing.Name == p {
					perm = existing
				}
			}
		}
		_ = m.AddPermissionToRole(context.Background(), role.ID, perm.ID)
	}
	return role
}
