package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/internal/repository"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
)

type mockAuthRepo struct {
	auditStub
	users            map[string]*models.User
	findByEmailErr   error
	createErr        error
	lastLoginUpdated bool
	emailLookups     int
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{users: map[string]*models.User{}}
	for _, u := range users {
		repo.users[u.Email] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.emailLookups++
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(_ context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.users[user.Email]; ok {
		return repository.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(context.Context, string, time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

type mockSessionRepo struct {
	sessions map[string]*models.Session
	findHits int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*models.Session{}}
}

func (m *mockSessionRepo) Create(_ context.Context, session *models.Session) error {
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, id string) (*models.Session, error) {
	m.findHits++
	if s, ok := m.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) Revoke(_ context.Context, id string, revokedAt time.Time) error {
	if s, ok := m.sessions[id]; ok {
		s.RevokedAt = &revokedAt
	}
	return nil
}

func hashed(t *testing.T, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthService(users *mockAuthRepo, sessions *mockSessionRepo, cfg AuthConfig) *AuthService {
	if cfg.AccessTokenSecret == "" {
		cfg.AccessTokenSecret = "secret"
	}
	if cfg.AccessTokenExpiry == 0 {
		cfg.AccessTokenExpiry = time.Hour
	}
	return NewAuthService(users, sessions, newMemoryCache(), nil, nil, nil, cfg)
}

func TestLoginSignsUpUnknownAccount(t *testing.T) {
	users := newMockAuthRepo()
	svc := newAuthService(users, newMockSessionRepo(), AuthConfig{AllowSignup: true, DefaultRole: models.RoleAdmin})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: " New@Example.edu ", Password: "secret123"})
	require.NoError(t, err)
	assert.True(t, resp.SignedUp)
	assert.Equal(t, models.RoleAdmin, resp.Role)
	assert.Equal(t, "/admin/dashboard", resp.DashboardPath)
	assert.Equal(t, "new@example.edu", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Contains(t, users.actions(), models.AuditActionSignup)
	assert.True(t, users.lastLoginUpdated)
}

func TestLoginFallsBackToSignIn(t *testing.T) {
	users := newMockAuthRepo(&models.User{ID: "u1", Email: "student@example.edu", PasswordHash: hashed(t, "secret123"), Role: models.RoleStudent, Active: true})
	svc := newAuthService(users, newMockSessionRepo(), AuthConfig{AllowSignup: true})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.edu", Password: "secret123"})
	require.NoError(t, err)
	assert.False(t, resp.SignedUp)
	assert.Equal(t, "/student/dashboard", resp.DashboardPath)
	assert.Contains(t, users.actions(), models.AuditActionLogin)
	assert.Equal(t, 1, users.emailLookups)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, resp.Session.ID, claims.SessionID)
}

func TestLoginWrongPassword(t *testing.T) {
	users := newMockAuthRepo(&models.User{ID: "u1", Email: "admin@example.edu", PasswordHash: hashed(t, "secret123"), Role: models.RoleAdmin, Active: true})
	svc := newAuthService(users, newMockSessionRepo(), AuthConfig{AllowSignup: true})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.edu", Password: "wrong-pass"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginRejectsUnknownAccountWhenSignupDisabled(t *testing.T) {
	svc := newAuthService(newMockAuthRepo(), newMockSessionRepo(), AuthConfig{AllowSignup: false})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "new@example.edu", Password: "secret123"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginValidationAndRepositoryFailure(t *testing.T) {
	users := newMockAuthRepo()
	svc := newAuthService(users, newMockSessionRepo(), AuthConfig{AllowSignup: true})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	users.findByEmailErr = errors.New("db down")
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "a@example.edu", Password: "secret123"})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestLogoutRevokesSession(t *testing.T) {
	users := newMockAuthRepo()
	sessions := newMockSessionRepo()
	svc := newAuthService(users, sessions, AuthConfig{AllowSignup: true})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.edu", Password: "secret123"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)

	me, err := svc.Me(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, resp.Session.ID, me.Session.ID)
	assert.Equal(t, 0, sessions.findHits, "live session should be served from cache")

	require.NoError(t, svc.Logout(context.Background(), claims, RequestMeta{IP: "127.0.0.1"}))
	assert.Contains(t, users.actions(), models.AuditActionLogout)

	_, err = svc.CheckSession(context.Background(), claims.SessionID)
	assert.True(t, errors.Is(err, appErrors.ErrSessionRevoked))
}

func TestCheckSessionUnknownAndExpired(t *testing.T) {
	sessions := newMockSessionRepo()
	svc := newAuthService(newMockAuthRepo(), sessions, AuthConfig{})

	_, err := svc.CheckSession(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrSessionRevoked))

	sessions.sessions["old"] = &models.Session{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)}
	_, err = svc.CheckSession(context.Background(), "old")
	assert.True(t, errors.Is(err, appErrors.ErrSessionRevoked))

	_, err = svc.CheckSession(context.Background(), "")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc := newAuthService(newMockAuthRepo(), newMockSessionRepo(), AuthConfig{AllowSignup: true})
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@example.edu", Password: "secret123"})
	require.NoError(t, err)

	other := newAuthService(newMockAuthRepo(), newMockSessionRepo(), AuthConfig{AccessTokenSecret: "other"})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
