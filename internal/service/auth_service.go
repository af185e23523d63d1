package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/internal/repository"
	"github.com/noah-isme/sma-tc-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type authSessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Revoke(ctx context.Context, id string, revokedAt time.Time) error
}

// Login outcomes reported to metrics.
const (
	loginOutcomeSignup = "signup"
	loginOutcomeSignin = "signin"
	loginOutcomeFailed = "failed"
)

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	AllowSignup       bool
	DefaultRole       models.UserRole
}

// AuthService signs accounts up or in and tracks their sessions.
type AuthService struct {
	users     authUserRepository
	sessions  authSessionRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	audit     auditRecorder
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, sessions authSessionRepository, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	if !config.DefaultRole.Valid() {
		config.DefaultRole = models.RoleAdmin
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		cache:     cacheSvc,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		audit:     auditRecorder{audit: users, logger: logger},
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Login attempts a sign-up first and falls back to sign-in when the account already exists.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, signedUp, err := s.signUp(ctx, req)
	if err != nil {
		s.metrics.RecordLogin(loginOutcomeFailed)
		return nil, err
	}
	if !signedUp {
		if user, err = s.signIn(ctx, req, user); err != nil {
			s.metrics.RecordLogin(loginOutcomeFailed)
			return nil, err
		}
	}

	now := s.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.AccessTokenExpiry),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	_ = s.cache.Set(ctx, sessionCacheKey(session.ID), session, s.config.AccessTokenExpiry)

	accessToken, err := s.generateAccessToken(user, session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	action, outcome := models.AuditActionLogin, loginOutcomeSignin
	if signedUp {
		action, outcome = models.AuditActionSignup, loginOutcomeSignup
	}
	s.metrics.RecordLogin(outcome)
	s.audit.record(ctx, RequestMeta{UserID: user.ID, IP: req.IP, UserAgent: req.UserAgent}, action, models.AuditResourceSession, session.ID, map[string]string{"status": "success"})

	return &models.LoginResponse{
		AccessToken:   accessToken,
		ExpiresIn:     int64(s.config.AccessTokenExpiry.Seconds()),
		Session:       session.Info(),
		User:          userInfo(user),
		Role:          user.Role,
		DashboardPath: user.Role.DashboardPath(),
		SignedUp:      signedUp,
		IssuedAt:      now,
	}, nil
}

// signUp creates the account when the email is unknown. It reports false when the
// account already exists so the caller can sign in instead, handing back the
// existing account when it was loaded.
func (s *AuthService) signUp(ctx context.Context, req models.LoginRequest) (*models.User, bool, error) {
	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err == nil && existing != nil {
		return existing, false, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if !s.config.AllowSignup {
		return nil, false, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     strings.SplitN(req.Email, "@", 2)[0],
		Role:         s.config.DefaultRole,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, nil
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}
	return user, true, nil
}

// signIn checks the password against known, loading the account first when the
// caller has none.
func (s *AuthService) signIn(ctx context.Context, req models.LoginRequest, known *models.User) (*models.User, error) {
	user := known
	if user == nil {
		found, err := s.users.FindByEmail(ctx, req.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
		}
		user = found
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	return user, nil
}

// Logout revokes the session carried by the claims.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims, meta RequestMeta) error {
	if claims == nil || claims.SessionID == "" {
		return appErrors.ErrUnauthorized
	}
	if err := s.sessions.Revoke(ctx, claims.SessionID, s.now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke session")
	}
	_ = s.cache.Delete(ctx, sessionCacheKey(claims.SessionID))

	meta.UserID = claims.UserID
	s.audit.record(ctx, meta, models.AuditActionLogout, models.AuditResourceSession, claims.SessionID, map[string]string{"status": "logout"})
	return nil
}

// Me rehydrates the live session behind the claims.
func (s *AuthService) Me(ctx context.Context, claims *models.JWTClaims) (*models.MeResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	session, err := s.CheckSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return &models.MeResponse{
		Session:       session.Info(),
		User:          userInfo(user),
		DashboardPath: user.Role.DashboardPath(),
	}, nil
}

// CheckSession returns the session when it is still live. The cache is consulted before the row store.
func (s *AuthService) CheckSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries no session")
	}
	now := s.now()

	var cached models.Session
	if hit, _ := s.cache.Get(ctx, sessionCacheKey(sessionID), &cached); hit && cached.Live(now) {
		return &cached, nil
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionRevoked
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if !session.Live(now) {
		return nil, appErrors.ErrSessionRevoked
	}
	_ = s.cache.Set(ctx, sessionCacheKey(sessionID), session, session.ExpiresAt.Sub(now))
	return session, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User, session *models.Session) (string, error) {
	claims := &models.JWTClaims{
		UserID:    user.ID,
		SessionID: session.ID,
		Role:      user.Role,
		Email:     user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			NotBefore: jwt.NewNumericDate(session.CreatedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func sessionCacheKey(id string) string {
	return cache.Key("session", id)
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
}
