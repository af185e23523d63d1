package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for the sign-up then sign-in flow.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued access token and the live session.
type LoginResponse struct {
	AccessToken   string      `json:"access_token"`
	ExpiresIn     int64       `json:"expires_in"`
	Session       SessionInfo `json:"session"`
	User          UserInfo    `json:"user"`
	Role          UserRole    `json:"role"`
	DashboardPath string      `json:"dashboard_path"`
	SignedUp      bool        `json:"signed_up"`
	IssuedAt      time.Time   `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// SessionInfo is the public view of a session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MeResponse is the session rehydrated from a bearer token.
type MeResponse struct {
	Session       SessionInfo `json:"session"`
	User          UserInfo    `json:"user"`
	DashboardPath string      `json:"dashboard_path"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	SessionID string   `json:"session_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	jwt.RegisteredClaims
}
