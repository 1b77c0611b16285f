package models

import "time"

// User is the authenticated identity returned by the auth service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated session held in memory only.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"-"`
	User         *User     `json:"user"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// AuthEvent names an auth-state transition pushed by the auth service.
type AuthEvent string

// Auth-state transitions.
const (
	EventSignedIn     AuthEvent = "SIGNED_IN"
	EventSignedOut    AuthEvent = "SIGNED_OUT"
	EventTokenExpired AuthEvent = "TOKEN_EXPIRED"
	EventUserUpdated  AuthEvent = "USER_UPDATED"
)
