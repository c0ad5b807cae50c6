package models

import "time"

// Session is the server-side proof of identity for cookie-based callers.
// UserID is nil for anonymous sessions created by the anti-forgery handshake
// before login. CSRFToken rotates on every privilege change (login, logout).
type Session struct {
	ID        string
	UserID    *string
	CSRFToken string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Authenticated reports whether the session is bound to a user.
func (s *Session) Authenticated() bool {
	return s.UserID != nil
}
