package models

import "time"

// AccessToken is an opaque bearer credential bound to one user. Only the
// SHA-256 digest of the secret half is persisted; the plaintext
// "<id>|<secret>" form is shown to the caller exactly once, at login.
// Tokens do not expire; revocation is an explicit delete. A user may hold
// several tokens at once (one per device).
type AccessToken struct {
	ID         string
	UserID     string
	TokenHash  string
	Name       string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
