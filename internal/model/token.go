package model

import "time"

// DefaultTokenRateLimit is the requests-per-minute value recorded on new
// tokens when none is given.
const DefaultTokenRateLimit = 100

// TokenPrefixLength is the number of leading plaintext characters stored
// alongside the hash for candidate lookup.
const TokenPrefixLength = 8

// APIToken is an issued gateway credential. The plaintext is never stored;
// only a bcrypt hash and a short prefix are persisted.
type APIToken struct {
	ID                 string      `json:"id" db:"id"`
	UserID             string      `json:"user_id" db:"user_id"`
	Name               string      `json:"name" db:"name"`
	TokenHash          string      `json:"-" db:"token_hash"`
	TokenPrefix        string      `json:"token_prefix" db:"token_prefix"`
	Permissions        Permissions `json:"permissions"`
	RateLimitPerMinute int         `json:"rate_limit_per_minute" db:"rate_limit_per_minute"`
	IsActive           bool        `json:"is_active" db:"is_active"`
	ExpiresAt          *time.Time  `json:"expires_at,omitempty" db:"expires_at"`
	LastUsedAt         *time.Time  `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the token has an expiry in the past relative to now.
func (t *APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// Usable reports whether the token may authenticate requests at now.
func (t *APIToken) Usable(now time.Time) bool {
	return t.IsActive && !t.Expired(now)
}
