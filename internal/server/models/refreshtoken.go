package models

import "time"

// RefreshTokenRecord marks a refresh token as live. Its presence in the
// store is what makes the token usable.
type RefreshTokenRecord struct {
	Token     string
	AccountID string
	CreatedAt time.Time
	ExpiresAt time.Time
}
