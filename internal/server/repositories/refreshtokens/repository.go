// Package refreshtokens declares the refresh token store. A refresh token
// is usable only while its record is present here, which makes the store
// the revocation authority for sessions.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// Repository defines operations for recording, checking and revoking refresh tokens.
type Repository interface {
	// Exists reports whether a live record for token is present.
	Exists(ctx context.Context, token string) (bool, error)

	// Create records token for accountID until expiresAt.
	Create(ctx context.Context, token string, accountID string, expiresAt time.Time) error

	// Delete removes the record for token. Deleting a non-existent
	// token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteBatch removes the records for all given tokens at once and
	// returns how many were removed.
	DeleteBatch(ctx context.Context, tokens []string) (int64, error)

	// DeleteByAccount revokes every record held by accountID.
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)

	// DeleteExpired purges records whose expiry is at or before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// ListExpired returns up to limit records expired at or before now,
	// oldest first.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.RefreshTokenRecord, error)
}
