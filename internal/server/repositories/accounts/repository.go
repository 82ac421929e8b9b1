// Package accounts declares the account store and its PostgreSQL implementation.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// Repository persists accounts. Lookups of a missing account return
// common.ErrorNotFound.
type Repository interface {
	// FindByEmail loads the account with email. Hash, salt and session
	// marker are read only when withCredentials is true.
	FindByEmail(ctx context.Context, email string, withCredentials bool) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create inserts a new account. A taken email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	// Save writes back the mutable credential fields of an existing account.
	Save(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Account, error)
}
