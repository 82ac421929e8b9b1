package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
)

// AccountDetails is the account view returned by ListAccounts.
type AccountDetails struct {
	ID        string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListAccounts returns every registered account.
func (s *SessionService) ListAccounts(ctx context.Context) ([]AccountDetails, error) {
	list, err := s.repomanager.Accounts(s.db).List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "listing accounts", err)
	}

	out := make([]AccountDetails, 0, len(list))
	for _, a := range list {
		out = append(out, AccountDetails{
			ID:        a.ID,
			Email:     a.Email,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		})
	}
	return out, nil
}

// DeleteAccount removes the account and revokes all of its refresh
// tokens in one transaction, so none of them can be refreshed afterwards.
// Access tokens already issued stay verifiable until they expire.
func (s *SessionService) DeleteAccount(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.NewError(common.ErrorValidation, "Invalid user id")
	}

	var revoked int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Accounts(tx).Delete(ctx, id); err != nil {
			return err
		}
		n, err := s.repomanager.RefreshTokens(tx).DeleteByAccount(ctx, id)
		revoked = n
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewError(common.ErrorNotFound, msgUserNotFound)
		}
		return s.internal(ctx, "deleting account", err)
	}

	s.log.Info(ctx, "account deleted", "account_id", id, "revoked_tokens", revoked)
	return nil
}
