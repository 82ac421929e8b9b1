package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Check is an extra readiness check run after migrations, e.g. a Redis ping.
type Check func(ctx context.Context) error

// Bootstrap performs one-shot storage initialization. The first call to
// EnsureReady pings the database and applies migrations; every later call
// returns the cached outcome.
type Bootstrap struct {
	db     *sql.DB
	mgr    RepositoryManager
	checks []Check

	once sync.Once
	err  error
}

func NewBootstrap(db *sql.DB, mgr RepositoryManager, checks ...Check) *Bootstrap {
	return &Bootstrap{db: db, mgr: mgr, checks: checks}
}

func (b *Bootstrap) EnsureReady(ctx context.Context) error {
	b.once.Do(func() {
		b.err = b.init(ctx)
	})
	return b.err
}

func (b *Bootstrap) init(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if err := b.mgr.RunMigrations(ctx, b.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	for _, c := range b.checks {
		if err := c(ctx); err != nil {
			return err
		}
	}
	return nil
}
