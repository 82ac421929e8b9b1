// Package sweeper purges expired refresh token records, optionally
// archiving them first.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/refreshtokens"
)

const DefaultBatchSize = 500

type Option func(*Sweeper)

func WithArchiver(a Archiver) Option {
	return func(s *Sweeper) { s.archiver = a }
}

func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

type Sweeper struct {
	store    refreshtokens.Repository
	archiver Archiver
	interval time.Duration
	batch    int
	now      func() time.Time
	log      logging.Logger
}

func New(store refreshtokens.Repository, interval time.Duration, log logging.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:    store,
		interval: interval,
		batch:    DefaultBatchSize,
		now:      time.Now,
		log:      log.With("component", "sweeper"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run sweeps every interval until ctx is cancelled. Failed sweeps are
// logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Warn(ctx, "sweeper disabled", "interval", s.interval)
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error(ctx, "sweep failed", "error", err, "purged", n)
				continue
			}
			if n > 0 {
				s.log.Info(ctx, "expired refresh tokens purged", "purged", n)
			}
		}
	}
}

// Sweep runs a single pass and returns how many records were purged.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.now()

	if s.archiver == nil {
		n, err := s.store.DeleteExpired(ctx, now)
		if err != nil {
			return 0, fmt.Errorf("delete expired: %w", err)
		}
		return n, nil
	}

	var total int64
	for {
		recs, err := s.store.ListExpired(ctx, now, s.batch)
		if err != nil {
			return total, fmt.Errorf("list expired: %w", err)
		}
		if len(recs) == 0 {
			return total, nil
		}

		// nothing is deleted unless it was archived
		if err := s.archiver.Archive(ctx, recs, now); err != nil {
			return total, fmt.Errorf("archive: %w", err)
		}
		tokens := make([]string, len(recs))
		for i, r := range recs {
			tokens[i] = r.Token
		}
		n, err := s.store.DeleteBatch(ctx, tokens)
		if err != nil {
			return total, fmt.Errorf("delete: %w", err)
		}
		total += n

		if len(recs) < s.batch {
			return total, nil
		}
	}
}
