package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingManager struct {
	*PostgresRepositoryManager
	mu    sync.Mutex
	calls int
	err   error
}

func (m *countingManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func newPingDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestEnsureReady_RunsOnce(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing()

	mgr := &countingManager{PostgresRepositoryManager: NewPostgresRepositoryManager()}
	checks := 0
	b := NewBootstrap(db, mgr, func(ctx context.Context) error {
		checks++
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.EnsureReady(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mgr.calls)
	assert.Equal(t, 1, checks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureReady_PingErrorIsCached(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing().WillReturnError(errors.New("refused"))

	mgr := &countingManager{PostgresRepositoryManager: NewPostgresRepositoryManager()}
	b := NewBootstrap(db, mgr)

	err := b.EnsureReady(context.Background())
	require.ErrorContains(t, err, "db ping: refused")
	assert.Equal(t, err, b.EnsureReady(context.Background()))
	assert.Zero(t, mgr.calls)
}

func TestEnsureReady_MigrationError(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing()

	mgr := &countingManager{PostgresRepositoryManager: NewPostgresRepositoryManager(), err: errors.New("bad sql")}
	b := NewBootstrap(db, mgr)

	assert.ErrorContains(t, b.EnsureReady(context.Background()), "migrations: bad sql")
}

func TestEnsureReady_CheckError(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing()

	mgr := &countingManager{PostgresRepositoryManager: NewPostgresRepositoryManager()}
	b := NewBootstrap(db, mgr, func(ctx context.Context) error { return errors.New("redis down") })

	assert.EqualError(t, b.EnsureReady(context.Background()), "redis down")
}
