package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	accountsrepo "github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/accounts"
	refreshtokensrepo "github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/refreshtokens"
)

var errBoom = errors.New("boom")

type fakeAccounts struct {
	mu      sync.Mutex
	rows    map[string]models.Account
	err     error
	saveErr error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{rows: map[string]models.Account{}}
}

func (f *fakeAccounts) FindByEmail(ctx context.Context, email string, withCredentials bool) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.rows {
		if a.Email == email {
			if !withCredentials {
				a.PasswordHash, a.Salt, a.SessionMarker = nil, nil, nil
			}
			return &a, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) FindByID(ctx context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (f *fakeAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.FindByEmail(ctx, email, false)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeAccounts) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.rows {
		if r.Email == a.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	a.CreatedAt = time.Now()
	f.rows[a.ID] = *a
	return a, nil
}

func (f *fakeAccounts) Save(ctx context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.rows[a.ID]; !ok {
		return common.ErrorNotFound
	}
	f.rows[a.ID] = *a
	return nil
}

func (f *fakeAccounts) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeAccounts) List(ctx context.Context) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Account, 0, len(f.rows))
	for _, a := range f.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

type fakeRefreshTokens struct {
	mu      sync.Mutex
	records map[string]models.RefreshTokenRecord
	err     error
}

func newFakeRefreshTokens() *fakeRefreshTokens {
	return &fakeRefreshTokens{records: map[string]models.RefreshTokenRecord{}}
}

func (f *fakeRefreshTokens) Exists(ctx context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.records[token]
	return ok, nil
}

func (f *fakeRefreshTokens) Create(ctx context.Context, token, accountID string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records[token] = models.RefreshTokenRecord{Token: token, AccountID: accountID, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeRefreshTokens) Delete(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.records, token)
	return nil
}

func (f *fakeRefreshTokens) DeleteBatch(ctx context.Context, tokens []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for _, t := range tokens {
		if _, ok := f.records[t]; ok {
			delete(f.records, t)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshTokens) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for k, r := range f.records {
		if r.AccountID == accountID {
			delete(f.records, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRefreshTokens) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.RefreshTokenRecord, error) {
	return nil, nil
}

func (f *fakeRefreshTokens) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeRepoManager struct {
	a *fakeAccounts
	r *fakeRefreshTokens
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accountsrepo.Repository           { return m.a }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }

type mockClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	svc   *SessionService
	rm    *fakeRepoManager
	mock  sqlmock.Sqlmock
	clock *mockClock
}

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	clk := &mockClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := auth.NewCodec([]byte("access-secret"), []byte("refresh-secret"), testAccessTTL, testRefreshTTL, auth.WithClock(clk.Now))
	rm := &fakeRepoManager{a: newFakeAccounts(), r: newFakeRefreshTokens()}

	return &testEnv{
		svc:   NewSessionService(db, rm, codec, logging.Nop{}),
		rm:    rm,
		mock:  mock,
		clock: clk,
	}
}

// register runs a successful Register, expecting its transaction.
func (e *testEnv) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
	res, err := e.svc.Register(context.Background(), email, password)
	if err != nil {
		t.Fatalf("Register(%q) error: %v", email, err)
	}
	return res
}
