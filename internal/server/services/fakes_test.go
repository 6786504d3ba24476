package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/dbx"
	"github.com/dmitrijs2005/zkkeeper/internal/logging"
	"github.com/dmitrijs2005/zkkeeper/internal/server/config"
	"github.com/dmitrijs2005/zkkeeper/internal/server/models"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/vaults"
	"github.com/dmitrijs2005/zkkeeper/internal/zkp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeCredentials struct {
	mu     sync.Mutex
	byName map[string]*models.Credential
	getErr error
}

func (f *fakeCredentials) Create(_ context.Context, c *models.Credential) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[c.Username]; ok {
		return nil, common.ErrorAlreadyExists
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	f.byName[c.Username] = c
	return c, nil
}

func (f *fakeCredentials) GetByUsername(_ context.Context, username string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.byName[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[string]*models.Session
}

func (f *fakeSessions) Create(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.byID[s.ID] = &cp
	return nil
}

func (f *fakeSessions) Find(_ context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Revoke(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok && s.RevokedAt == nil {
		now := time.Now()
		s.RevokedAt = &now
	}
	return nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.byID {
		if !before.Before(s.ExpiresAt) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

type fakeVaults struct {
	mu     sync.Mutex
	byUser map[string]*models.Vault
	putErr error
}

func (f *fakeVaults) Get(_ context.Context, userID string) (*models.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byUser[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVaults) Put(_ context.Context, v *models.Vault) (*models.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	v.UpdatedAt = time.Now()
	cp := *v
	f.byUser[v.UserID] = &cp
	return v, nil
}

type fakeRepoManager struct {
	creds      *fakeCredentials
	sessions   *fakeSessions
	challenges *zkp.MemoryChallengeStore
	vaults     *fakeVaults
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		creds:      &fakeCredentials{byName: map[string]*models.Credential{}},
		sessions:   &fakeSessions{byID: map[string]*models.Session{}},
		challenges: zkp.NewMemoryChallengeStore(),
		vaults:     &fakeVaults{byUser: map[string]*models.Vault{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository  { return m.creds }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return m.sessions }
func (m *fakeRepoManager) Challenges(dbx.DBTX) zkp.ChallengeStore       { return m.challenges }
func (m *fakeRepoManager) Vaults(dbx.DBTX) vaults.Repository            { return m.vaults }

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:               "test-secret",
		SessionValidityDuration: time.Hour,
		ChallengeTTL:            time.Minute,
	}
}

// newMockDB returns a sqlmock DB that accepts any number of transactions.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newAuthService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *AuthService {
	t.Helper()
	s, err := NewAuthService(db, rm, testConfig(), logging.Nop())
	require.NoError(t, err)
	return s
}
