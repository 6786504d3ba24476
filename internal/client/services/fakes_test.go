package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/api"
	"github.com/dmitrijs2005/zkkeeper/internal/backup"
	"github.com/dmitrijs2005/zkkeeper/internal/client/client"
	"github.com/dmitrijs2005/zkkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/zkkeeper/internal/client/session"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/cryptox"
	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
	"github.com/dmitrijs2005/zkkeeper/internal/logging"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
	"github.com/dmitrijs2005/zkkeeper/internal/zkp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testParams() kdf.Params {
	return kdf.Params{Algorithm: kdf.PBKDF2SHA256, Iterations: kdf.MinPBKDF2Iterations}
}

type account struct {
	req  *api.RegisterRequest
	blob *vaultx.Blob
}

type issued struct {
	user string
	c    []byte
}

// fakeServer is an in-process stand-in for the zkkeeper server that runs
// the real proof verification.
type fakeServer struct {
	mu         sync.Mutex
	accounts   map[string]*account
	challenges map[string]issued
	token      string
	backups    int
	logouts    int
	revoked    []string

	// hooks run before the call is served; they may block.
	onChallenge func(ctx context.Context) error
	onVerify    func()
}

func newFakeServer() *fakeServer {
	return &fakeServer{accounts: map[string]*account{}, challenges: map[string]issued{}}
}

func (s *fakeServer) Close() error { return nil }

func (s *fakeServer) Register(_ context.Context, req *api.RegisterRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[req.Username]; ok {
		return client.ErrAlreadyExists
	}
	s.accounts[req.Username] = &account{req: req, blob: req.Vault}
	return nil
}

func (s *fakeServer) Challenge(ctx context.Context, username string) (*api.ChallengeResponse, error) {
	if s.onChallenge != nil {
		if err := s.onChallenge(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := zkp.Ristretto255()
	c, err := g.RandomScalar()
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	s.challenges[id] = issued{user: username, c: c}

	resp := &api.ChallengeResponse{ChallengeID: id, C: c, ExpiresAt: time.Now().Add(time.Minute), Group: g.Name()}
	if acc, ok := s.accounts[username]; ok {
		resp.Salt, resp.KDFParams = acc.req.Salt, acc.req.KDFParams
	} else {
		resp.Salt, resp.KDFParams = common.GenerateRandByteArray(16), testParams()
	}
	return resp, nil
}

func (s *fakeServer) Verify(_ context.Context, req *api.VerifyRequest) (*api.VerifyResponse, error) {
	if s.onVerify != nil {
		s.onVerify()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[req.ChallengeID]
	delete(s.challenges, req.ChallengeID)
	if !ok || ch.user != req.Username {
		return nil, client.ErrUnauthorized
	}
	acc, ok := s.accounts[req.Username]
	if !ok {
		return nil, client.ErrUnauthorized
	}
	engine := zkp.NewEngine(zkp.Ristretto255())
	if !engine.Verify(acc.req.Commitment, ch.c, zkp.Binding(req.ChallengeID, req.Username), zkp.Proof{R: req.R, S: req.S}) {
		return nil, client.ErrUnauthorized
	}
	return &api.VerifyResponse{Status: api.StatusOK, SessionToken: "token-" + req.Username, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *fakeServer) Backup(_ context.Context, username string) (*api.BackupResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups++

	if acc, ok := s.accounts[username]; ok {
		return &api.BackupResponse{Backup: acc.req.Backup, Salt: acc.req.Salt, KDFParams: acc.req.KDFParams, Group: acc.req.Group}, nil
	}
	return &api.BackupResponse{
		Backup: backup.EncryptedBackup{
			IV:         common.GenerateRandByteArray(cryptox.NonceSize),
			Ciphertext: common.GenerateRandByteArray(32 + cryptox.TagSize),
		},
		Salt:      common.GenerateRandByteArray(16),
		KDFParams: testParams(),
		Group:     "ristretto255",
	}, nil
}

func (s *fakeServer) GetVault(context.Context) (*vaultx.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.current()
	if acc == nil {
		return nil, client.ErrUnauthorized
	}
	if acc.blob == nil {
		return nil, client.ErrVaultNotFound
	}
	return acc.blob, nil
}

func (s *fakeServer) PutVault(_ context.Context, b *vaultx.Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.current()
	if acc == nil {
		return client.ErrUnauthorized
	}
	acc.blob = b
	return nil
}

func (s *fakeServer) current() *account {
	for name, acc := range s.accounts {
		if s.token == "token-"+name {
			return acc
		}
	}
	return nil
}

func (s *fakeServer) Logout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logouts++
	s.token = ""
	return nil
}

func (s *fakeServer) RevokeToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = append(s.revoked, token)
	return nil
}

func (s *fakeServer) Ping(context.Context) error { return nil }

func (s *fakeServer) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *fakeServer) HasToken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

func (s *fakeServer) backupCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backups
}

type harness struct {
	srv    *fakeServer
	cache  *metadata.CredentialCache
	secret *session.Secret
	auth   *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithServer(t, newFakeServer())
}

// newHarnessWithServer gives a fresh device (its own cache) pointed at srv.
func newHarnessWithServer(t *testing.T, srv *fakeServer) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache := metadata.NewCredentialCache(metadata.NewSQLiteRepository(db))
	secret := session.NewSecret(time.Minute)
	return &harness{
		srv:    srv,
		cache:  cache,
		secret: secret,
		auth:   NewAuthService(srv, cache, secret, testParams(), logging.Nop()),
	}
}
