// Package services contains application services for the zkkeeper client:
// registration, zero-knowledge login with backup fallback, logout, and the
// vault key source used by the reconciler.
package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/zkkeeper/internal/api"
	"github.com/dmitrijs2005/zkkeeper/internal/backup"
	"github.com/dmitrijs2005/zkkeeper/internal/client/client"
	"github.com/dmitrijs2005/zkkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/zkkeeper/internal/client/session"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
	"github.com/dmitrijs2005/zkkeeper/internal/logging"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
	"github.com/dmitrijs2005/zkkeeper/internal/zkp"
)

var (
	// ErrLoginSuperseded is returned by a login attempt that was overtaken
	// by a newer one. Its result is discarded.
	ErrLoginSuperseded = errors.New("login superseded by a newer attempt")
	ErrNotLoggedIn     = errors.New("not logged in")
)

type AuthService struct {
	client client.Client
	cache  *metadata.CredentialCache
	secret *session.Secret
	params kdf.Params
	logger logging.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	username   string
}

// NewAuthService builds the service. params are used for new accounts only;
// existing accounts always use the parameters stored with their credential.
func NewAuthService(c client.Client, cache *metadata.CredentialCache, secret *session.Secret, params kdf.Params, logger logging.Logger) *AuthService {
	return &AuthService{client: c, cache: cache, secret: secret, params: params, logger: logger}
}

// Register creates the account: salt, root key, proof key pair, encrypted
// backup of x and an empty encrypted vault. Nothing secret leaves the
// device.
func (a *AuthService) Register(ctx context.Context, username string, password []byte) error {
	norm, err := common.NormalizeUsername(username)
	if err != nil {
		return err
	}

	salt := kdf.NewSalt()
	root, err := kdf.DeriveBytes(password, salt, a.params)
	if err != nil {
		return err
	}
	defer root.Destroy()

	engine := zkp.NewEngine(zkp.Ristretto255())
	raw, err := root.Bytes()
	if err != nil {
		return err
	}
	x, err := engine.DeriveSecret(raw)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(x)

	y, err := engine.RegisterKeyPair(x)
	if err != nil {
		return err
	}

	bk, err := backup.Wrap(root, hex.EncodeToString(x))
	if err != nil {
		return fmt.Errorf("wrap backup: %w", err)
	}

	vkey, err := vaultx.DeriveVaultKey(root, norm)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(vkey)

	blob, err := vaultx.Encrypt(&vaultx.Document{Entries: []vaultx.Entry{}}, vkey)
	if err != nil {
		return err
	}

	err = a.client.Register(ctx, &api.RegisterRequest{
		Username:   norm,
		Salt:       salt,
		KDFParams:  a.params,
		Group:      engine.Group().Name(),
		Commitment: y,
		Backup:     bk,
		Vault:      blob,
	})
	if err != nil {
		return err
	}

	if err := a.cache.Store(ctx, norm, metadata.CachedCredential{Salt: salt, Params: a.params, Group: engine.Group().Name()}); err != nil {
		a.logger.Warn(ctx, "credential cache not updated", "user", norm, "error", err)
	}
	a.logger.Info(ctx, "registered", "user", norm)
	return nil
}

// begin starts a new login generation and cancels the previous one.
func (a *AuthService) begin(ctx context.Context) (context.Context, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
	}
	a.generation++
	ctx, a.cancel = context.WithCancel(ctx)
	return ctx, a.generation
}

func (a *AuthService) end(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen == a.generation && a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// commit applies a successful login unless a newer attempt started.
func (a *AuthService) commit(gen uint64, apply func()) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.generation {
		return false
	}
	apply()
	return true
}

// Login runs the challenge-response protocol. The proof secret is derived
// locally when the cached salt and parameters match the challenge hints;
// otherwise the encrypted backup is fetched and unwrapped. Starting a new
// Login cancels any attempt still in flight.
func (a *AuthService) Login(ctx context.Context, username string, password []byte) error {
	norm, err := common.NormalizeUsername(username)
	if err != nil {
		return err
	}

	ctx, gen := a.begin(ctx)
	defer a.end(gen)

	attempt := zkp.NewAttempt()

	ch, err := a.client.Challenge(ctx, norm)
	if err != nil {
		return a.superseded(gen, err)
	}

	group, err := zkp.GroupByName(ch.Group)
	if err != nil {
		return fmt.Errorf("challenge group %q: %w", ch.Group, err)
	}
	engine := zkp.NewEngine(group)

	if err := attempt.ChallengeReceived(ch.ChallengeID, ch.C, zkp.Binding(ch.ChallengeID, norm), ch.ExpiresAt); err != nil {
		return err
	}

	res, err := a.resolveLocal(ctx, engine, norm, password, ch)
	if err != nil {
		return err
	}

	var proof zkp.Proof
	err = res.Match(
		func(x []byte) error {
			defer common.WipeByteArray(x)
			proof, err = attempt.Prove(engine, x)
			return err
		},
		func() error {
			a.logger.Info(ctx, "local derivation unavailable, fetching backup", "user", norm)
			x, err := a.resolveBackup(ctx, norm, password)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(x)
			proof, err = attempt.Prove(engine, x)
			return err
		},
	)
	if err != nil {
		return a.superseded(gen, err)
	}

	resp, err := a.client.Verify(ctx, &api.VerifyRequest{
		Username:    norm,
		ChallengeID: ch.ChallengeID,
		R:           proof.R,
		S:           proof.S,
	})
	if err != nil {
		_ = attempt.Complete(false)
		if errors.Is(err, client.ErrUnauthorized) {
			return a.superseded(gen, common.ErrAuthenticationFailed)
		}
		return a.superseded(gen, err)
	}
	if err := attempt.Complete(true); err != nil {
		return err
	}

	pw := append([]byte(nil), password...)
	ok := a.commit(gen, func() {
		a.client.SetToken(resp.SessionToken)
		a.secret.Set(norm, pw)
		a.username = norm
	})
	if !ok {
		common.WipeByteArray(pw)
		// the server session is live; revoke it on a context the newer
		// attempt has not cancelled
		if err := a.client.RevokeToken(context.WithoutCancel(ctx), resp.SessionToken); err != nil {
			a.logger.Warn(ctx, "superseded session not revoked", "user", norm, "error", err)
		}
		return ErrLoginSuperseded
	}

	if err := a.cache.Store(ctx, norm, metadata.CachedCredential{Salt: ch.Salt, Params: ch.KDFParams, Group: ch.Group}); err != nil {
		a.logger.Warn(ctx, "credential cache not updated", "user", norm, "error", err)
	}

	a.logger.Info(ctx, "logged in", "user", norm, "session_expires_at", resp.ExpiresAt)
	return nil
}

// superseded replaces err with ErrLoginSuperseded when a newer attempt
// cancelled this one.
func (a *AuthService) superseded(gen uint64, err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.generation {
		return ErrLoginSuperseded
	}
	return err
}

// resolveLocal derives x from the cached credential when it agrees with
// the challenge hints.
func (a *AuthService) resolveLocal(ctx context.Context, engine *zkp.Engine, username string, password []byte, ch *api.ChallengeResponse) (zkp.Resolution, error) {
	cached, err := a.cache.Load(ctx, username)
	if err != nil {
		a.logger.Warn(ctx, "credential cache unreadable", "user", username, "error", err)
		return zkp.NeedsBackup(), nil
	}
	if !cached.Matches(ch.Salt, ch.KDFParams, ch.Group) {
		return zkp.NeedsBackup(), nil
	}

	root, err := kdf.DeriveBytes(password, cached.Salt, cached.Params)
	if err != nil {
		return zkp.Resolution{}, err
	}
	defer root.Destroy()

	raw, err := root.Bytes()
	if err != nil {
		return zkp.Resolution{}, err
	}
	x, err := engine.DeriveSecret(raw)
	if err != nil {
		return zkp.Resolution{}, err
	}
	return zkp.Resolved(x), nil
}

// resolveBackup fetches the encrypted backup and unwraps x. A wrong
// password and an unknown user look the same: ErrAuthenticationFailed.
func (a *AuthService) resolveBackup(ctx context.Context, username string, password []byte) ([]byte, error) {
	b, err := a.client.Backup(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("fetch backup: %w", err)
	}

	root, err := kdf.DeriveBytes(password, b.Salt, b.KDFParams)
	if err != nil {
		return nil, err
	}
	defer root.Destroy()

	secretHex, err := backup.Unwrap(root, b.Backup)
	if err != nil {
		if errors.Is(err, backup.ErrAuthenticationTagMismatch) {
			return nil, common.ErrAuthenticationFailed
		}
		return nil, err
	}
	x, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", backup.ErrMalformedBackup, err)
	}
	return x, nil
}

// Unlock re-enters the password for the current user, restoring the
// session secret after it expired. It runs a full login.
func (a *AuthService) Unlock(ctx context.Context, password []byte) error {
	u := a.Username()
	if u == "" {
		return ErrNotLoggedIn
	}
	return a.Login(ctx, u, password)
}

// Logout purges the session secret, drops the token and revokes the
// server session. Local state is cleared even when the server is
// unreachable.
func (a *AuthService) Logout(ctx context.Context) error {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.generation++
	a.username = ""
	a.mu.Unlock()

	a.secret.Purge()
	return a.client.Logout(ctx)
}

// Username returns the logged-in user, or "".
func (a *AuthService) Username() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.username
}

func (a *AuthService) LoggedIn() bool {
	return a.Username() != "" && a.client.HasToken()
}

func (a *AuthService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// ForgetDevice removes the cached credential for username.
func (a *AuthService) ForgetDevice(ctx context.Context, username string) error {
	norm, err := common.NormalizeUsername(username)
	if err != nil {
		return err
	}
	return a.cache.Forget(ctx, norm)
}
