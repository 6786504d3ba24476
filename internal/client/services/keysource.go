package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zkkeeper/internal/client/reconciler"
	"github.com/dmitrijs2005/zkkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/zkkeeper/internal/client/session"
	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
)

// SessionKeySource derives the vault key from the resident session
// password and the cached credential. The root key exists only for the
// duration of one call.
type SessionKeySource struct {
	secret *session.Secret
	cache  *metadata.CredentialCache
}

var _ reconciler.KeySource = (*SessionKeySource)(nil)

func NewSessionKeySource(secret *session.Secret, cache *metadata.CredentialCache) *SessionKeySource {
	return &SessionKeySource{secret: secret, cache: cache}
}

func (k *SessionKeySource) VaultKey(ctx context.Context) ([]byte, error) {
	var key []byte
	err := k.secret.Use(func(username string, password []byte) error {
		cached, err := k.cache.Load(ctx, username)
		if err != nil {
			return err
		}
		if cached == nil {
			return fmt.Errorf("no cached credential for %s", username)
		}

		root, err := kdf.DeriveBytes(password, cached.Salt, cached.Params)
		if err != nil {
			return err
		}
		defer root.Destroy()

		key, err = vaultx.DeriveVaultKey(root, username)
		return err
	})
	if errors.Is(err, session.ErrNoSecret) {
		return nil, reconciler.ErrNoKey
	}
	return key, err
}
