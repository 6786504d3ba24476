package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
)

const (
	saltPrefix   = "salt:"
	paramsPrefix = "kdf_params:"
	groupPrefix  = "group:"
)

// CachedCredential is what a device remembers about an account between
// logins. None of it is secret.
type CachedCredential struct {
	Salt   []byte
	Params kdf.Params
	Group  string
}

// Matches reports whether the cache agrees with the hints a challenge
// carried. A mismatch means the local copy is stale.
func (c *CachedCredential) Matches(salt []byte, p kdf.Params, group string) bool {
	if c == nil {
		return false
	}
	return string(c.Salt) == string(salt) && c.Params == p && c.Group == group
}

type CredentialCache struct {
	repo Repository
}

func NewCredentialCache(r Repository) *CredentialCache {
	return &CredentialCache{repo: r}
}

// Load returns (nil, nil) when nothing usable is cached for username.
func (c *CredentialCache) Load(ctx context.Context, username string) (*CachedCredential, error) {
	salt, err := c.repo.Get(ctx, saltPrefix+username)
	if err != nil {
		return nil, err
	}
	rawParams, err := c.repo.Get(ctx, paramsPrefix+username)
	if err != nil {
		return nil, err
	}
	if salt == nil || rawParams == nil {
		return nil, nil
	}

	var p kdf.Params
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return nil, fmt.Errorf("decode cached kdf params: %w", err)
	}

	group, err := c.repo.Get(ctx, groupPrefix+username)
	if err != nil {
		return nil, err
	}

	return &CachedCredential{Salt: salt, Params: p, Group: string(group)}, nil
}

func (c *CredentialCache) Store(ctx context.Context, username string, cc CachedCredential) error {
	if err := kdf.ValidateSalt(cc.Salt); err != nil {
		return err
	}
	rawParams, err := json.Marshal(cc.Params)
	if err != nil {
		return err
	}

	return c.repo.Put(ctx, map[string][]byte{
		saltPrefix + username:   cc.Salt,
		paramsPrefix + username: rawParams,
		groupPrefix + username:  []byte(cc.Group),
	})
}

func (c *CredentialCache) Forget(ctx context.Context, username string) error {
	return c.repo.Delete(ctx, saltPrefix+username, paramsPrefix+username, groupPrefix+username)
}

// Usernames lists the accounts with a cached salt.
func (c *CredentialCache) Usernames(ctx context.Context) ([]string, error) {
	m, err := c.repo.Scan(ctx, saltPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, strings.TrimPrefix(k, saltPrefix))
	}
	return out, nil
}
