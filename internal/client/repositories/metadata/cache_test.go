package metadata

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSalt() []byte {
	return []byte("0123456789abcdef")
}

func TestCredentialCache_StoreLoad(t *testing.T) {
	c := NewCredentialCache(NewSQLiteRepository(setupDB(t)))
	ctx := context.Background()

	want := CachedCredential{Salt: testSalt(), Params: kdf.DefaultParams(), Group: "ristretto255"}
	require.NoError(t, c.Store(ctx, "alice", want))

	got, err := c.Load(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Salt, got.Salt)
	assert.Equal(t, want.Params, got.Params)
	assert.Equal(t, want.Group, got.Group)
	assert.True(t, got.Matches(testSalt(), kdf.DefaultParams(), "ristretto255"))
}

func TestCredentialCache_LoadMissing(t *testing.T) {
	c := NewCredentialCache(NewSQLiteRepository(setupDB(t)))

	got, err := c.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCredentialCache_StoreRejectsShortSalt(t *testing.T) {
	c := NewCredentialCache(NewSQLiteRepository(setupDB(t)))

	err := c.Store(context.Background(), "alice", CachedCredential{Salt: []byte("short"), Params: kdf.DefaultParams()})
	require.ErrorIs(t, err, kdf.ErrInvalidSalt)
}

func TestCredentialCache_Forget(t *testing.T) {
	c := NewCredentialCache(NewSQLiteRepository(setupDB(t)))
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "alice", CachedCredential{Salt: testSalt(), Params: kdf.DefaultParams(), Group: "ristretto255"}))
	require.NoError(t, c.Forget(ctx, "alice"))

	got, err := c.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCredentialCache_Usernames(t *testing.T) {
	c := NewCredentialCache(NewSQLiteRepository(setupDB(t)))
	ctx := context.Background()

	for _, u := range []string{"bob", "alice"} {
		require.NoError(t, c.Store(ctx, u, CachedCredential{Salt: testSalt(), Params: kdf.PBKDF2Params()}))
	}

	names, err := c.Usernames(ctx)
	require.NoError(t, err)
	sort.Strings(names)
	assert.Equal(t, []string{"alice", "bob"}, names)
}

func TestCredentialCache_CorruptParams(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	c := NewCredentialCache(repo)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, map[string][]byte{
		"salt:alice":       testSalt(),
		"kdf_params:alice": []byte("{not json"),
	}))

	_, err := c.Load(ctx, "alice")
	require.Error(t, err)
}

func TestCachedCredential_Matches(t *testing.T) {
	base := &CachedCredential{Salt: testSalt(), Params: kdf.DefaultParams(), Group: "ristretto255"}

	assert.False(t, (*CachedCredential)(nil).Matches(testSalt(), kdf.DefaultParams(), "ristretto255"))
	assert.False(t, base.Matches([]byte("fedcba9876543210"), kdf.DefaultParams(), "ristretto255"))
	assert.False(t, base.Matches(testSalt(), kdf.PBKDF2Params(), "ristretto255"))
	assert.False(t, base.Matches(testSalt(), kdf.DefaultParams(), "modp2048"))
}

type failingRepo struct{ Repository }

func (failingRepo) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk") }

func TestCredentialCache_LoadPropagatesErrors(t *testing.T) {
	_, err := NewCredentialCache(failingRepo{}).Load(context.Background(), "alice")
	require.EqualError(t, err, "disk")
}
