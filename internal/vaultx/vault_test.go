package vaultx

import (
	"bytes"
	"testing"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/cryptox"
	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeEntryDoc() *Document {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &Document{Entries: []Entry{
		{ID: "1", Name: "mail", Username: "alice@example.com", Password: "hunter2", Category: "email", LastModified: ts, Strength: StrengthWeak},
		{ID: "2", Name: "bank", Username: "alice", Password: "Tr0ub4dor&3xyz!", Category: "financial", Favorite: true, LastModified: ts, Strength: StrengthStrong},
		{ID: "3", Name: "forum", Username: "al", Password: "pass1234", Website: "https://forum.example", Notes: "old", LastModified: ts, Strength: StrengthMedium},
	}}
}

func vaultKey(t *testing.T, b byte, user string) []byte {
	t.Helper()
	root := kdf.NewRootKey(bytes.Repeat([]byte{b}, kdf.RootKeySize))
	defer root.Destroy()
	k, err := DeriveVaultKey(root, user)
	require.NoError(t, err)
	return k
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := vaultKey(t, 1, "alice")
	doc := threeEntryDoc()
	doc.Wallet = &Wallet{Balance: 1000, TxHistory: []Transaction{{From: "alice", To: "bob", Amount: 5}}}

	blob, err := Encrypt(doc, key)
	require.NoError(t, err)
	assert.Equal(t, BlobVersion, blob.Version)
	assert.Len(t, blob.Tag, cryptox.TagSize)

	got, err := Decrypt(blob, key)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestEncrypt_RejectsInvalidUTF8(t *testing.T) {
	key := vaultKey(t, 1, "alice")

	_, err := Encrypt(&Document{Entries: []Entry{{Name: "cafe", Password: "caf\xe9"}}}, key)
	require.ErrorIs(t, err, ErrInvalidText)
	assert.Contains(t, err.Error(), "password")

	_, err = Encrypt(&Document{Wallet: &Wallet{TxHistory: []Transaction{{From: "\xff"}}}}, key)
	require.ErrorIs(t, err, ErrInvalidText)

	doc := &Document{Entries: []Entry{{Name: "café", Password: "пароль", Notes: "日本"}}}
	blob, err := Encrypt(doc, key)
	require.NoError(t, err)
	got, err := Decrypt(blob, key)
	require.NoError(t, err)
	assert.Equal(t, doc.Entries[0].Password, got.Entries[0].Password)
}

func TestEncrypt_EmptyDocument(t *testing.T) {
	key := vaultKey(t, 1, "alice")

	blob, err := Encrypt(&Document{}, key)
	require.NoError(t, err)
	got, err := Decrypt(blob, key)
	require.NoError(t, err)
	assert.Empty(t, got.Entries)
	assert.Nil(t, got.Wallet)
}

func TestDecrypt_WrongKey(t *testing.T) {
	blob, err := Encrypt(threeEntryDoc(), vaultKey(t, 1, "alice"))
	require.NoError(t, err)

	got, err := Decrypt(blob, vaultKey(t, 2, "alice"))
	assert.ErrorIs(t, err, ErrVaultDecryption)
	assert.ErrorIs(t, err, cryptox.ErrTagMismatch)
	assert.Nil(t, got)

	// same root key, different user context
	_, err = Decrypt(blob, vaultKey(t, 1, "bob"))
	assert.ErrorIs(t, err, ErrVaultDecryption)
}

func TestDecrypt_FlippedByteIsIntegrityError(t *testing.T) {
	key := vaultKey(t, 1, "alice")
	blob, err := Encrypt(threeEntryDoc(), key)
	require.NoError(t, err)

	blob.Ciphertext[len(blob.Ciphertext)/2] ^= 0x01
	_, err = Decrypt(blob, key)
	require.ErrorIs(t, err, ErrVaultDecryption)
	assert.ErrorIs(t, err, cryptox.ErrTagMismatch, "must fail authentication, not parsing")
}

func TestDecrypt_Malformed(t *testing.T) {
	key := vaultKey(t, 1, "alice")

	_, err := Decrypt(nil, key)
	assert.ErrorIs(t, err, ErrVaultDecryption)

	_, err = Decrypt(&Blob{Version: 9, IV: make([]byte, 12), Tag: make([]byte, 16)}, key)
	assert.ErrorIs(t, err, ErrMalformedBlob)

	_, err = Decrypt(&Blob{Version: BlobVersion, IV: make([]byte, 3), Tag: make([]byte, 16)}, key)
	assert.ErrorIs(t, err, ErrMalformedBlob)
}

func TestDeriveVaultKey_DomainSeparated(t *testing.T) {
	root := kdf.NewRootKey(bytes.Repeat([]byte{5}, kdf.RootKeySize))
	defer root.Destroy()

	raw, err := root.Bytes()
	require.NoError(t, err)

	k, err := DeriveVaultKey(root, "alice")
	require.NoError(t, err)
	assert.Len(t, k, cryptox.KeySize)
	assert.NotEqual(t, raw, k)

	other, err := cryptox.DeriveSubkey(raw, "backup-wrap-key", "alice", cryptox.KeySize)
	require.NoError(t, err)
	assert.NotEqual(t, other, k)
}

func TestEncode_CanonicalAndSkipsPending(t *testing.T) {
	a := threeEntryDoc()
	b := threeEntryDoc()
	b.Entries[0].Pending = true
	b.Entries[1].LastModified = b.Entries[1].LastModified.In(time.FixedZone("X", 3600))

	ea, err := Encode(a)
	require.NoError(t, err)
	eb, err := Encode(b)
	require.NoError(t, err)
	assert.Equal(t, ea, eb)

	back, err := Decode(eb)
	require.NoError(t, err)
	assert.False(t, back.Entries[0].Pending)
}

func TestDocument_CloneAndFind(t *testing.T) {
	d := threeEntryDoc()
	d.Wallet = &Wallet{Balance: 1}

	c := d.Clone()
	c.Entries[0].Name = "changed"
	c.Wallet.Balance = 2

	assert.Equal(t, "mail", d.Entries[0].Name)
	assert.EqualValues(t, 1, d.Wallet.Balance)
	assert.Equal(t, 1, d.Find("2"))
	assert.Equal(t, -1, d.Find("nope"))

	var nilDoc *Document
	assert.NotNil(t, nilDoc.Clone())
}
