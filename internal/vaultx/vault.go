// Package vaultx encrypts the user's vault document. The vault key is an
// HKDF subkey of the root key, and each write seals the whole document
// under a fresh nonce.
package vaultx

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/cryptox"
	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
)

const (
	BlobVersion    = 1
	associatedData = "zkkeeper/vault/v1"
)

var (
	// ErrVaultDecryption covers a wrong key, tampering and corruption. It
	// never means "empty vault".
	ErrVaultDecryption = errors.New("vault decryption failed")
	ErrMalformedBlob   = errors.New("malformed vault blob")
)

// Blob is the ciphertext the server stores. The GCM tag is kept apart
// from the ciphertext body.
type Blob struct {
	Version    int    `json:"version"`
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
	Tag        []byte `json:"tag"`
}

func (b *Blob) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil", ErrMalformedBlob)
	}
	if b.Version != BlobVersion {
		return fmt.Errorf("%w: version %d", ErrMalformedBlob, b.Version)
	}
	if len(b.IV) != cryptox.NonceSize {
		return fmt.Errorf("%w: iv length %d", ErrMalformedBlob, len(b.IV))
	}
	if len(b.Tag) != cryptox.TagSize {
		return fmt.Errorf("%w: tag length %d", ErrMalformedBlob, len(b.Tag))
	}
	return nil
}

// DeriveVaultKey derives the vault key for context, which is the
// normalized username. The caller owns the result and should wipe it.
func DeriveVaultKey(root *kdf.RootKey, context string) ([]byte, error) {
	raw, err := root.Bytes()
	if err != nil {
		return nil, err
	}
	return cryptox.DeriveSubkey(raw, common.LabelVaultKey, context, cryptox.KeySize)
}

func Encrypt(d *Document, key []byte) (*Blob, error) {
	pt, err := Encode(d)
	if err != nil {
		return nil, fmt.Errorf("encode vault: %w", err)
	}
	defer common.WipeByteArray(pt)

	iv, sealed, err := cryptox.Seal(key, pt, []byte(associatedData))
	if err != nil {
		return nil, err
	}

	split := len(sealed) - cryptox.TagSize
	return &Blob{
		Version:    BlobVersion,
		IV:         iv,
		Ciphertext: sealed[:split:split],
		Tag:        sealed[split:],
	}, nil
}

// Decrypt authenticates and decodes the blob. Any failure is reported as
// ErrVaultDecryption.
func Decrypt(b *Blob, key []byte) (*Document, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultDecryption, err)
	}

	sealed := make([]byte, 0, len(b.Ciphertext)+len(b.Tag))
	sealed = append(sealed, b.Ciphertext...)
	sealed = append(sealed, b.Tag...)

	pt, err := cryptox.Open(key, b.IV, sealed, []byte(associatedData))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultDecryption, err)
	}
	defer common.WipeByteArray(pt)

	d, err := Decode(pt)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrVaultDecryption, err)
	}
	return d, nil
}
