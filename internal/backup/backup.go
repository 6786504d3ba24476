// Package backup wraps the proof secret under a key derived from the root
// key, so a device that cannot recompute the secret locally can recover it
// from server-held ciphertext.
package backup

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/cryptox"
	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
)

const associatedData = "zkkeeper/backup/v1"

var (
	ErrAuthenticationTagMismatch = errors.New("backup authentication tag mismatch")
	ErrMalformedBackup           = errors.New("malformed backup")
)

// EncryptedBackup is the stored form of the wrapped proof secret. Byte
// fields are base64 in JSON.
type EncryptedBackup struct {
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

func (b EncryptedBackup) Validate() error {
	if len(b.IV) != cryptox.NonceSize {
		return fmt.Errorf("%w: iv length %d", ErrMalformedBackup, len(b.IV))
	}
	if len(b.Ciphertext) <= cryptox.TagSize {
		return fmt.Errorf("%w: ciphertext too short", ErrMalformedBackup)
	}
	return nil
}

func wrapKey(root *kdf.RootKey) ([]byte, error) {
	raw, err := root.Bytes()
	if err != nil {
		return nil, err
	}
	return cryptox.DeriveSubkey(raw, common.LabelBackupWrap, "", cryptox.KeySize)
}

// Wrap encrypts the hex-encoded proof secret. A new nonce is drawn on every
// call.
func Wrap(root *kdf.RootKey, secretHex string) (EncryptedBackup, error) {
	secret, err := hex.DecodeString(secretHex)
	if err != nil || len(secret) == 0 {
		return EncryptedBackup{}, fmt.Errorf("%w: secret is not hex", ErrMalformedBackup)
	}
	defer common.WipeByteArray(secret)

	key, err := wrapKey(root)
	if err != nil {
		return EncryptedBackup{}, err
	}
	defer common.WipeByteArray(key)

	iv, ct, err := cryptox.Seal(key, secret, []byte(associatedData))
	if err != nil {
		return EncryptedBackup{}, err
	}
	return EncryptedBackup{IV: iv, Ciphertext: ct}, nil
}

// Unwrap returns the hex-encoded proof secret. A wrong root key or any
// modification of the backup yields ErrAuthenticationTagMismatch and never
// a partial result.
func Unwrap(root *kdf.RootKey, b EncryptedBackup) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}

	key, err := wrapKey(root)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	secret, err := cryptox.Open(key, b.IV, b.Ciphertext, []byte(associatedData))
	if err != nil {
		if errors.Is(err, cryptox.ErrTagMismatch) {
			return "", ErrAuthenticationTagMismatch
		}
		return "", err
	}
	defer common.WipeByteArray(secret)

	return hex.EncodeToString(secret), nil
}
