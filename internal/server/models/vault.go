package models

import "time"

// Vault is the stored ciphertext of a user's vault document. The server
// never sees the key.
type Vault struct {
	UserID     string
	Version    int
	IV         []byte
	Ciphertext []byte
	Tag        []byte
	UpdatedAt  time.Time
}
