// Package models defines server-side records persisted in the database.
package models

import "time"

// Credential is the registration record for one user. Salt, KDF parameters
// and group never change once stored.
type Credential struct {
	ID           string
	Username     string
	Salt         []byte
	KDFParams    string
	Group        string
	Commitment   []byte
	BackupIV     []byte
	BackupCipher []byte
	CreatedAt    time.Time
}
