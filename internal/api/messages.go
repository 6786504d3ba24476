// Package api defines the zkkeeper gRPC service: request and response
// messages, the service descriptor and a typed client. Messages travel as
// deterministic CBOR through a registered gRPC codec.
package api

import (
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/backup"
	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
)

const StatusOK = "OK"

type RegisterRequest struct {
	Username   string                 `json:"username"`
	Salt       []byte                 `json:"salt"`
	KDFParams  kdf.Params             `json:"kdf_params"`
	Group      string                 `json:"group"`
	Commitment []byte                 `json:"commitment"`
	Backup     backup.EncryptedBackup `json:"encrypted_backup"`
	Vault      *vaultx.Blob           `json:"vault,omitempty"`
}

type RegisterResponse struct {
	Status string `json:"status"`
}

type ChallengeRequest struct {
	Username string `json:"username"`
}

// ChallengeResponse carries the challenge plus the salt and parameters the
// client needs to check its local cache.
type ChallengeResponse struct {
	ChallengeID string     `json:"challenge_id"`
	C           []byte     `json:"c"`
	ExpiresAt   time.Time  `json:"expiry"`
	Group       string     `json:"group"`
	Salt        []byte     `json:"salt"`
	KDFParams   kdf.Params `json:"kdf_params"`
}

type VerifyRequest struct {
	Username    string `json:"username"`
	ChallengeID string `json:"challenge_id"`
	R           []byte `json:"r"`
	S           []byte `json:"s"`
}

type VerifyResponse struct {
	Status       string    `json:"status"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type BackupRequest struct {
	Username string `json:"username"`
}

type BackupResponse struct {
	Backup    backup.EncryptedBackup `json:"encrypted_backup"`
	Salt      []byte                 `json:"salt"`
	KDFParams kdf.Params             `json:"kdf_params"`
	Group     string                 `json:"group"`
}

type GetVaultRequest struct{}

type GetVaultResponse struct {
	Vault     *vaultx.Blob `json:"vault_blob"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type PutVaultRequest struct {
	Vault *vaultx.Blob `json:"vault_blob"`
}

type PutVaultResponse struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LogoutRequest struct{}

type LogoutResponse struct {
	Status string `json:"status"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
