// Package common contains shared constants, sentinel errors and small
// helpers used by both the zkkeeper client and server.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Labels for subkeys derived from the root key. Each label yields an
// independent key, so the proof secret, the backup wrapping key and the
// vault key never coincide.
const (
	LabelProofSecret = "proof-secret"
	LabelBackupWrap  = "backup-wrap-key"
	LabelVaultKey    = "vault-encryption-key"
)
