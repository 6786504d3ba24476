package client

import (
	"context"

	"github.com/dmitrijs2005/zkkeeper/internal/api"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
)

// Client is the transport-agnostic view of the zkkeeper server.
type Client interface {
	Close() error
	Register(ctx context.Context, req *api.RegisterRequest) error
	Challenge(ctx context.Context, username string) (*api.ChallengeResponse, error)
	// Verify submits a proof. It does not store the returned token; callers
	// decide whether the attempt is still current and then call SetToken.
	Verify(ctx context.Context, req *api.VerifyRequest) (*api.VerifyResponse, error)
	Backup(ctx context.Context, username string) (*api.BackupResponse, error)
	GetVault(ctx context.Context) (*vaultx.Blob, error)
	PutVault(ctx context.Context, b *vaultx.Blob) error
	Logout(ctx context.Context) error
	// RevokeToken ends the session named by token without changing the
	// stored token.
	RevokeToken(ctx context.Context, token string) error
	Ping(ctx context.Context) error
	SetToken(token string)
	HasToken() bool
}
