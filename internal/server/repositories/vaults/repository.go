// Package vaults stores one ciphertext blob per user. Put replaces the
// stored blob atomically; the last writer wins.
package vaults

import (
	"context"

	"github.com/dmitrijs2005/zkkeeper/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the user has no vault yet.
	Get(ctx context.Context, userID string) (*models.Vault, error)
	Put(ctx context.Context, v *models.Vault) (*models.Vault, error)
}
