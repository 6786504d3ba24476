// Package credentials stores registration records: salt, KDF parameters,
// public commitment and the encrypted proof-secret backup.
package credentials

import (
	"context"

	"github.com/dmitrijs2005/zkkeeper/internal/server/models"
)

type Repository interface {
	// Create stores c and fills in its ID. A taken username yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, c *models.Credential) (*models.Credential, error)

	// GetByUsername returns common.ErrorNotFound for unknown users.
	GetByUsername(ctx context.Context, username string) (*models.Credential, error)
}
