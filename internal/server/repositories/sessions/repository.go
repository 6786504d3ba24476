// Package sessions persists login sessions so that tokens can be revoked
// before they expire.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	// Find returns common.ErrorNotFound for unknown sessions.
	Find(ctx context.Context, id string) (*models.Session, error)
	Revoke(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
