package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/logging"
	"github.com/dmitrijs2005/zkkeeper/internal/server/models"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
)

// VaultService stores opaque vault blobs. It never holds a vault key.
type VaultService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *VaultService {
	return &VaultService{db: db, repomanager: m, logger: logger}
}

// Get returns common.ErrorNotFound when the user has not stored a vault.
func (s *VaultService) Get(ctx context.Context, userID string) (*vaultx.Blob, time.Time, error) {
	v, err := s.repomanager.Vaults(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, time.Time{}, common.ErrorNotFound
		}
		s.logger.Error(ctx, "get vault failed", "user_id", userID, "error", err)
		return nil, time.Time{}, common.ErrorInternal
	}

	return &vaultx.Blob{
		Version:    v.Version,
		IV:         v.IV,
		Ciphertext: v.Ciphertext,
		Tag:        v.Tag,
	}, v.UpdatedAt, nil
}

// Put replaces the user's blob whole.
func (s *VaultService) Put(ctx context.Context, userID string, b *vaultx.Blob) (time.Time, error) {
	if err := b.Validate(); err != nil {
		return time.Time{}, invalid("vault: %v", err)
	}

	v, err := s.repomanager.Vaults(s.db).Put(ctx, &models.Vault{
		UserID:     userID,
		Version:    b.Version,
		IV:         b.IV,
		Ciphertext: b.Ciphertext,
		Tag:        b.Tag,
	})
	if errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "vault written for unknown user", "user_id", userID)
		return time.Time{}, common.ErrorUnauthorized
	}
	if err != nil {
		s.logger.Error(ctx, "put vault failed", "user_id", userID, "error", err)
		return time.Time{}, common.ErrorInternal
	}

	s.logger.Info(ctx, "vault stored", "user_id", userID, "size", len(b.Ciphertext))
	return v.UpdatedAt, nil
}
