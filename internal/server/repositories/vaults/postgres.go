package vaults

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/dbx"
	"github.com/dmitrijs2005/zkkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Vault, error) {
	query := `
		SELECT user_id, version, iv, ciphertext, tag, updated_at
		FROM vaults
		WHERE user_id = $1
	`
	v := &models.Vault{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&v.UserID, &v.Version, &v.IV, &v.Ciphertext, &v.Tag, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

// Put upserts the user's blob in one statement. A user without a
// credential row yields common.ErrorNotFound.
func (r *PostgresRepository) Put(ctx context.Context, v *models.Vault) (*models.Vault, error) {
	query := `
		INSERT INTO vaults (user_id, version, iv, ciphertext, tag, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id)
		DO UPDATE SET
			version = EXCLUDED.version,
			iv = EXCLUDED.iv,
			ciphertext = EXCLUDED.ciphertext,
			tag = EXCLUDED.tag,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, v.UserID, v.Version, v.IV, v.Ciphertext, v.Tag).Scan(&v.UpdatedAt); err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}
