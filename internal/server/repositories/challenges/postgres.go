// Package challenges keeps issued login challenges in PostgreSQL so that
// every challenge can be redeemed once, across server replicas.
package challenges

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/dbx"
	"github.com/dmitrijs2005/zkkeeper/internal/zkp"
	"github.com/google/uuid"
)

// PostgresStore implements zkp.ChallengeStore.
type PostgresStore struct {
	db dbx.DBTX
}

var _ zkp.ChallengeStore = (*PostgresStore)(nil)

func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, ch *zkp.Challenge) error {
	query :=
		`INSERT INTO challenges (id, username, c, issued_at, expires_at)
         VALUES ($1, $2, $3, $4, $5)
		 `

	if _, err := s.db.ExecContext(ctx, query, ch.ID, ch.Username, ch.C, ch.IssuedAt, ch.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Consume marks the challenge spent in a single conditional UPDATE, so two
// concurrent redemptions cannot both see it unconsumed.
func (s *PostgresStore) Consume(ctx context.Context, id uuid.UUID) (*zkp.Challenge, error) {
	query :=
		`UPDATE challenges SET consumed_at = now()
		 WHERE id = $1 AND consumed_at IS NULL
		 RETURNING username, c, issued_at, expires_at
		 `

	ch := &zkp.Challenge{ID: id}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&ch.Username, &ch.C, &ch.IssuedAt, &ch.ExpiresAt)
	if err == nil {
		return ch, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM challenges WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if exists {
		return nil, zkp.ErrChallengeReuse
	}
	return nil, zkp.ErrChallengeNotFound
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
