// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/zkkeeper/internal/dbx"
	"github.com/dmitrijs2005/zkkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/vaults"
	"github.com/dmitrijs2005/zkkeeper/internal/zkp"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories. The vault
// repository can be replaced by another backend (S3).
type PostgresRepositoryManager struct {
	vaults vaults.Repository
}

type Option func(*PostgresRepositoryManager)

// WithVaultRepository makes Vaults return r regardless of the DBTX passed.
func WithVaultRepository(r vaults.Repository) Option {
	return func(m *PostgresRepositoryManager) {
		m.vaults = r
	}
}

func (m *PostgresRepositoryManager) Credentials(db dbx.DBTX) credentials.Repository {
	return credentials.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Challenges(db dbx.DBTX) zkp.ChallengeStore {
	return challenges.NewPostgresStore(db)
}

func (m *PostgresRepositoryManager) Vaults(db dbx.DBTX) vaults.Repository {
	if m.vaults != nil {
		return m.vaults
	}
	return vaults.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager(opts ...Option) *PostgresRepositoryManager {
	m := &PostgresRepositoryManager{}
	for _, o := range opts {
		o(m)
	}
	return m
}
