package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/zkkeeper/internal/dbx"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/vaults"
	"github.com/dmitrijs2005/zkkeeper/internal/zkp"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Credentials(db dbx.DBTX) credentials.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Challenges(db dbx.DBTX) zkp.ChallengeStore
	Vaults(db dbx.DBTX) vaults.Repository
}
