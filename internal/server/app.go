// Package server wires configuration, storage, services and the gRPC
// transport into a runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/logging"
	"github.com/dmitrijs2005/zkkeeper/internal/server/config"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/vaults"
	"github.com/dmitrijs2005/zkkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/zkkeeper/internal/server/grpc"
)

const sweepInterval = time.Minute

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	authService  *services.AuthService
	vaultService *services.VaultService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, "json", c.LogLevel)

	db, err := sqlOpen("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm, err := newRepositoryManager(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	as, err := services.NewAuthService(db, rm, c, logger.With("module", "auth"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	vs := services.NewVaultService(db, rm, logger.With("module", "vault"))

	return &App{config: c, logger: logger, db: db, authService: as, vaultService: vs}, nil
}

func newRepositoryManager(ctx context.Context, c *config.Config) (*repomanager.PostgresRepositoryManager, error) {
	switch c.VaultBackend {
	case config.VaultBackendS3:
		repo, err := vaults.NewS3Repository(ctx, vaults.S3Options{
			Region:       c.S3Region,
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		return repomanager.NewPostgresRepositoryManager(repomanager.WithVaultRepository(repo)), nil
	case config.VaultBackendPostgres, "":
		return repomanager.NewPostgresRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown vault backend %q", c.VaultBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService, app.vaultService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runSweeper calls sweep every interval until ctx is done.
func runSweeper(ctx context.Context, interval time.Duration, logger logging.Logger, sweep func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sweep(ctx); err != nil {
				logger.Warn(ctx, "sweep failed", "error", err)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweeper(ctx, sweepInterval, app.logger, app.authService.Sweep)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
