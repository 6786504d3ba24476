package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/client/client"
	"github.com/dmitrijs2005/zkkeeper/internal/client/config"
	"github.com/dmitrijs2005/zkkeeper/internal/client/reconciler"
	"github.com/dmitrijs2005/zkkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/zkkeeper/internal/client/services"
	"github.com/dmitrijs2005/zkkeeper/internal/client/session"
	"github.com/dmitrijs2005/zkkeeper/internal/filex"
	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
	"github.com/dmitrijs2005/zkkeeper/internal/logging"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type authService interface {
	Register(ctx context.Context, username string, password []byte) error
	Login(ctx context.Context, username string, password []byte) error
	Unlock(ctx context.Context, password []byte) error
	Logout(ctx context.Context) error
	Username() string
	LoggedIn() bool
	Ping(ctx context.Context) error
}

type vaultService interface {
	Load(ctx context.Context) error
	ApplyLocal(ctx context.Context, m reconciler.Mutation) (vaultx.Entry, error)
	RetryPending(ctx context.Context) error
	HasPending() bool
	PendingCount() int
	Entries() []vaultx.Entry
	Entry(id string) (vaultx.Entry, error)
	Loaded() bool
	Reset()
}

type secretHolder interface {
	Available() bool
}

type App struct {
	config *config.Config
	auth   authService
	vault  vaultService
	secret secretHolder
	logger logging.Logger
	reader *bufio.Reader
	out    io.Writer

	closers []io.Closer

	mu   sync.Mutex
	mode Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, "text", c.LogLevel)

	params, err := c.KDFParams()
	if err != nil {
		return nil, err
	}

	dbPath, err := filex.EnsureParentDir(c.DatabasePath)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, dbPath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", dbPath, "error", err)
		return nil, err
	}

	apiClient, err := client.NewKeeperClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newApp(c, db, apiClient, params, logger), nil
}

func newApp(c *config.Config, db *sql.DB, apiClient client.Client, params kdf.Params, logger logging.Logger) *App {
	cache := metadata.NewCredentialCache(metadata.NewSQLiteRepository(db))
	secret := session.NewSecret(c.SessionTTL)

	auth := services.NewAuthService(apiClient, cache, secret, params, logger)
	keys := services.NewSessionKeySource(secret, cache)
	vault := reconciler.New(apiClient, keys, logger)

	return &App{
		config:  c,
		auth:    auth,
		vault:   vault,
		secret:  secret,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		closers: []io.Closer{apiClient, db},
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

func (a *App) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.auth.LoggedIn()
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// setMode records the connectivity mode and reports whether it changed.
func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == mode {
		return false
	}
	a.mode = mode
	return true
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// StartOnlineStatusWatcher pings the server every interval. Coming back
// online pushes pending vault changes when the password is resident.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.auth.Ping(pingCtx)
	cancel()

	if err != nil {
		if a.setMode(ModeOffline) {
			a.logger.Warn(ctx, "server unreachable", "error", err)
		}
		return
	}

	if a.setMode(ModeOnline) {
		a.logger.Info(ctx, "server reachable")
	}
	if a.vault.HasPending() && a.secret.Available() && a.isLoggedIn() {
		if err := a.vault.RetryPending(ctx); err != nil {
			a.logger.Warn(ctx, "background sync failed", "error", err)
		}
	}
}
