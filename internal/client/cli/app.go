// Package cli implements the interactive medkeep client: a small REPL over
// the scoped store, the projection engine and the sync orchestrator.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/medkeep/medkeep/internal/client/client"
	"github.com/medkeep/medkeep/internal/client/config"
	"github.com/medkeep/medkeep/internal/client/models"
	"github.com/medkeep/medkeep/internal/client/remote"
	"github.com/medkeep/medkeep/internal/client/services"
	"github.com/medkeep/medkeep/internal/logging"
)

type App struct {
	config *config.Config
	store  services.StoreService
	sync   services.SyncService
	remote remote.Client
	repos  *client.Repositories
	log    logging.Logger
	reader *bufio.Reader

	// mu guards scope and serializes every store and sync call: the
	// background pull and the REPL both read-modify-write the same state
	// record, so at most one of them may be inside the data layer at a time.
	mu    sync.Mutex
	scope models.Scope
}

// serialize runs fn under the app lock with the scope active at that moment.
// Interactive prompts must happen before entering serialize: the lock is held
// for the whole call.
func (a *App) serialize(fn func(scope models.Scope) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.scope)
}

func (a *App) setScope(scope models.Scope) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scope = scope
}

func (a *App) activeScope() models.Scope {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scope
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	repos, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "failed to initialize database", "error", err)
		return nil, err
	}

	apiClient := remote.NewHTTPClient(c.RemoteBaseURL, &http.Client{Timeout: c.RequestTimeout})

	store := services.NewStoreService(repos.States, repos.Outbox, nil, log)
	syncSvc := services.NewSyncService(apiClient, repos.States, repos.Outbox, repos.Checkpoints, log)

	return &App{
		config: c,
		store:  store,
		sync:   syncSvc,
		remote: apiClient,
		repos:  repos,
		scope:  models.GuestScope(),
		log:    log,
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.repos.Close()
	defer a.remote.Close()
	a.repl(ctx)
}

// StartSyncLoop runs periodic incremental pulls for the active scope until
// ctx is cancelled. Guest scopes never sync.
func (a *App) StartSyncLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := a.serialize(func(scope models.Scope) error {
				if !scope.IsUser() {
					return nil
				}
				return a.sync.IncrementalPull(ctx, scope)
			})
			if err != nil {
				a.log.Warn(ctx, "background sync failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
