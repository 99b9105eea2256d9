package app

import (
	"context"
	"fmt"

	"miladyos/internal/config"
	"miladyos/internal/metadata"
	"miladyos/internal/pipeline"
	"miladyos/internal/template"
	"miladyos/internal/toolserver"
	"miladyos/pkg/logging"
)

// Application owns the wired service graph: the Redis-backed metadata
// store, the template manager with its filesystem watcher, the pipeline
// coordinator, and the stdio tool server that fronts them.
type Application struct {
	cfg     config.Config
	store   *metadata.Store
	watcher *template.Watcher
	server  *toolserver.Server
}

// NewApplication connects the metadata store and registers every API
// adapter in dependency order: store first, then the template manager
// built on it, then the pipeline coordinator built on both. The tool
// server discovers the adapters through the API layer at Run time.
func NewApplication(ctx context.Context, cfg config.Config, version string) (*Application, error) {
	store, err := metadata.NewStore(ctx, metadata.Options{
		Addr:         cfg.RedisAddr(),
		DB:           cfg.Redis.DB,
		TemplatesDir: cfg.Paths.TemplatesDir,
		MetadataDir:  cfg.Paths.MetadataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing metadata store: %w", err)
	}
	metadata.NewAdapter(store).Register()

	manager := template.NewManager(cfg.Paths.TemplatesDir, store)
	template.NewAdapter(manager).Register()

	coordinator := pipeline.NewCoordinator(cfg.Jenkins, store, manager)
	pipeline.NewAdapter(coordinator).Register()

	return &Application{
		cfg:     cfg,
		store:   store,
		watcher: template.NewWatcher(cfg.Paths.TemplatesDir, store, 0),
		server:  toolserver.NewServer(version),
	}, nil
}

// Run starts the template watcher and blocks serving MCP on stdio until
// the context is canceled or the client disconnects. A watcher that
// cannot start is logged and skipped; the catalog still converges on
// the next listing.
func (a *Application) Run(ctx context.Context) error {
	if err := a.watcher.Start(ctx); err != nil {
		logging.Error("Bootstrap", err, "Template watcher failed to start, continuing without it")
	} else {
		defer a.watcher.Stop()
	}

	return a.server.Run(ctx)
}

// Close releases the store connection.
func (a *Application) Close() error {
	return a.store.Close()
}
