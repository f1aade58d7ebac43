package core

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/vrsandeep/filebox/internal/assets"
	"github.com/vrsandeep/filebox/internal/config"
	"github.com/vrsandeep/filebox/internal/db"
	"github.com/vrsandeep/filebox/internal/jobs"
	"github.com/vrsandeep/filebox/internal/util"
	"github.com/vrsandeep/filebox/internal/websocket"
)

// App holds the core components of the application: configuration, the
// lock database, the websocket hub and the extraction job manager.
type App struct {
	config     *config.Config
	db         *sql.DB
	wsHub      *websocket.Hub
	jobManager *jobs.JobManager
}

func (a *App) Config() *config.Config       { return a.config }
func (a *App) DB() *sql.DB                  { return a.db }
func (a *App) WsHub() *websocket.Hub        { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager { return a.jobManager }

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, and running migrations.
func New() (*App, error) {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database, assets.MigrationsFS); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	app, err := NewApp(cfg, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	log.Println("Core application setup complete.")
	return app, nil
}

// NewApp builds an App around an already migrated database. The upload
// root is created if needed and stored back into cfg as an absolute path.
// The hub is running when NewApp returns.
func NewApp(cfg *config.Config, database *sql.DB) (*App, error) {
	root, err := util.EnsureDir(cfg.Upload.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid upload path: %w", err)
	}
	cfg.Upload.Path = root

	hub := websocket.NewHub()
	go hub.Run()

	return &App{
		config:     cfg,
		db:         database,
		wsHub:      hub,
		jobManager: jobs.NewManager(hub, cfg.Extraction.MaxConcurrent),
	}, nil
}

// Close waits for running extractions, then stops the hub and closes the
// DB connection.
func (a *App) Close() {
	if a.jobManager != nil {
		a.jobManager.Wait()
	}
	if a.wsHub != nil {
		a.wsHub.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
}
