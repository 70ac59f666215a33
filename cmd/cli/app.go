package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sguter90/airmaestro/pkg/config"
	"github.com/sguter90/airmaestro/pkg/database"
	"github.com/sguter90/airmaestro/pkg/ingest"
	"github.com/sguter90/airmaestro/pkg/logger"
	"github.com/sguter90/airmaestro/pkg/metrics"
	"github.com/sguter90/airmaestro/pkg/puller"
	"github.com/sguter90/airmaestro/pkg/puller/csvimport"
	"github.com/sguter90/airmaestro/pkg/puller/gateway"
)

type appKey string

const appContextKey appKey = "app"

// App holds the shared dependencies of all commands.
// The database is opened on first use so the csv backend works without PostgreSQL.
type App struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics

	dbOnce    sync.Once
	dbManager *database.DatabaseManager
	dbErr     error
}

// NewApp creates an App for cfg
func NewApp(cfg *config.Config, log *logger.Logger) *App {
	return &App{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewMetrics(),
	}
}

// appFromCommand returns the App stored in the command context
func appFromCommand(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

// DB opens the database and applies pending migrations
func (a *App) DB() (*database.DatabaseManager, error) {
	a.dbOnce.Do(func() {
		dm, err := database.NewDatabaseManager(a.cfg.Database, a.log)
		if err != nil {
			a.dbErr = fmt.Errorf("failed to initialize database: %w", err)
			return
		}
		if err := dm.Init(); err != nil {
			dm.Close()
			a.dbErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}
		a.dbManager = dm
	})
	return a.dbManager, a.dbErr
}

// Store returns the configured backend of the ingestion store
func (a *App) Store() (ingest.Store, error) {
	switch a.cfg.Store.Backend {
	case "csv":
		return ingest.NewCSVStore(a.cfg.Store.CSVPath), nil
	default:
		dm, err := a.DB()
		if err != nil {
			return nil, err
		}
		return database.NewReadingStore(dm), nil
	}
}

// Ingestor returns the write path on top of the configured store
func (a *App) Ingestor() (*ingest.Ingestor, error) {
	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	return ingest.NewIngestor(store, a.log, a.metrics), nil
}

// FetchService returns a fetcher knowing every supported source
func (a *App) FetchService() *puller.FetchService {
	return puller.NewFetchService(newPullerRegistry(), a.log, a.metrics, a.cfg.Fetch.Timeout)
}

// Close releases the database connection if one was opened
func (a *App) Close() {
	if a.dbManager != nil {
		a.dbManager.Close()
	}
}

func newPullerRegistry() *puller.PullerRegistry {
	registry := puller.NewPullerRegistry()
	registry.Register(gateway.NewPuller())
	registry.Register(csvimport.NewPuller())
	return registry
}
