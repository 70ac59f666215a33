package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/sguter90/airmaestro/pkg/config"
	"github.com/sguter90/airmaestro/pkg/logger"
)

// DatabaseManager handles all database operations
type DatabaseManager struct {
	db            *sql.DB
	healthChecker *HealthChecker
	log           *logger.Logger
}

// NewDatabaseManager creates a new DatabaseManager instance
func NewDatabaseManager(cfg config.DatabaseConfig, log *logger.Logger) (*DatabaseManager, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("database")

	connect := func() (*sql.DB, error) {
		return connectDatabase(cfg)
	}

	db, err := connect()
	if err != nil {
		return nil, err
	}

	hc := NewHealthChecker(db, 30*time.Second)
	hc.connect = connect
	hc.log = log

	dm := &DatabaseManager{
		db:            db,
		healthChecker: hc,
		log:           log,
	}

	// Start health checking
	dm.healthChecker.Start()

	log.Logger.Info().Str("host", cfg.Host).Str("database", cfg.DBName).Msg("connected to database")
	return dm, nil
}

// GetDB returns the underlying database connection
func (dm *DatabaseManager) GetDB() *sql.DB {
	if dm.healthChecker != nil {
		return dm.healthChecker.DB()
	}
	return dm.db
}

// Close closes the database connection and stops health checking
func (dm *DatabaseManager) Close() error {
	if dm.healthChecker != nil {
		dm.healthChecker.Stop()
	}
	if db := dm.GetDB(); db != nil {
		return db.Close()
	}
	return nil
}

// QueryWithHealthCheck executes a query with connection health verification
func (dm *DatabaseManager) QueryWithHealthCheck(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if err := dm.healthChecker.EnsureConnection(ctx); err != nil {
		return nil, err
	}

	return dm.GetDB().QueryContext(ctx, query, args...)
}

// QueryRowWithHealthCheck executes a query that returns a single row with health check
func (dm *DatabaseManager) QueryRowWithHealthCheck(ctx context.Context, query string, args ...interface{}) *sql.Row {
	if err := dm.healthChecker.EnsureConnection(ctx); err != nil {
		// Return a row that will fail on scan
		return dm.GetDB().QueryRowContext(context.Background(), "SELECT NULL WHERE FALSE")
	}

	return dm.GetDB().QueryRowContext(ctx, query, args...)
}

// ExecWithHealthCheck executes a statement with connection health verification
func (dm *DatabaseManager) ExecWithHealthCheck(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if err := dm.healthChecker.EnsureConnection(ctx); err != nil {
		return nil, err
	}

	return dm.GetDB().ExecContext(ctx, query, args...)
}

// BeginWithHealthCheck starts a transaction with connection health verification
func (dm *DatabaseManager) BeginWithHealthCheck(ctx context.Context) (*sql.Tx, error) {
	if err := dm.healthChecker.EnsureConnection(ctx); err != nil {
		return nil, err
	}

	return dm.GetDB().BeginTx(ctx, nil)
}

// IsConnectionHealthy returns the current health status
func (dm *DatabaseManager) IsConnectionHealthy() bool {
	return dm.healthChecker.IsHealthy()
}

// Init initializes the database with migrations
func (dm *DatabaseManager) Init() error {
	dm.log.Info("running database migrations")

	runner, err := NewMigrationsRunner(dm.GetDB())
	if err != nil {
		return fmt.Errorf("failed to create migration runner: %w", err)
	}
	runner.SetLogger(dm.log)

	if err := runner.Run(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	dm.log.Info("database initialization completed successfully")
	return nil
}

// connectDatabase establishes a connection to the database
func connectDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)

	return db, nil
}
