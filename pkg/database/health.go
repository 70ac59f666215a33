package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sguter90/airmaestro/pkg/logger"
)

// HealthChecker monitors and maintains database connection health
type HealthChecker struct {
	db            *sql.DB
	checkInterval time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	ticker        *time.Ticker
	mu            sync.RWMutex
	isHealthy     bool
	log           *logger.Logger

	// connect opens a replacement connection after a failed check
	connect func() (*sql.DB, error)
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db *sql.DB, checkInterval time.Duration) *HealthChecker {
	return &HealthChecker{
		db:            db,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
		isHealthy:     true,
		log:           logger.Nop(),
	}
}

// Start begins monitoring the database connection
func (chc *HealthChecker) Start() {
	chc.ticker = time.NewTicker(chc.checkInterval)

	go func() {
		for {
			select {
			case <-chc.stopChan:
				chc.ticker.Stop()
				return
			case <-chc.ticker.C:
				chc.checkConnection()
			}
		}
	}()
}

// Stop stops monitoring the database connection
func (chc *HealthChecker) Stop() {
	chc.stopOnce.Do(func() {
		close(chc.stopChan)
	})
}

// DB returns the current connection, which changes after a reconnect
func (chc *HealthChecker) DB() *sql.DB {
	chc.mu.RLock()
	defer chc.mu.RUnlock()
	return chc.db
}

// checkConnection performs a health check on the database connection
func (chc *HealthChecker) checkConnection() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := chc.DB().PingContext(ctx)

	chc.mu.Lock()
	defer chc.mu.Unlock()

	if err != nil {
		chc.log.ErrorWithError(err, "database connection health check failed")
		chc.isHealthy = false

		if err := chc.reconnect(); err != nil {
			chc.log.ErrorWithError(err, "failed to reconnect to database")
		}
		return
	}

	if !chc.isHealthy {
		chc.log.Info("database connection restored")
	}
	chc.isHealthy = true
}

// reconnect attempts to re-establish the database connection.
// The caller must hold mu.
func (chc *HealthChecker) reconnect() error {
	if chc.connect == nil {
		return errors.New("no reconnect function configured")
	}

	newDB, err := chc.connect()
	if err != nil {
		return err
	}

	if chc.db != nil {
		chc.db.Close()
	}
	chc.db = newDB
	chc.isHealthy = true
	chc.log.Info("database connection re-established")
	return nil
}

// IsHealthy returns the current health status of the connection
func (chc *HealthChecker) IsHealthy() bool {
	chc.mu.RLock()
	defer chc.mu.RUnlock()
	return chc.isHealthy
}

// EnsureConnection ensures the connection is healthy before executing a query
func (chc *HealthChecker) EnsureConnection(ctx context.Context) error {
	chc.mu.RLock()
	isHealthy := chc.isHealthy
	db := chc.db
	chc.mu.RUnlock()

	if !isHealthy {
		return fmt.Errorf("database connection is not healthy")
	}

	// Perform a quick ping to verify
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		chc.mu.Lock()
		chc.isHealthy = false
		chc.mu.Unlock()
		return fmt.Errorf("database connection check failed: %w", err)
	}

	return nil
}
