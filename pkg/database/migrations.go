package database

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sguter90/airmaestro/pkg/logger"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationsRunner handles database migrations
type MigrationsRunner struct {
	db         *sql.DB
	migrations []Migration
	logger     *logger.Logger
	output     *logger.Logger
}

// NewMigrationsRunner creates a new migration runner
func NewMigrationsRunner(db *sql.DB) (*MigrationsRunner, error) {
	log := logger.New(os.Stdout).WithComponent("migrations")
	runner := &MigrationsRunner{
		db:         db,
		migrations: []Migration{},
		logger:     log,
		output:     log,
	}

	if err := runner.loadMigrations(); err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	return runner, nil
}

// SetLogger routes migration output through log
func (r *MigrationsRunner) SetLogger(log *logger.Logger) {
	if log == nil {
		return
	}
	r.output = log.WithComponent("migrations")
	r.logger = r.output
}

// DisableLogging silences migration output
func (r *MigrationsRunner) DisableLogging() {
	r.logger = logger.Nop()
}

// EnableLogging restores migration output
func (r *MigrationsRunner) EnableLogging() {
	r.logger = r.output
}

// loadMigrations loads all .up.sql migration files from the embedded filesystem
func (r *MigrationsRunner) loadMigrations() error {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return fmt.Errorf("failed to read migration directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()

		// Only process .up.sql files
		if !strings.HasSuffix(filename, ".up.sql") {
			continue
		}

		// Parse filename: 000001_name.up.sql
		parts := strings.Split(filename, "_")
		if len(parts) < 2 {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
			r.logger.Warn("skipping invalid migration file: " + filename)
			continue
		}

		name := strings.TrimSuffix(strings.Join(parts[1:], "_"), ".up.sql")

		content, err := migrationFiles.ReadFile("sql/" + filename)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		r.migrations = append(r.migrations, Migration{
			Version: version,
			Name:    name,
			SQL:     string(content),
		})
	}

	sort.Slice(r.migrations, func(i, j int) bool {
		return r.migrations[i].Version < r.migrations[j].Version
	})

	return nil
}

// createMigrationsTable creates the schema_migrations table if it doesn't exist
func (r *MigrationsRunner) createMigrationsTable() error {
	query := `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version INTEGER PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `
	_, err := r.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (r *MigrationsRunner) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := r.db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// Pending returns the migrations that have not been applied yet
func (r *MigrationsRunner) Pending() ([]Migration, error) {
	if err := r.createMigrationsTable(); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := r.getAppliedMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	var pending []Migration
	for _, migration := range r.migrations {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// Run executes all pending migrations
func (r *MigrationsRunner) Run() error {
	pending, err := r.Pending()
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		r.logger.Info("no pending migrations")
		return nil
	}

	r.logger.Logger.Info().Int("pending", len(pending)).Msg("found pending migrations")

	for _, migration := range pending {
		log := r.logger.WithField("version", migration.Version).WithField("name", migration.Name)
		log.Info("applying migration")

		tx, err := r.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
			migration.Version, migration.Name,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		log.Info("applied migration")
	}

	r.logger.Info("all migrations completed successfully")
	return nil
}
