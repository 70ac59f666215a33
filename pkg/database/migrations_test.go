package database

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/lib/pq"
)

func TestLoadMigrations(t *testing.T) {
	// loading reads only the embedded files
	runner, err := NewMigrationsRunner(nil)
	if err != nil {
		t.Fatalf("Expected NewMigrationsRunner to succeed: %v", err)
	}

	expected := []struct {
		version int
		name    string
	}{
		{1, "create_devices"},
		{2, "create_readings"},
		{3, "create_users"},
		{4, "create_difference_reports"},
	}

	if len(runner.migrations) != len(expected) {
		t.Fatalf("Expected %d migrations, got %d", len(expected), len(runner.migrations))
	}

	for i, want := range expected {
		got := runner.migrations[i]
		if got.Version != want.version || got.Name != want.name {
			t.Errorf("Migration %d: expected %d_%s, got %d_%s", i, want.version, want.name, got.Version, got.Name)
		}
		if strings.TrimSpace(got.SQL) == "" {
			t.Errorf("Migration %d has empty SQL", got.Version)
		}
	}

	if !strings.Contains(runner.migrations[1].SQL, "PRIMARY KEY (device_id, time)") {
		t.Error("Expected readings table to be keyed by device and time")
	}
}

func TestMigrationsRunnerLogging(t *testing.T) {
	runner, err := NewMigrationsRunner(nil)
	if err != nil {
		t.Fatalf("Expected NewMigrationsRunner to succeed: %v", err)
	}

	output := runner.logger
	runner.DisableLogging()
	if runner.logger == output {
		t.Error("Expected logger to be replaced when disabled")
	}

	runner.EnableLogging()
	if runner.logger != output {
		t.Error("Expected original logger to be restored")
	}

	runner.SetLogger(nil)
	if runner.logger != output {
		t.Error("Expected nil logger to be ignored")
	}
}

func TestRun(t *testing.T) {
	db := openTestDB(t)
	if db == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer db.Close()

	if err := resetSchema(db); err != nil {
		t.Fatalf("Failed to drop tables: %v", err)
	}

	runner, err := NewMigrationsRunner(db)
	if err != nil {
		t.Fatalf("Expected NewMigrationsRunner to succeed: %v", err)
	}
	runner.DisableLogging()

	pending, err := runner.Pending()
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != len(runner.migrations) {
		t.Errorf("Expected all %d migrations pending, got %d", len(runner.migrations), len(pending))
	}

	if err := runner.Run(); err != nil {
		t.Fatalf("Expected Run to succeed: %v", err)
	}
	// second run is a no-op
	if err := runner.Run(); err != nil {
		t.Fatalf("Expected second Run to succeed: %v", err)
	}

	applied, err := runner.getAppliedMigrations()
	if err != nil {
		t.Fatalf("Expected to get applied migrations: %v", err)
	}
	if len(applied) != len(runner.migrations) {
		t.Errorf("Expected %d applied migrations, got %d", len(runner.migrations), len(applied))
	}

	pending, err = runner.Pending()
	if err != nil || len(pending) != 0 {
		t.Errorf("Expected nothing pending, got %d (%v)", len(pending), err)
	}
}

func TestRun_TransactionRollback(t *testing.T) {
	db := openTestDB(t)
	if db == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer db.Close()

	if err := resetSchema(db); err != nil {
		t.Fatalf("Failed to drop tables: %v", err)
	}

	runner, err := NewMigrationsRunner(db)
	if err != nil {
		t.Fatalf("Expected NewMigrationsRunner to succeed: %v", err)
	}
	runner.DisableLogging()

	runner.migrations = append(runner.migrations, Migration{
		Version: 9999,
		Name:    "broken",
		SQL:     "CREATE TABLE broken (id INT; INVALID SQL",
	})

	if err := runner.Run(); err == nil {
		t.Fatal("Expected Run to fail on invalid SQL")
	}

	applied, err := runner.getAppliedMigrations()
	if err != nil {
		t.Fatalf("Expected to get applied migrations: %v", err)
	}
	if applied[9999] {
		t.Error("Expected failed migration not to be recorded")
	}
	if !applied[1] {
		t.Error("Expected migrations before the failure to stay applied")
	}
}

func TestResetSchema_KeepsForeignTables(t *testing.T) {
	db := openTestDB(t)
	if db == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS unrelated_notes (id INT)"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	defer db.Exec("DROP TABLE IF EXISTS unrelated_notes")

	if err := runMigrationsFresh(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if err := resetSchema(db); err != nil {
		t.Fatalf("resetSchema failed: %v", err)
	}

	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM pg_tables
		WHERE schemaname = 'public' AND tablename = ANY($1)`,
		pq.Array(schemaTables)).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected schema tables to be dropped, %d remain", count)
	}

	var exists bool
	if err := db.QueryRow("SELECT to_regclass('public.unrelated_notes') IS NOT NULL").Scan(&exists); err != nil {
		t.Fatalf("Failed to check table: %v", err)
	}
	if !exists {
		t.Error("Expected unrelated table to survive resetSchema")
	}
}

func runMigrationsFresh(db *sql.DB) error {
	runner, err := NewMigrationsRunner(db)
	if err != nil {
		return err
	}
	runner.DisableLogging()
	return runner.Run()
}
