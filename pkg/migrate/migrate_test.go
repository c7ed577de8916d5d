package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create probes",
			Up:      `CREATE TABLE probes (name TEXT NOT NULL);`,
			Down:    `DROP TABLE probes;`,
		},
		{
			Version: 2,
			Name:    "create readings",
			Up:      `CREATE TABLE readings (probe TEXT NOT NULL, cm REAL NOT NULL);`,
			Down:    `DROP TABLE readings;`,
		},
	}
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		t.Fatalf("failed to check table %s: %v", name, err)
	}
	return count == 1
}

func TestMigrateUp(t *testing.T) {
	db := openTestDB(t)
	m := New(db, "schema_migrations", testMigrations())

	if err := m.MigrateUp(); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}

	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
	if !tableExists(t, db, "probes") || !tableExists(t, db, "readings") {
		t.Error("expected both migrated tables to exist")
	}

	// A second run has nothing to do.
	if err := m.MigrateUp(); err != nil {
		t.Errorf("repeated migrate up must be a no-op, got %v", err)
	}
}

func TestMigrateUpSortsVersions(t *testing.T) {
	db := openTestDB(t)
	migrations := testMigrations()
	migrations[0], migrations[1] = migrations[1], migrations[0]

	m := New(db, "schema_migrations", migrations)
	if err := m.MigrateUp(); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}
	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
}

func TestCurrentVersionFreshDatabase(t *testing.T) {
	db := openTestDB(t)
	m := New(db, "schema_migrations", testMigrations())

	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 on a fresh database, got %d", version)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	m := New(db, "schema_migrations", testMigrations())
	if err := m.MigrateUp(); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}

	if err := m.MigrateDown(1); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}
	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}
	if tableExists(t, db, "readings") {
		t.Error("readings table should be gone after rollback")
	}
	if !tableExists(t, db, "probes") {
		t.Error("probes table should survive a rollback to version 1")
	}
}

func TestMigrateDownRejectsBadTarget(t *testing.T) {
	db := openTestDB(t)
	m := New(db, "schema_migrations", testMigrations())
	if err := m.MigrateUp(); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}

	if err := m.MigrateDown(2); err == nil {
		t.Error("expected an error for a target at the current version")
	}
	if err := m.MigrateDown(5); err == nil {
		t.Error("expected an error for a target above the current version")
	}
}

func TestMigrateDownWithoutDownSQL(t *testing.T) {
	db := openTestDB(t)
	migrations := testMigrations()
	migrations[1].Down = ""

	m := New(db, "schema_migrations", migrations)
	if err := m.MigrateUp(); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}
	if err := m.MigrateDown(0); err == nil {
		t.Error("expected an error rolling back a migration without down SQL")
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	migrations := []Migration{
		{Version: 1, Name: "good", Up: `CREATE TABLE good (id INTEGER);`},
		{Version: 2, Name: "broken", Up: `CREATE TABLE WHERE;`},
	}

	m := New(db, "schema_migrations", migrations)
	if err := m.MigrateUp(); err == nil {
		t.Fatal("expected the broken migration to fail")
	}

	// The failed step must not advance the version past the good one.
	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1 after the failure, got %d", version)
	}
}
