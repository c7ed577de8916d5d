// Package migrate applies versioned schema migrations to a database/sql
// handle. Migrations are declared in code and applied in version order;
// the applied version lives in a single-row tracking table.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one schema step. Down is optional; rolling back past a
// migration without down SQL fails.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Migrator applies migrations against one database handle.
type Migrator struct {
	db         *sql.DB
	table      string
	migrations []Migration
}

// New creates a migrator. table names the version-tracking table.
func New(db *sql.DB, table string, migrations []Migration) *Migrator {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Migrator{db: db, table: table, migrations: sorted}
}

func (m *Migrator) ensureTable() error {
	_, err := m.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (version INTEGER NOT NULL)`, m.table))
	return err
}

// CurrentVersion reports the applied schema version, zero for a fresh
// database.
func (m *Migrator) CurrentVersion() (int, error) {
	if err := m.ensureTable(); err != nil {
		return 0, fmt.Errorf("failed to create migration table: %w", err)
	}

	var version int
	err := m.db.QueryRow(fmt.Sprintf(`SELECT version FROM %s LIMIT 1`, m.table)).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// MigrateUp applies every pending migration in version order.
func (m *Migrator) MigrateUp() error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(mig.Up, mig.Version); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// MigrateDown rolls back to the target version, newest migration first.
func (m *Migrator) MigrateDown(target int) error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}
	if target >= current {
		return fmt.Errorf("target version %d must be below current version %d", target, current)
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if mig.Version > current || mig.Version <= target {
			continue
		}
		if mig.Down == "" {
			return fmt.Errorf("migration %d (%s) has no down SQL", mig.Version, mig.Name)
		}
		if err := m.apply(mig.Down, mig.Version-1); err != nil {
			return fmt.Errorf("failed to roll back migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// apply runs one migration step and records the resulting version in the
// same transaction.
func (m *Migrator) apply(stmts string, resulting int) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmts); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s`, m.table)); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf(`INSERT INTO %s (version) VALUES (?)`, m.table), resulting); err != nil {
		return err
	}
	return tx.Commit()
}
