package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	stdfs "io/fs"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//go:embed migrations
var migrationsFS embed.FS

type migration struct {
	version  int
	name     string
	upFile   string // path inside embedded FS
	downFile string // path inside embedded FS
}

// MigrationStatus describes one known schema version.
type MigrationStatus struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.(up|down)\.sql$`)

func loadMigrations(dialect Dialect) (map[int]migration, error) {
	entries := map[int]migration{}
	dir := "migrations/" + string(dialect)
	list, err := stdfs.ReadDir(migrationsFS, dir)
	if err != nil {
		// if directory missing, just return empty set
		return entries, nil
	}
	for _, de := range list {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		m := migFileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		verStr, migName, kind := m[1], m[2], m[3]
		var ver int
		if _, err := fmt.Sscanf(verStr, "%04d", &ver); err != nil {
			continue
		}
		item := entries[ver]
		item.version = ver
		item.name = migName
		p := dir + "/" + name
		if kind == "up" {
			item.upFile = p
		} else {
			item.downFile = p
		}
		entries[ver] = item
	}
	return entries, nil
}

func sortedVersions(migs map[int]migration) []int {
	versions := make([]int, 0, len(migs))
	for v := range migs {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func ensureMigrationsTable(e execer) error {
	_, err := e.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	return err
}

// migrationsTableExists reports whether schema_migrations has been created yet.
func migrationsTableExists(d *DB) (bool, error) {
	q := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`
	if d.Dialect == Postgres {
		q = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = 'schema_migrations'`
	}
	var n int
	if err := d.QueryRow(q).Scan(&n); err != nil {
		return false, errors.Wrap(err, "look up schema_migrations")
	}
	return n > 0, nil
}

func appliedVersions(d *DB) (map[int]bool, error) {
	if err := ensureMigrationsTable(d); err != nil {
		return nil, err
	}
	return readApplied(d)
}

func readApplied(d *DB) (map[int]bool, error) {
	rows, err := d.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	got := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		got[v] = true
	}
	return got, rows.Err()
}

func isNoTx(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "-- NO_TX")
}

// Migrate applies every embedded migration not yet recorded in schema_migrations.
func Migrate(d *DB) error {
	if d == nil {
		return errors.New("nil db")
	}
	migs, err := loadMigrations(d.Dialect)
	if err != nil {
		return err
	}
	if len(migs) == 0 {
		// nothing to do
		return nil
	}
	applied, err := appliedVersions(d)
	if err != nil {
		return err
	}
	record := d.Rebind(`INSERT INTO schema_migrations(version) VALUES(?)`)
	for _, v := range sortedVersions(migs) {
		if applied[v] {
			continue
		}
		m := migs[v]
		if strings.TrimSpace(m.upFile) == "" {
			return errors.Errorf("missing up migration for version %04d", v)
		}
		sqlText, err := migrationsFS.ReadFile(m.upFile)
		if err != nil {
			return err
		}
		text := string(sqlText)
		if isNoTx(text) {
			// Execute as-is without wrapping in a transaction
			if _, err := d.Exec(text); err != nil {
				return errors.Wrapf(err, "migration %04d failed", v)
			}
			if _, err := d.Exec(record, v); err != nil {
				return err
			}
		} else {
			tx, err := d.Begin()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(text); err != nil {
				_ = tx.Rollback()
				return errors.Wrapf(err, "migration %04d failed", v)
			}
			if _, err := tx.Exec(record, v); err != nil {
				_ = tx.Rollback()
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
		}
		logrus.WithFields(logrus.Fields{"version": v, "name": m.name, "dialect": d.Dialect}).Info("migration applied")
	}
	return nil
}

// RollbackLast rolls back the most recently applied migration, if its down script exists.
func RollbackLast(d *DB) error {
	if d == nil {
		return errors.New("nil db")
	}
	if err := ensureMigrationsTable(d); err != nil {
		return err
	}
	var version int
	err := d.QueryRow(`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return nil // nothing to rollback
	} else if err != nil {
		return err
	}
	migs, err := loadMigrations(d.Dialect)
	if err != nil {
		return err
	}
	m, ok := migs[version]
	if !ok || m.downFile == "" {
		return errors.Errorf("no down migration found for version %d", version)
	}
	sqlText, err := migrationsFS.ReadFile(m.downFile)
	if err != nil {
		return err
	}
	text := string(sqlText)
	forget := d.Rebind(`DELETE FROM schema_migrations WHERE version = ?`)
	if isNoTx(text) {
		if _, err := d.Exec(text); err != nil {
			return err
		}
		if _, err := d.Exec(forget, version); err != nil {
			return err
		}
	} else {
		tx, err := d.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(text); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(forget, version); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	logrus.WithFields(logrus.Fields{"version": version, "name": m.name, "dialect": d.Dialect}).Info("migration rolled back")
	return nil
}

// Reset applies the schema from scratch: every up script runs regardless of
// history, dropping and recreating its tables, and schema_migrations is rewritten.
// All rows in users and notes are discarded.
func Reset(ctx context.Context, d *DB) error {
	if d == nil {
		return errors.New("nil db")
	}
	migs, err := loadMigrations(d.Dialect)
	if err != nil {
		return err
	}
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin reset")
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureMigrationsTable(tx); err != nil {
		return errors.Wrap(err, "ensure schema_migrations")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		return errors.Wrap(err, "clear schema_migrations")
	}
	record := d.Rebind(`INSERT INTO schema_migrations(version) VALUES(?)`)
	for _, v := range sortedVersions(migs) {
		m := migs[v]
		if strings.TrimSpace(m.upFile) == "" {
			return errors.Errorf("missing up migration for version %04d", v)
		}
		sqlText, err := migrationsFS.ReadFile(m.upFile)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(sqlText)); err != nil {
			return errors.Wrapf(err, "reset %04d failed", v)
		}
		if _, err := tx.ExecContext(ctx, record, v); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit reset")
	}
	logrus.WithFields(logrus.Fields{"dialect": d.Dialect, "versions": len(migs)}).Warn("schema reset: all tables dropped and recreated")
	return nil
}

// Status lists every embedded migration and whether it has been applied.
func Status(d *DB) ([]MigrationStatus, error) {
	if d == nil {
		return nil, errors.New("nil db")
	}
	migs, err := loadMigrations(d.Dialect)
	if err != nil {
		return nil, err
	}
	// Status is read-only: a database that was never migrated has nothing applied.
	applied := map[int]bool{}
	exists, err := migrationsTableExists(d)
	if err != nil {
		return nil, err
	}
	if exists {
		if applied, err = readApplied(d); err != nil {
			return nil, err
		}
	}
	out := make([]MigrationStatus, 0, len(migs))
	for _, v := range sortedVersions(migs) {
		out = append(out, MigrationStatus{Version: v, Name: migs[v].name, Applied: applied[v]})
	}
	return out, nil
}
