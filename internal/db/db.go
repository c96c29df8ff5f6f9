package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Dialect names a supported database/sql driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// ParseDialect maps a driver name to a Dialect. "sqlite" is accepted as an alias.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// DB is a connection pool tagged with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open opens (or creates) a local SQLite database file and applies pending migrations.
// It uses versioned .sql files under internal/db/migrations/<dialect> following the pattern:
//
//	0001_name.up.sql / 0001_name.down.sql
//
// Only new migrations are applied. Use RollbackLast to revert the last applied
// migration and Reset to drop and recreate the whole schema.
func Open(path string) (*DB, error) {
	return OpenDriver(string(SQLite), path)
}

// OpenDriver is like Open for any supported driver.
func OpenDriver(driver, dsn string) (*DB, error) {
	d, err := Connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// Connect opens and pings the database without touching the schema.
func Connect(driver, dsn string) (*DB, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	} else if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	sqlDB, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dialect)
	}
	if dialect == SQLite && isMemoryDSN(dsn) {
		// A private in-memory database exists per connection, and a shared-cache one
		// reports SQLITE_LOCKED instead of waiting. One connection avoids both.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrapf(err, "ping %s", dialect)
	}
	d := &DB{DB: sqlDB, Dialect: dialect}
	if dialect == SQLite {
		// journal_mode may not be supported in some contexts (e.g., in-memory). Ignore errors.
		_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	}
	logrus.WithField("dialect", dialect).Debug("database connected")
	return d, nil
}

// sqliteDSN appends the connection parameters every pooled connection needs.
// PRAGMA statements only reach one connection, so foreign keys are set here.
func sqliteDSN(path string) string {
	if path == "" {
		path = "app.db"
	}
	params := []string{"_foreign_keys=on", "_busy_timeout=5000"}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	var extra []string
	for _, p := range params {
		key := p[:strings.Index(p, "=")+1]
		if !strings.Contains(path, key) {
			extra = append(extra, p)
		}
	}
	if len(extra) == 0 {
		return path
	}
	return path + sep + strings.Join(extra, "&")
}

func isMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
func (d *DB) Rebind(query string) string {
	return rebind(d.Dialect, query)
}

func rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 1
	for _, c := range query {
		if c == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Health pings the database, bounded by ctx.
func (d *DB) Health(ctx context.Context) error {
	if d == nil || d.DB == nil {
		return errors.New("nil db")
	}
	return d.PingContext(ctx)
}
