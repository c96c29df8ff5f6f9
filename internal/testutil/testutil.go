package testutil

import (
	"context"
	"os"
	"regexp"
	"testing"

	"secureNotes/internal/db"
)

// PostgresDSNEnv names the environment variable that enables Postgres-backed tests.
const PostgresDSNEnv = "NOTES_TEST_POSTGRES_DSN"

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The database is closed via t.Cleanup. Name defaults to the test name so
// parallel packages never share state.
func OpenInMemoryDB(t *testing.T, name string) *db.DB {
	t.Helper()
	if name == "" {
		name = t.Name()
	}
	name = unsafeName.ReplaceAllString(name, "_")
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// OpenPostgresDB opens the database named by NOTES_TEST_POSTGRES_DSN, resetting
// its schema first. The test is skipped when the variable is unset.
func OpenPostgresDB(t *testing.T) *db.DB {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	d, err := db.OpenDriver(string(db.Postgres), dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Reset(context.Background(), d); err != nil {
		t.Fatalf("reset postgres: %v", err)
	}
	return d
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
