package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pressly/goose/v3"

	"github.com/pkordes/travelwatch/migrations"
	"github.com/pkordes/travelwatch/testutil"
)

// TestMain runs before any test in the repo_test package.
// It applies all pending Postgres migrations to the test database so
// individual tests never need to think about schema state. SQLite tests
// migrate their own throwaway files and need no setup here.
func TestMain(m *testing.M) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		// No test DB configured: Postgres tests skip themselves.
		os.Exit(m.Run())
	}

	// goose needs database/sql, not a pgx pool. TestMain has no *testing.T,
	// so the connection is opened manually rather than through testutil.NewSQLDB.
	db := testutil.MustOpenSQLDB(os.Getenv("TEST_DATABASE_URL"))
	defer db.Close()

	if _, err := migrations.Up(context.Background(), goose.DialectPostgres, db, migrations.Postgres); err != nil {
		log.Fatalf("TestMain: %v", err)
	}

	os.Exit(m.Run())
}
