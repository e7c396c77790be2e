// Package migrations embeds the SQL migration files so they can be used
// by the goose programmatic API in tests and server bootstrap.
//
// There is one migration set per supported store: postgres/ for the pgx
// store and sqlite/ for the embedded single-file store.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres holds the migrations for the Postgres store, rooted at ".".
var Postgres = mustSub("postgres")

// SQLite holds the migrations for the SQLite store, rooted at ".".
var SQLite = mustSub("sqlite")

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic("migrations: " + err.Error())
	}
	return sub
}

// Up applies every pending migration in fsys to db using the given dialect.
// It returns the number of migrations applied.
func Up(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) (int, error) {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("migrations.Up: create provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrations.Up: %w", err)
	}
	return len(results), nil
}
