// Package migrations embeds the per-dialect SQL schema files so cotag init
// works regardless of working directory.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var all embed.FS

// SQLite returns the migration files for the SQLite dialect.
func SQLite() fs.FS {
	sub, err := fs.Sub(all, "sqlite")
	if err != nil {
		panic(err)
	}
	return sub
}

// Postgres returns the migration files for the PostgreSQL dialect.
func Postgres() fs.FS {
	sub, err := fs.Sub(all, "postgres")
	if err != nil {
		panic(err)
	}
	return sub
}
