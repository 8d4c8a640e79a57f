package auth

import (
	"embed"
	"io/fs"
	"path"
)

const migrationsRoot = "data/sql/migrations"

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsFor returns the migrations for one dialect, "sqlite" or "postgres"
func MigrationsFor(dialect string) (fs.FS, error) {
	return fs.Sub(migrationsFS, path.Join(migrationsRoot, dialect))
}

// SQLiteDSN returns the DSN for a sqlite database file. Transactions begin
// with BEGIN IMMEDIATE and wait up to five seconds for a busy database, so
// concurrent writers queue instead of failing with "database is locked".
func SQLiteDSN(file string) string {
	return file + "?_fk=1&_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL"
}
