package db

import "embed"

// MigrationFS embeds the SQL migrations for both dialects: migrations/postgres and
// migrations/sqlite. The migrate runner picks the directory matching the DSN.
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var MigrationFS embed.FS

// MigrationDir returns the embedded directory holding migrations for d.
func MigrationDir(d Dialect) string {
	return "migrations/" + d.String()
}
