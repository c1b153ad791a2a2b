package db

import (
	"database/sql"
	"errors"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a *sql.DB.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// SQLiteScheme prefixes DSNs that address a SQLite database file.
const SQLiteScheme = "sqlite://"

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// DialectOf reports the dialect implied by a DSN.
func DialectOf(dsn string) Dialect {
	if strings.HasPrefix(dsn, SQLiteScheme) {
		return SQLite
	}
	return Postgres
}

// Open opens the database addressed by dsn and verifies the connection. A sqlite:// DSN
// opens a SQLite file through modernc.org/sqlite; anything else goes to Postgres via pgx.
// Caller must call Close when done.
func Open(dsn string) (*sql.DB, error) {
	if DialectOf(dsn) == SQLite {
		return OpenSQLite(strings.TrimPrefix(dsn, SQLiteScheme))
	}
	return OpenPostgres(dsn)
}

// OpenPostgres opens a Postgres connection using the given DSN.
func OpenPostgres(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("db: empty postgres DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (creating if needed) the SQLite database at path. The pool is capped
// at one connection so writers never race for the file lock.
func OpenSQLite(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("db: empty sqlite path")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
