// migrate runs DB migrations from embedded SQL against the configured store
// (STORE_DRIVER=postgres uses DATABASE_URL, sqlite uses SQLITE_PATH).
package main

import (
	"flag"
	"fmt"
	"os"

	"geointel/internal/config"
	"geointel/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dsn := cfg.DSN()
	if err := migrate.Run(dsn, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	version, dirty, err := migrate.Version(dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate: version:", err)
		os.Exit(1)
	}
	fmt.Printf("migrated %s, schema version %d (dirty=%v)\n", *direction, version, dirty)
}
