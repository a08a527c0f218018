package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var dbUrl, migrationsPath, migrationsTable string
	var steps int

	flag.StringVar(&dbUrl, "db-url", os.Getenv("DATABASE_URL"), "postgres connection url")
	flag.StringVar(&migrationsPath, "migrations-path", "./migrations", "path to migrations")
	flag.StringVar(&migrationsTable, "migrations-table", "schema_migrations", "name of migrations table")
	flag.IntVar(&steps, "steps", 0, "apply n migrations, negative rolls back; 0 applies all pending")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if dbUrl == "" {
		log.Error("db-url or DATABASE_URL is required")
		os.Exit(1)
	}
	if migrationsPath == "" {
		log.Error("migrations-path is required")
		os.Exit(1)
	}

	dsn, err := withMigrationsTable(dbUrl, migrationsTable)
	if err != nil {
		log.Error("Invalid db url", "error", err)
		os.Exit(1)
	}

	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		log.Error("Failed to init migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	if steps != 0 {
		err = m.Steps(steps)
	} else {
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("No migrations to apply")
			return
		}
		log.Error("Migration failed", "error", err)
		os.Exit(1)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Error("Failed to read schema version", "error", err)
		os.Exit(1)
	}

	log.Info("Migrations applied", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
}

// withMigrationsTable points golang-migrate at a custom bookkeeping table.
func withMigrationsTable(dbUrl, table string) (string, error) {
	u, err := url.Parse(dbUrl)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	q := u.Query()
	q.Set("x-migrations-table", table)
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
