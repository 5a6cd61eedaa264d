package db

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/jonathan/nutricalc/internal/db/migrations"
)

// Dialect names accepted by RunMigrations
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// goose keeps its dialect and filesystem in package globals
var gooseMu sync.Mutex

// RunMigrations applies all pending migrations for dialect using the embedded SQL files
func RunMigrations(db *sql.DB, dialect string) error {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, dialect); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
