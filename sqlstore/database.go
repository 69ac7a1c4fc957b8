package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
)

// DefaultTimeout bounds the connection check made by Open.
const DefaultTimeout = 3 * time.Second

// Note: the busy_timeout pragma must be first because the connection needs to
// block on busy before WAL mode is set in case another connection has not set it yet.
const sqlitePragmas = "_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=journal_size_limit(200000000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=temp_store(MEMORY)&_pragma=cache_size(-16000)"

// DialectFor returns the dialect spoken through a database/sql driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverSQLite:
		return DialectSQLite, nil
	case DriverPostgres, DriverPGX:
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// Open connects to a database and verifies the connection. SQLite paths
// without a query string get the default pragmas.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, "", err
	}

	if dialect == DialectSQLite && !strings.Contains(dsn, "?") {
		dsn += "?" + sqlitePragmas
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	return db, dialect, nil
}
