package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

var schemaName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func init() {
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
}

// Open connects to the configured database. For sqlite the parent directory is created;
// for postgres the optional schema is applied to every pooled connection via search_path.
func Open(ctx context.Context, driver, dsn, schema string) (*sqlx.DB, error) {
	switch driver {
	case driverSQLite:
		return openSQLite(dsn)
	case driverPostgres:
		return openPostgres(ctx, dsn, schema)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func openSQLite(path string) (*sqlx.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sqlx.Open(driverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// single writer keeps sqlite from returning SQLITE_BUSY under load
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

func openPostgres(ctx context.Context, dsn, schema string) (*sqlx.DB, error) {
	if schema != "" {
		if !schemaName.MatchString(schema) {
			return nil, fmt.Errorf("invalid schema name %q", schema)
		}
		dsn = withSearchPath(dsn, schema)
	}

	db, err := sqlx.Open(driverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func withSearchPath(dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return strings.TrimSpace(dsn + " search_path=" + schema)
}

// dialect captures the DDL differences between the supported drivers.
type dialect struct {
	idColumn string
	timeType string
}

func dialectOf(db *sqlx.DB) dialect {
	if db.DriverName() == driverPostgres {
		return dialect{idColumn: "BIGSERIAL PRIMARY KEY", timeType: "TIMESTAMPTZ"}
	}
	return dialect{idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT", timeType: "DATETIME"}
}
