package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Store persists users, sessions, API tokens, audit logs and tool
// instructions. SQLite is the default backend; PostgreSQL and MySQL are
// supported for shared deployments.
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// StoreOptions selects the backing database. An empty Driver means SQLite.
// For SQLite, DSN is ignored and DataDir decides the file location (empty
// DataDir gives an in-memory database).
type StoreOptions struct {
	Driver  string
	DSN     string
	DataDir string
}

// NewStore creates a SQLite-backed store in dataDir. Pass empty string for
// in-memory.
func NewStore(dataDir string) (*Store, error) {
	return OpenStore(StoreOptions{Driver: DriverSQLite, DataDir: dataDir})
}

// OpenStore connects to the configured database and runs migrations.
func OpenStore(opts StoreOptions) (*Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported store driver %q (available: sqlite, postgres, mysql)", driver)
	}

	dsn, err := resolveDSN(driver, opts)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

func resolveDSN(driver string, opts StoreOptions) (string, error) {
	switch driver {
	case DriverSQLite:
		if opts.DataDir == "" {
			return ":memory:?_time_format=sqlite", nil
		}
		if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
			return "", fmt.Errorf("create data dir: %w", err)
		}
		return filepath.Join(opts.DataDir, "chatwoot-mcp.db") +
			"?_time_format=sqlite&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
	case DriverMySQL:
		if opts.DSN == "" {
			return "", fmt.Errorf("store dsn is required for driver %q", driver)
		}
		// Timestamps must scan into time.Time, and an UPDATE that matches a
		// row without changing it must still report the row as affected.
		dsn := opts.DSN
		for _, p := range []string{"parseTime=true", "clientFoundRows=true"} {
			key := p[:strings.Index(p, "=")+1]
			if strings.Contains(dsn, key) {
				continue
			}
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + p
		}
		return dsn, nil
	default:
		if opts.DSN == "" {
			return "", fmt.Errorf("store dsn is required for driver %q", driver)
		}
		return opts.DSN, nil
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the store driver name.
func (s *Store) Driver() string {
	return s.dialect.name
}

// rebind converts a ?-placeholder query to the driver's bindvar style.
func (s *Store) rebind(q string) string {
	return s.db.Rebind(q)
}
