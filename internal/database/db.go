package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects the backing store.
type Options struct {
	Driver string
	DSN    string
	Debug  bool
	// MaxOpenConns is left at the driver default when zero.
	MaxOpenConns int
}

// NewDB opens a bun database for the configured driver with optional debug logging.
func NewDB(opts Options) (*bun.DB, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		return newSQLite(opts)
	case DriverPostgres:
		return newPostgres(opts)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

func newSQLite(opts Options) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, opts.DSN)
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(opts.MaxOpenConns)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	addDebugHook(db, opts.Debug)

	// Apply recommended pragmas for write-ahead logging and performance.
	if _, err := db.Exec(`
        PRAGMA journal_mode = WAL;
        PRAGMA synchronous = NORMAL;
        PRAGMA foreign_keys = ON;
        PRAGMA busy_timeout = 5000;
        PRAGMA cache_size = -64000;
    `); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func newPostgres(opts Options) (*bun.DB, error) {
	sqldb, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if err := sqldb.Ping(); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	addDebugHook(db, opts.Debug)
	return db, nil
}

func addDebugHook(db *bun.DB, debug bool) {
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
}
