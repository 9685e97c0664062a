package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"PriceNewsScanner/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	pingTimeout            = 5 * time.Second
)

// DB couples a connection pool with a statement builder using the driver's placeholders.
type DB struct {
	conn   *sqlx.DB
	sb     sq.StatementBuilderType
	driver string
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		// one writer at a time; busy_timeout in the DSN covers other processes
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(defaultMaxOpenConns)
		conn.SetMaxIdleConns(defaultMaxIdleConns)
		conn.SetConnMaxLifetime(defaultConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	return NewDB(conn), nil
}

// NewDB wraps an existing pool; the placeholder style follows conn.DriverName().
func NewDB(conn *sqlx.DB) *DB {
	var format sq.PlaceholderFormat = sq.Question
	if conn.DriverName() == DriverPostgres {
		format = sq.Dollar
	}
	return &DB{
		conn:   conn,
		sb:     sq.StatementBuilder.PlaceholderFormat(format),
		driver: conn.DriverName(),
	}
}

// Close releases the pool.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// isUniqueViolation reports a uniqueness constraint failure on either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
