// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"aiquery-workers/internal/common/config"
)

// PostgresClient wraps the SQL connection to the tenant store.
// The name predates sqlite support; Driver tells which backend is behind DB.
type PostgresClient struct {
	DB      *sql.DB
	Driver  string
	Builder sq.StatementBuilderType
}

// NewPostgres opens the tenant store described by cfg. It does not ping.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	driver := NormalizeDriver(cfg.Driver)

	// lib/pq registers "postgres", pgx/stdlib "pgx", modernc "sqlite"
	db, err := sql.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// every connection to an in-memory sqlite database is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxIdle)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	return NewFromDB(db, driver), nil
}

// OpenPostgres opens the tenant store and pings it. A handle that fails the
// ping is closed before the error is returned.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresClient, error) {
	c, err := NewPostgres(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.pingOrClose(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *PostgresClient) pingOrClose(ctx context.Context) error {
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("failed to ping %s: %w", c.Driver, err)
	}
	return nil
}

// NewFromDB wraps an already opened handle, e.g. a sqlmock connection in tests.
func NewFromDB(db *sql.DB, driver string) *PostgresClient {
	driver = NormalizeDriver(driver)
	return &PostgresClient{
		DB:      db,
		Driver:  driver,
		Builder: sq.StatementBuilder.PlaceholderFormat(placeholderFor(driver)),
	}
}

// NormalizeDriver maps driver aliases onto "postgres", "pgx" or "sqlite".
func NormalizeDriver(driver string) string {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case "", "postgres", "postgresql", "pq":
		return "postgres"
	case "pgx":
		return "pgx"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return d
	}
}

func placeholderFor(driver string) sq.PlaceholderFormat {
	if driver == "sqlite" {
		return sq.Question
	}
	return sq.Dollar
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// GetDB returns the underlying *sql.DB
func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}
