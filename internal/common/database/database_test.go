package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiquery-workers/internal/common/config"
)

func TestNormalizeDriver(t *testing.T) {
	assert.Equal(t, "postgres", NormalizeDriver(""))
	assert.Equal(t, "postgres", NormalizeDriver(" PostgreSQL "))
	assert.Equal(t, "pgx", NormalizeDriver("pgx"))
	assert.Equal(t, "sqlite", NormalizeDriver("sqlite3"))
	assert.Equal(t, "mysql", NormalizeDriver("MySQL"))
}

func TestNewFromDB_PlaceholderPerDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pgSQL, _, err := NewFromDB(db, "postgres").Builder.Select("id").From("organizations").Where("id = ?", "o1").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM organizations WHERE id = $1", pgSQL)

	liteSQL, _, err := NewFromDB(db, "sqlite").Builder.Select("id").From("organizations").Where("id = ?", "o1").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM organizations WHERE id = ?", liteSQL)
}

func TestMigrate_SQLite(t *testing.T) {
	c, err := NewPostgres(config.PostgresConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, c))
	require.NoError(t, Migrate(ctx, c), "schema creation is idempotent")

	var n int
	require.NoError(t, c.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('organizations', 'inventory_items', 'item_price_history', 'expense_categories', 'recurring_expense_templates', 'expenses')`).Scan(&n))
	assert.Equal(t, 6, n)
}

func TestMigrate_UnsupportedDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, Migrate(context.Background(), NewFromDB(db, "mysql")))
}

func TestRedis(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))
}

func TestOpenPostgres_SQLite(t *testing.T) {
	c, err := OpenPostgres(context.Background(), config.PostgresConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "sqlite", c.Driver)
}

func TestPingOrClose_ClosesOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	err = NewFromDB(db, "postgres").pingOrClose(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping postgres")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	c, err := OpenRedis(context.Background(), config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = OpenRedis(context.Background(), config.RedisConfig{Address: addr})
	assert.Error(t, err)
}
