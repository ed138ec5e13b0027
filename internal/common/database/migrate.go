package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings a development database up to the read schema the engine expects.
// Production schemas are owned by the application that writes the data.
func Migrate(ctx context.Context, c *PostgresClient) error {
	switch c.Driver {
	case "postgres", "pgx":
		goose.SetBaseFS(migrationsFS)
		if err := goose.SetDialect("postgres"); err != nil {
			return fmt.Errorf("set goose dialect: %w", err)
		}
		if err := goose.UpContext(ctx, c.DB, "migrations"); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	case "sqlite":
		if _, err := c.DB.ExecContext(ctx, sqliteSchema); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

// sqliteSchema mirrors migrations/00001 with sqlite types; dates are ISO-8601 text.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS organizations (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS inventory_items (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    name TEXT NOT NULL,
    unit TEXT NOT NULL DEFAULT '',
    category TEXT,
    is_active INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS item_price_history (
    id TEXT PRIMARY KEY,
    item_id TEXT NOT NULL,
    price REAL NOT NULL,
    vendor TEXT,
    effective_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS expense_categories (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS recurring_expense_templates (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    name TEXT NOT NULL,
    amount REAL NOT NULL,
    frequency TEXT NOT NULL,
    vendor TEXT,
    category_id TEXT,
    next_due_date TEXT,
    is_active INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    date TEXT NOT NULL,
    amount REAL NOT NULL,
    pre_tax_amount REAL,
    tax_amount REAL,
    vendor TEXT,
    description TEXT NOT NULL DEFAULT '',
    category_id TEXT,
    recurring_template_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_inventory_items_org ON inventory_items(org_id);
CREATE INDEX IF NOT EXISTS idx_price_history_item_effective ON item_price_history(item_id, effective_at);
CREATE INDEX IF NOT EXISTS idx_expenses_org_date ON expenses(org_id, date);
`
