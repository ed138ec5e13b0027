// Package storetest seeds an in-memory sqlite tenant store for tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"aiquery-workers/internal/common/config"
	"aiquery-workers/internal/common/database"
)

const (
	OrgA = "0a000000-0000-0000-0000-00000000000a"
	OrgB = "0b000000-0000-0000-0000-00000000000b"
	// OrgC has no data at all.
	OrgC = "0c000000-0000-0000-0000-00000000000c"

	ItemFlourA     = "a1000000-0000-0000-0000-000000000001"
	ItemSugarA     = "a1000000-0000-0000-0000-000000000002"
	ItemOliveOilA  = "a1000000-0000-0000-0000-000000000003"
	ItemOldFlourA  = "a1000000-0000-0000-0000-000000000004"
	ItemNoPriceA   = "a1000000-0000-0000-0000-000000000005"
	ItemFlourB     = "b1000000-0000-0000-0000-000000000001"
	ItemMissing    = "ff000000-0000-0000-0000-0000000000ff"
	CategoryProdA  = "ca000000-0000-0000-0000-000000000001"
	CategoryUtilA  = "ca000000-0000-0000-0000-000000000002"
	CategorySuppB  = "cb000000-0000-0000-0000-000000000001"
	RecurringElecA = "da000000-0000-0000-0000-000000000001"
	RecurringOldA  = "da000000-0000-0000-0000-000000000002"
	RecurringRentB = "db000000-0000-0000-0000-000000000001"
)

const seed = `
INSERT INTO organizations (id, name) VALUES
    ('0a000000-0000-0000-0000-00000000000a', 'Acme Bistro'),
    ('0b000000-0000-0000-0000-00000000000b', 'Bravo Cafe'),
    ('0c000000-0000-0000-0000-00000000000c', 'Corner Deli');

INSERT INTO inventory_items (id, org_id, name, unit, category, is_active) VALUES
    ('a1000000-0000-0000-0000-000000000001', '0a000000-0000-0000-0000-00000000000a', 'Flour', 'kg', 'Baking', 1),
    ('a1000000-0000-0000-0000-000000000002', '0a000000-0000-0000-0000-00000000000a', 'Sugar', 'kg', 'Baking', 1),
    ('a1000000-0000-0000-0000-000000000003', '0a000000-0000-0000-0000-00000000000a', 'Olive Oil', 'l', NULL, 1),
    ('a1000000-0000-0000-0000-000000000004', '0a000000-0000-0000-0000-00000000000a', 'Old Flour', 'kg', 'Baking', 0),
    ('a1000000-0000-0000-0000-000000000005', '0a000000-0000-0000-0000-00000000000a', 'Saffron 100%', 'g', 'Spices', 1),
    ('b1000000-0000-0000-0000-000000000001', '0b000000-0000-0000-0000-00000000000b', 'Flour', 'kg', 'Dry goods', 1);

INSERT INTO item_price_history (id, item_id, price, vendor, effective_at) VALUES
    ('e1000000-0000-0000-0000-000000000001', 'a1000000-0000-0000-0000-000000000001', 10.00, 'Mill Co', '2024-01-05T09:00:00Z'),
    ('e1000000-0000-0000-0000-000000000002', 'a1000000-0000-0000-0000-000000000001', 12.00, 'Mill Co', '2024-02-01T09:00:00Z'),
    ('e1000000-0000-0000-0000-000000000003', 'a1000000-0000-0000-0000-000000000001', 15.00, NULL, '2024-03-01T09:00:00Z'),
    ('e1000000-0000-0000-0000-000000000004', 'a1000000-0000-0000-0000-000000000002', 5.00, 'Sweet Ltd', '2024-01-10T09:00:00Z'),
    ('e1000000-0000-0000-0000-000000000005', 'a1000000-0000-0000-0000-000000000002', 4.00, 'Sweet Ltd', '2024-03-05T09:00:00Z'),
    ('e1000000-0000-0000-0000-000000000006', 'a1000000-0000-0000-0000-000000000003', 20.00, 'Oliva', '2024-02-15T09:00:00Z'),
    ('e1000000-0000-0000-0000-000000000007', 'b1000000-0000-0000-0000-000000000001', 11.00, 'Grain Inc', '2024-02-01T09:00:00Z');

INSERT INTO expense_categories (id, org_id, name) VALUES
    ('ca000000-0000-0000-0000-000000000001', '0a000000-0000-0000-0000-00000000000a', 'Produce'),
    ('ca000000-0000-0000-0000-000000000002', '0a000000-0000-0000-0000-00000000000a', 'Utilities'),
    ('cb000000-0000-0000-0000-000000000001', '0b000000-0000-0000-0000-00000000000b', 'Supplies');

INSERT INTO recurring_expense_templates (id, org_id, name, amount, frequency, vendor, category_id, next_due_date, is_active) VALUES
    ('da000000-0000-0000-0000-000000000001', '0a000000-0000-0000-0000-00000000000a', 'Electricity', 55.00, 'monthly', 'City Power', 'ca000000-0000-0000-0000-000000000002', '2024-03-20', 1),
    ('da000000-0000-0000-0000-000000000002', '0a000000-0000-0000-0000-00000000000a', 'Old Lease', 900.00, 'monthly', NULL, NULL, NULL, 0),
    ('db000000-0000-0000-0000-000000000001', '0b000000-0000-0000-0000-00000000000b', 'Rent', 1000.00, 'monthly', 'Landlord', 'cb000000-0000-0000-0000-000000000001', '2024-04-01', 1);

INSERT INTO expenses (id, org_id, date, amount, pre_tax_amount, tax_amount, vendor, description, category_id, recurring_template_id) VALUES
    ('f1000000-0000-0000-0000-000000000001', '0a000000-0000-0000-0000-00000000000a', '2024-01-15', 110.00, 100.00, 10.00, 'Mill Co', 'Flour order', 'ca000000-0000-0000-0000-000000000001', NULL),
    ('f1000000-0000-0000-0000-000000000002', '0a000000-0000-0000-0000-00000000000a', '2024-01-20', 55.00, 50.00, 5.00, 'City Power', 'January power', 'ca000000-0000-0000-0000-000000000002', 'da000000-0000-0000-0000-000000000001'),
    ('f1000000-0000-0000-0000-000000000003', '0a000000-0000-0000-0000-00000000000a', '2024-02-20', 60.50, 55.00, 5.50, 'City Power', 'February power', 'ca000000-0000-0000-0000-000000000002', 'da000000-0000-0000-0000-000000000001'),
    ('f1000000-0000-0000-0000-000000000004', '0a000000-0000-0000-0000-00000000000a', '2024-02-25', 30.00, NULL, NULL, NULL, 'Misc', NULL, NULL),
    ('f1000000-0000-0000-0000-000000000005', '0b000000-0000-0000-0000-00000000000b', '2024-01-10', 200.00, 180.00, 20.00, 'Grain Inc', 'Bulk flour', 'cb000000-0000-0000-0000-000000000001', NULL);
`

// NewSQLite opens a migrated and seeded in-memory sqlite store.
func NewSQLite(t testing.TB) *database.PostgresClient {
	t.Helper()

	client, err := database.NewPostgres(config.PostgresConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, client))
	_, err = client.DB.ExecContext(ctx, seed)
	require.NoError(t, err)
	return client
}
