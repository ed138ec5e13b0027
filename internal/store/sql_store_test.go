package store_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiquery-workers/internal/common/database"
	"aiquery-workers/internal/store"
	"aiquery-workers/internal/store/storetest"
)

func day(s string) time.Time {
	t, err := time.Parse(store.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newSQLiteStore(t *testing.T) *store.SQLStore {
	return store.NewSQLStore(storetest.NewSQLite(t))
}

func TestSQLStore_Organizations(t *testing.T) {
	s := newSQLiteStore(t)

	orgs, err := s.Organizations(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 3)
	assert.Equal(t, "Acme Bistro", orgs[0].Name)
	assert.Equal(t, "Bravo Cafe", orgs[1].Name)
	assert.Equal(t, "Corner Deli", orgs[2].Name)
}

func TestSQLStore_ActiveItems(t *testing.T) {
	s := newSQLiteStore(t)

	items, err := s.ActiveItems(context.Background(), storetest.OrgA)
	require.NoError(t, err)

	var names []string
	for _, it := range items {
		assert.Equal(t, storetest.OrgA, it.OrgID)
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Flour", "Olive Oil", "Saffron 100%", "Sugar"}, names)
}

func TestSQLStore_LatestPrice(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	t.Run("newest record", func(t *testing.T) {
		p, err := s.LatestPrice(ctx, storetest.OrgA, storetest.ItemFlourA, nil)
		require.NoError(t, err)
		assert.Equal(t, 15.0, p.Price)
		assert.Nil(t, p.Vendor)
		assert.Equal(t, "Flour", p.ItemName)
		assert.Equal(t, "kg", p.Unit)
		assert.Equal(t, "2024-03-01", store.FormatDate(p.EffectiveAt))
	})

	t.Run("as of a day includes that whole day", func(t *testing.T) {
		asOf := day("2024-02-01")
		p, err := s.LatestPrice(ctx, storetest.OrgA, storetest.ItemFlourA, &asOf)
		require.NoError(t, err)
		assert.Equal(t, 12.0, p.Price)
		require.NotNil(t, p.Vendor)
		assert.Equal(t, "Mill Co", *p.Vendor)
	})

	t.Run("before first record", func(t *testing.T) {
		asOf := day("2023-12-31")
		_, err := s.LatestPrice(ctx, storetest.OrgA, storetest.ItemFlourA, &asOf)
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("item of another org is invisible", func(t *testing.T) {
		_, err := s.LatestPrice(ctx, storetest.OrgA, storetest.ItemFlourB, nil)
		assert.True(t, store.IsNotFound(err))
	})
}

func TestSQLStore_PriceHistory(t *testing.T) {
	s := newSQLiteStore(t)

	prices, err := s.PriceHistory(context.Background(), storetest.OrgA, storetest.ItemFlourA, day("2024-02-01"))
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, 12.0, prices[0].Price)
	assert.Equal(t, 15.0, prices[1].Price)

	none, err := s.PriceHistory(context.Background(), storetest.OrgB, storetest.ItemFlourA, day("2000-01-01"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSQLStore_Expenses(t *testing.T) {
	s := newSQLiteStore(t)

	expenses, err := s.Expenses(context.Background(), storetest.OrgA, day("2024-01-20"), day("2024-02-25"))
	require.NoError(t, err)
	require.Len(t, expenses, 3)

	assert.Equal(t, "2024-01-20", store.FormatDate(expenses[0].Date))
	require.NotNil(t, expenses[0].CategoryName)
	assert.Equal(t, "Utilities", *expenses[0].CategoryName)
	require.NotNil(t, expenses[0].PreTaxAmount)
	assert.Equal(t, 50.0, *expenses[0].PreTaxAmount)

	last := expenses[2]
	assert.Equal(t, "Misc", last.Description)
	assert.Nil(t, last.Vendor)
	assert.Nil(t, last.CategoryID)
	assert.Nil(t, last.PreTaxAmount)
	assert.Nil(t, last.TaxAmount)
}

func TestSQLStore_SearchItems(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	items, err := s.SearchItems(ctx, storetest.OrgA, "FLO", 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, storetest.ItemFlourA, items[0].ID)

	literal, err := s.SearchItems(ctx, storetest.OrgA, "100%", 20)
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "Saffron 100%", literal[0].Name)

	wildcard, err := s.SearchItems(ctx, storetest.OrgA, "_", 20)
	require.NoError(t, err)
	assert.Empty(t, wildcard)

	all, err := s.SearchItemsAllOrgs(ctx, "flour", 20)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, storetest.OrgA, all[0].OrgID)
	assert.Equal(t, storetest.OrgB, all[1].OrgID)

	capped, err := s.SearchItemsAllOrgs(ctx, "flour", 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestSQLStore_Recurring(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	templates, err := s.RecurringTemplates(ctx, storetest.OrgA)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "Electricity", templates[0].Name)
	require.NotNil(t, templates[0].NextDueDate)
	assert.Equal(t, "2024-03-20", store.FormatDate(*templates[0].NextDueDate))

	inactive, err := s.RecurringTemplate(ctx, storetest.OrgA, storetest.RecurringOldA)
	require.NoError(t, err)
	assert.Nil(t, inactive.CategoryName)
	assert.Nil(t, inactive.NextDueDate)

	_, err = s.RecurringTemplate(ctx, storetest.OrgA, storetest.RecurringRentB)
	assert.True(t, store.IsNotFound(err))

	history, err := s.RecurringExpenses(ctx, storetest.OrgA, storetest.RecurringElecA, day("2024-01-01"), day("2024-12-31"))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 55.0, history[0].Amount)
	assert.Equal(t, 60.5, history[1].Amount)
}

func TestSQLStore_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := store.NewSQLStore(database.NewFromDB(db, "postgres"))

	rows := sqlmock.NewRows([]string{"item_id", "name", "unit", "price", "vendor", "effective_at"}).
		AddRow(storetest.ItemFlourA, "Flour", "kg", 12.0, "Mill Co", time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT p.item_id, i.name, i.unit, p.price, p.vendor, p.effective_at FROM item_price_history p " +
			"JOIN inventory_items i ON i.id = p.item_id WHERE i.org_id = $1 AND p.item_id = $2 " +
			"AND p.effective_at < $3 ORDER BY p.effective_at DESC LIMIT 1")).
		WithArgs(storetest.OrgA, storetest.ItemFlourA, "2024-02-02").
		WillReturnRows(rows)

	asOf := day("2024-02-01")
	p, err := s.LatestPrice(context.Background(), storetest.OrgA, storetest.ItemFlourA, &asOf)
	require.NoError(t, err)
	assert.Equal(t, 12.0, p.Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := store.NewSQLStore(database.NewFromDB(db, "postgres"))
	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT .* FROM expenses e").WillReturnError(boom)

	_, err = s.Expenses(context.Background(), storetest.OrgA, day("2024-01-01"), day("2024-01-31"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, store.IsNotFound(err))
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%flour%", store.ContainsPattern("FLOUR"))
	assert.Equal(t, `%100\%%`, store.ContainsPattern("100%"))
	assert.Equal(t, `%a\_b%`, store.ContainsPattern("a_b"))
	assert.Equal(t, `%c:\\d%`, store.ContainsPattern(`c:\d`))
}
