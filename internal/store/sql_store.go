package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"aiquery-workers/internal/common/database"
)

// SQLStore implements Reader over postgres or sqlite.
type SQLStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewSQLStore(client *database.PostgresClient) *SQLStore {
	return &SQLStore{db: client.DB, sb: client.Builder}
}

var _ Reader = (*SQLStore)(nil)

func (s *SQLStore) Organizations(ctx context.Context) ([]Organization, error) {
	q := s.sb.Select("id", "name").From("organizations").OrderBy("name ASC", "id ASC")
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	orgs := []Organization{}
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (s *SQLStore) ActiveItems(ctx context.Context, orgID string) ([]Item, error) {
	q := s.itemSelect().
		Where(sq.Eq{"org_id": orgID}).
		Where("is_active = TRUE").
		OrderBy("name ASC", "id ASC")
	items, err := s.items(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}
	return items, nil
}

func (s *SQLStore) SearchItems(ctx context.Context, orgID, term string, limit int) ([]Item, error) {
	q := s.itemSelect().
		Where(sq.Eq{"org_id": orgID}).
		Where("is_active = TRUE").
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, ContainsPattern(term)).
		OrderBy("name ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	items, err := s.items(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return items, nil
}

func (s *SQLStore) SearchItemsAllOrgs(ctx context.Context, term string, limit int) ([]Item, error) {
	q := s.itemSelect().
		Where("is_active = TRUE").
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, ContainsPattern(term)).
		OrderBy("org_id ASC", "name ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	items, err := s.items(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search items across orgs: %w", err)
	}
	return items, nil
}

func (s *SQLStore) LatestPrice(ctx context.Context, orgID, itemID string, asOf *time.Time) (PriceRecord, error) {
	q := s.priceSelect().
		Where(sq.Eq{"i.org_id": orgID}).
		Where(sq.Eq{"p.item_id": itemID})
	if asOf != nil {
		q = q.Where(sq.Lt{"p.effective_at": FormatDate(asOf.AddDate(0, 0, 1))})
	}
	q = q.OrderBy("p.effective_at DESC").Limit(1)

	prices, err := s.prices(ctx, q)
	if err != nil {
		return PriceRecord{}, fmt.Errorf("latest price: %w", err)
	}
	if len(prices) == 0 {
		return PriceRecord{}, ErrNotFound
	}
	return prices[0], nil
}

func (s *SQLStore) PriceHistory(ctx context.Context, orgID, itemID string, since time.Time) ([]PriceRecord, error) {
	q := s.priceSelect().
		Where(sq.Eq{"i.org_id": orgID}).
		Where(sq.Eq{"p.item_id": itemID}).
		Where(sq.GtOrEq{"p.effective_at": FormatDate(since)}).
		OrderBy("p.effective_at ASC")
	prices, err := s.prices(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	return prices, nil
}

func (s *SQLStore) Expenses(ctx context.Context, orgID string, from, to time.Time) ([]Expense, error) {
	expenses, err := s.expenses(ctx, s.expenseSelect(orgID, from, to))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *SQLStore) RecurringExpenses(ctx context.Context, orgID, templateID string, from, to time.Time) ([]Expense, error) {
	q := s.expenseSelect(orgID, from, to).Where(sq.Eq{"e.recurring_template_id": templateID})
	expenses, err := s.expenses(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return expenses, nil
}

func (s *SQLStore) RecurringTemplates(ctx context.Context, orgID string) ([]RecurringTemplate, error) {
	q := s.recurringSelect().
		Where(sq.Eq{"t.org_id": orgID}).
		Where("t.is_active = TRUE").
		OrderBy("t.name ASC", "t.id ASC")
	templates, err := s.recurring(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	return templates, nil
}

func (s *SQLStore) RecurringTemplate(ctx context.Context, orgID, templateID string) (RecurringTemplate, error) {
	q := s.recurringSelect().
		Where(sq.Eq{"t.org_id": orgID}).
		Where(sq.Eq{"t.id": templateID})
	templates, err := s.recurring(ctx, q)
	if err != nil {
		return RecurringTemplate{}, fmt.Errorf("get recurring template: %w", err)
	}
	if len(templates) == 0 {
		return RecurringTemplate{}, ErrNotFound
	}
	return templates[0], nil
}

func (s *SQLStore) itemSelect() sq.SelectBuilder {
	return s.sb.Select("id", "org_id", "name", "unit", "category").From("inventory_items")
}

func (s *SQLStore) priceSelect() sq.SelectBuilder {
	return s.sb.
		Select("p.item_id", "i.name", "i.unit", "p.price", "p.vendor", "p.effective_at").
		From("item_price_history p").
		Join("inventory_items i ON i.id = p.item_id")
}

func (s *SQLStore) expenseSelect(orgID string, from, to time.Time) sq.SelectBuilder {
	return s.sb.
		Select("e.id", "e.date", "e.amount", "e.pre_tax_amount", "e.tax_amount",
			"e.vendor", "e.description", "e.category_id", "c.name").
		From("expenses e").
		LeftJoin("expense_categories c ON c.id = e.category_id AND c.org_id = e.org_id").
		Where(sq.Eq{"e.org_id": orgID}).
		Where(sq.GtOrEq{"e.date": FormatDate(from)}).
		Where(sq.LtOrEq{"e.date": FormatDate(to)}).
		OrderBy("e.date ASC", "e.id ASC")
}

func (s *SQLStore) recurringSelect() sq.SelectBuilder {
	return s.sb.
		Select("t.id", "t.name", "t.amount", "t.frequency", "t.vendor", "c.name", "t.next_due_date").
		From("recurring_expense_templates t").
		LeftJoin("expense_categories c ON c.id = t.category_id AND c.org_id = t.org_id")
}

func (s *SQLStore) query(ctx context.Context, q sq.SelectBuilder) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.QueryContext(ctx, query, args...)
}

func (s *SQLStore) items(ctx context.Context, q sq.SelectBuilder) ([]Item, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var (
			it       Item
			category sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.OrgID, &it.Name, &it.Unit, &category); err != nil {
			return nil, err
		}
		it.Category = stringPtr(category)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLStore) prices(ctx context.Context, q sq.SelectBuilder) ([]PriceRecord, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := []PriceRecord{}
	for rows.Next() {
		var (
			p         PriceRecord
			vendor    sql.NullString
			effective sqlTime
		)
		if err := rows.Scan(&p.ItemID, &p.ItemName, &p.Unit, &p.Price, &vendor, &effective); err != nil {
			return nil, err
		}
		p.Vendor = stringPtr(vendor)
		p.EffectiveAt = effective.Time
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func (s *SQLStore) expenses(ctx context.Context, q sq.SelectBuilder) ([]Expense, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []Expense{}
	for rows.Next() {
		var (
			e                    Expense
			date                 sqlTime
			preTax, tax          sql.NullFloat64
			vendor, desc         sql.NullString
			categoryID, category sql.NullString
		)
		if err := rows.Scan(&e.ID, &date, &e.Amount, &preTax, &tax,
			&vendor, &desc, &categoryID, &category); err != nil {
			return nil, err
		}
		e.Date = date.Time
		e.PreTaxAmount = floatPtr(preTax)
		e.TaxAmount = floatPtr(tax)
		e.Vendor = stringPtr(vendor)
		e.Description = desc.String
		e.CategoryID = stringPtr(categoryID)
		e.CategoryName = stringPtr(category)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *SQLStore) recurring(ctx context.Context, q sq.SelectBuilder) ([]RecurringTemplate, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []RecurringTemplate{}
	for rows.Next() {
		var (
			t                RecurringTemplate
			vendor, category sql.NullString
			nextDue          sqlTime
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Amount, &t.Frequency, &vendor, &category, &nextDue); err != nil {
			return nil, err
		}
		t.Vendor = stringPtr(vendor)
		t.CategoryName = stringPtr(category)
		t.NextDueDate = nextDue.ptr()
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a LIKE pattern matching term anywhere, case-folded,
// with LIKE metacharacters escaped by backslash.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
