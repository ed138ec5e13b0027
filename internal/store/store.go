// Package store is the read-only access layer over the tenant-partitioned tables.
// Every org-scoped read filters by org_id in SQL; callers still check permissions first.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Organization struct {
	ID   string
	Name string
}

type Item struct {
	ID       string
	OrgID    string
	Name     string
	Unit     string
	Category *string
}

type PriceRecord struct {
	ItemID      string
	ItemName    string
	Unit        string
	Price       float64
	Vendor      *string
	EffectiveAt time.Time
}

type Expense struct {
	ID           string
	Date         time.Time
	Amount       float64
	PreTaxAmount *float64
	TaxAmount    *float64
	Vendor       *string
	Description  string
	CategoryID   *string
	CategoryName *string
}

type RecurringTemplate struct {
	ID           string
	Name         string
	Amount       float64
	Frequency    string
	Vendor       *string
	CategoryName *string
	NextDueDate  *time.Time
}

// ItemSearcher finds active items by case-insensitive substring of their name.
type ItemSearcher interface {
	SearchItems(ctx context.Context, orgID, term string, limit int) ([]Item, error)
	SearchItemsAllOrgs(ctx context.Context, term string, limit int) ([]Item, error)
}

// Reader is the read contract the query engine depends on.
type Reader interface {
	ItemSearcher

	Organizations(ctx context.Context) ([]Organization, error)
	ActiveItems(ctx context.Context, orgID string) ([]Item, error)

	// LatestPrice returns the newest price of an item in orgID. With asOf set, only
	// records effective on or before that day count. ErrNotFound when none match.
	LatestPrice(ctx context.Context, orgID, itemID string, asOf *time.Time) (PriceRecord, error)
	// PriceHistory returns prices effective on or after since, oldest first.
	PriceHistory(ctx context.Context, orgID, itemID string, since time.Time) ([]PriceRecord, error)

	// Expenses returns expenses dated within [from, to], oldest first.
	Expenses(ctx context.Context, orgID string, from, to time.Time) ([]Expense, error)

	RecurringTemplates(ctx context.Context, orgID string) ([]RecurringTemplate, error)
	RecurringTemplate(ctx context.Context, orgID, templateID string) (RecurringTemplate, error)
	RecurringExpenses(ctx context.Context, orgID, templateID string, from, to time.Time) ([]Expense, error)
}

const DateLayout = "2006-01-02"

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
