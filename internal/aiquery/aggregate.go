package aiquery

import (
	"math"
	"sort"
	"strings"

	"aiquery-workers/internal/models"
	"aiquery-workers/internal/store"
)

const (
	uncategorizedKey   = "uncategorized"
	uncategorizedLabel = "Uncategorized"
)

// round2 rounds money and percentages to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round2(part / whole * 100)
}

// totals accumulates expense amounts. A missing pre-tax amount counts as the
// full amount and a missing tax as zero.
type totals struct {
	total, preTax, tax float64
	count              int
}

func (t *totals) add(e store.Expense) {
	t.total += e.Amount
	if e.PreTaxAmount != nil {
		t.preTax += *e.PreTaxAmount
	} else {
		t.preTax += e.Amount
	}
	if e.TaxAmount != nil {
		t.tax += *e.TaxAmount
	}
	t.count++
}

// BucketByMonth groups expenses into YYYY-MM buckets, ascending.
// Grand totals are the sums of the bucket totals.
func BucketByMonth(expenses []store.Expense) models.MonthlyExpensesResult {
	byMonth := map[string]*totals{}
	for _, e := range expenses {
		key := e.Date.Format("2006-01")
		if byMonth[key] == nil {
			byMonth[key] = &totals{}
		}
		byMonth[key].add(e)
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := models.MonthlyExpensesResult{Months: make([]models.MonthlyBucket, 0, len(keys))}
	for _, k := range keys {
		t := byMonth[k]
		b := models.MonthlyBucket{
			Month:            k,
			Total:            round2(t.total),
			PreTaxTotal:      round2(t.preTax),
			TaxTotal:         round2(t.tax),
			EffectiveTaxRate: percent(t.tax, t.preTax),
			Count:            t.count,
		}
		res.Months = append(res.Months, b)
		res.GrandTotal += b.Total
		res.GrandPreTaxTotal += b.PreTaxTotal
		res.GrandTaxTotal += b.TaxTotal
		res.TotalCount += b.Count
	}
	res.GrandTotal = round2(res.GrandTotal)
	res.GrandPreTaxTotal = round2(res.GrandPreTaxTotal)
	res.GrandTaxTotal = round2(res.GrandTaxTotal)
	return res
}

// BucketByCategory groups expenses by category, largest total first.
// Expenses without a category share the "uncategorized" bucket.
func BucketByCategory(expenses []store.Expense) models.CategoryExpensesResult {
	type bucket struct {
		name string
		totals
	}
	byID := map[string]*bucket{}
	grand := 0.0
	for _, e := range expenses {
		id, name := uncategorizedKey, uncategorizedLabel
		if e.CategoryID != nil && *e.CategoryID != "" {
			id = *e.CategoryID
			if e.CategoryName != nil {
				name = *e.CategoryName
			}
		}
		b := byID[id]
		if b == nil {
			b = &bucket{name: name}
			byID[id] = b
		}
		b.add(e)
		grand += e.Amount
	}

	res := models.CategoryExpensesResult{
		Categories: make([]models.CategoryBucket, 0, len(byID)),
		GrandTotal: round2(grand),
	}
	for id, b := range byID {
		res.Categories = append(res.Categories, models.CategoryBucket{
			CategoryID:     id,
			CategoryName:   b.name,
			Total:          round2(b.total),
			PreTaxTotal:    round2(b.preTax),
			TaxTotal:       round2(b.tax),
			Count:          b.count,
			PercentOfTotal: percent(b.total, grand),
		})
	}
	sort.SliceStable(res.Categories, func(i, j int) bool {
		a, b := res.Categories[i], res.Categories[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.CategoryName != b.CategoryName {
			return a.CategoryName < b.CategoryName
		}
		return a.CategoryID < b.CategoryID
	})
	return res
}

// BucketByVendor ranks vendors by total spend and keeps the first limit.
// Expenses without a vendor are left out.
func BucketByVendor(expenses []store.Expense, limit int) models.TopVendorsResult {
	byVendor := map[string]*totals{}
	for _, e := range expenses {
		if e.Vendor == nil || strings.TrimSpace(*e.Vendor) == "" {
			continue
		}
		t := byVendor[*e.Vendor]
		if t == nil {
			t = &totals{}
			byVendor[*e.Vendor] = t
		}
		t.add(e)
	}

	vendors := make([]models.VendorBucket, 0, len(byVendor))
	for v, t := range byVendor {
		vendors = append(vendors, models.VendorBucket{
			Vendor:      v,
			Total:       round2(t.total),
			PreTaxTotal: round2(t.preTax),
			TaxTotal:    round2(t.tax),
			Count:       t.count,
		})
	}
	sort.SliceStable(vendors, func(i, j int) bool {
		if vendors[i].Total != vendors[j].Total {
			return vendors[i].Total > vendors[j].Total
		}
		return vendors[i].Vendor < vendors[j].Vendor
	})
	if limit > 0 && len(vendors) > limit {
		vendors = vendors[:limit]
	}
	return models.TopVendorsResult{Vendors: vendors}
}

// PriceSpan is an item's price at the start and at the end of a period.
// A nil endpoint means no price was recorded.
type PriceSpan struct {
	ItemID   string
	ItemName string
	Unit     string
	Start    *float64
	End      *float64
}

// RankPriceChanges orders items by absolute percent change, largest first, and
// keeps the first limit. Items missing an endpoint, starting at zero or
// unchanged are dropped.
func RankPriceChanges(spans []PriceSpan, limit int) []models.PriceChangeEntry {
	type ranked struct {
		entry models.PriceChangeEntry
		pct   float64
	}
	candidates := make([]ranked, 0, len(spans))
	for _, s := range spans {
		if s.Start == nil || s.End == nil || *s.Start == 0 {
			continue
		}
		change := *s.End - *s.Start
		if change == 0 {
			continue
		}
		pct := change / *s.Start * 100
		candidates = append(candidates, ranked{
			pct: math.Abs(pct),
			entry: models.PriceChangeEntry{
				ItemID:        s.ItemID,
				ItemName:      s.ItemName,
				Unit:          s.Unit,
				StartPrice:    *s.Start,
				EndPrice:      *s.End,
				Change:        round2(change),
				PercentChange: round2(pct),
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].pct != candidates[j].pct {
			return candidates[i].pct > candidates[j].pct
		}
		if candidates[i].entry.ItemName != candidates[j].entry.ItemName {
			return candidates[i].entry.ItemName < candidates[j].entry.ItemName
		}
		return candidates[i].entry.ItemID < candidates[j].entry.ItemID
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]models.PriceChangeEntry, len(candidates))
	for i, c := range candidates {
		out[i] = c.entry
	}
	return out
}

// SummarizeAmounts computes count, total, mean and range of amounts.
// Variance here is the spread max-min, not the statistical variance.
func SummarizeAmounts(amounts []float64) models.RecurringSummary {
	if len(amounts) == 0 {
		return models.RecurringSummary{}
	}
	minV, maxV, total := amounts[0], amounts[0], 0.0
	for _, a := range amounts {
		total += a
		minV = math.Min(minV, a)
		maxV = math.Max(maxV, a)
	}
	minV, maxV = round2(minV), round2(maxV)
	return models.RecurringSummary{
		Count:    len(amounts),
		Total:    round2(total),
		Average:  round2(total / float64(len(amounts))),
		Min:      minV,
		Max:      maxV,
		Variance: round2(maxV - minV),
	}
}

// RankOrgSpending orders per-org totals by total, largest first, and adds grand totals.
func RankOrgSpending(entries []models.OrgSpendingEntry) models.CrossOrgSpendingResult {
	orgs := append([]models.OrgSpendingEntry{}, entries...)
	sort.SliceStable(orgs, func(i, j int) bool {
		if orgs[i].Total != orgs[j].Total {
			return orgs[i].Total > orgs[j].Total
		}
		if orgs[i].OrgName != orgs[j].OrgName {
			return orgs[i].OrgName < orgs[j].OrgName
		}
		return orgs[i].OrgID < orgs[j].OrgID
	})

	res := models.CrossOrgSpendingResult{Organizations: orgs}
	for _, o := range orgs {
		res.GrandTotal += o.Total
		res.GrandPreTaxTotal += o.PreTaxTotal
		res.GrandTaxTotal += o.TaxTotal
		res.TotalCount += o.Count
	}
	res.GrandTotal = round2(res.GrandTotal)
	res.GrandPreTaxTotal = round2(res.GrandPreTaxTotal)
	res.GrandTaxTotal = round2(res.GrandTaxTotal)
	return res
}

func orgSpending(org store.Organization, expenses []store.Expense) models.OrgSpendingEntry {
	var t totals
	for _, e := range expenses {
		t.add(e)
	}
	return models.OrgSpendingEntry{
		OrgID:       org.ID,
		OrgName:     org.Name,
		Total:       round2(t.total),
		PreTaxTotal: round2(t.preTax),
		TaxTotal:    round2(t.tax),
		Count:       t.count,
	}
}
