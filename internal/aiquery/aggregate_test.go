package aiquery

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiquery-workers/internal/store"
)

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string { return &v }

func expense(date string, amount float64, preTax, tax *float64, vendor, categoryID, categoryName *string) store.Expense {
	d, err := time.Parse(store.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return store.Expense{
		Date:         d,
		Amount:       amount,
		PreTaxAmount: preTax,
		TaxAmount:    tax,
		Vendor:       vendor,
		CategoryID:   categoryID,
		CategoryName: categoryName,
	}
}

func TestBucketByMonth(t *testing.T) {
	res := BucketByMonth([]store.Expense{
		expense("2024-02-03", 50, fptr(50), fptr(0), nil, nil, nil),
		expense("2024-01-10", 108, fptr(100), fptr(8), nil, nil, nil),
		expense("2024-01-20", 20, nil, nil, nil, nil, nil),
		expense("2024-03-01", 0, fptr(0), fptr(0), nil, nil, nil),
	})

	require.Len(t, res.Months, 3)
	assert.Equal(t, "2024-01", res.Months[0].Month)
	assert.Equal(t, "2024-02", res.Months[1].Month)
	assert.Equal(t, "2024-03", res.Months[2].Month)

	jan := res.Months[0]
	assert.Equal(t, 128.0, jan.Total)
	assert.Equal(t, 120.0, jan.PreTaxTotal, "missing pre-tax falls back to the total")
	assert.Equal(t, 8.0, jan.TaxTotal)
	assert.Equal(t, 6.67, jan.EffectiveTaxRate)
	assert.Equal(t, 2, jan.Count)

	assert.Equal(t, 0.0, res.Months[2].EffectiveTaxRate, "zero pre-tax must not divide")

	sum := 0.0
	for _, m := range res.Months {
		sum += m.Total
	}
	assert.InDelta(t, sum, res.GrandTotal, 1e-9)
	assert.Equal(t, 4, res.TotalCount)
}

func TestBucketByMonth_Empty(t *testing.T) {
	res := BucketByMonth(nil)
	assert.NotNil(t, res.Months)
	assert.Empty(t, res.Months)
	assert.Zero(t, res.GrandTotal)
}

func TestBucketByCategory(t *testing.T) {
	res := BucketByCategory([]store.Expense{
		expense("2024-01-01", 100, fptr(91.75), fptr(8.25), nil, sptr("cat-food"), sptr("Food")),
		expense("2024-01-02", 50, nil, fptr(0), nil, nil, nil),
	})

	assert.Equal(t, 150.0, res.GrandTotal)
	require.Len(t, res.Categories, 2)

	food := res.Categories[0]
	assert.Equal(t, "Food", food.CategoryName)
	assert.Equal(t, 100.0, food.Total)
	assert.InDelta(t, 66.7, food.PercentOfTotal, 0.05)

	other := res.Categories[1]
	assert.Equal(t, "uncategorized", other.CategoryID)
	assert.Equal(t, "Uncategorized", other.CategoryName)
	assert.Equal(t, 50.0, other.Total)
	assert.InDelta(t, 33.3, other.PercentOfTotal, 0.05)
}

func TestBucketByCategory_ZeroTotal(t *testing.T) {
	res := BucketByCategory([]store.Expense{
		expense("2024-01-01", 0, nil, nil, nil, sptr("c1"), sptr("Free")),
	})
	require.Len(t, res.Categories, 1)
	assert.Equal(t, 0.0, res.Categories[0].PercentOfTotal)
}

func TestBucketByVendor(t *testing.T) {
	expenses := []store.Expense{
		expense("2024-01-01", 10, nil, nil, sptr("Small Co"), nil, nil),
		expense("2024-01-02", 70, nil, nil, sptr("Big Co"), nil, nil),
		expense("2024-01-03", 30, nil, nil, sptr("Big Co"), nil, nil),
		expense("2024-01-04", 500, nil, nil, nil, nil, nil),
		expense("2024-01-05", 400, nil, nil, sptr(""), nil, nil),
		expense("2024-01-06", 40, nil, nil, sptr("Mid Co"), nil, nil),
	}

	res := BucketByVendor(expenses, 10)
	require.Len(t, res.Vendors, 3)
	assert.Equal(t, "Big Co", res.Vendors[0].Vendor)
	assert.Equal(t, 100.0, res.Vendors[0].Total)
	assert.Equal(t, 2, res.Vendors[0].Count)
	assert.Equal(t, "Mid Co", res.Vendors[1].Vendor)
	assert.Equal(t, "Small Co", res.Vendors[2].Vendor)

	top := BucketByVendor(expenses, 1)
	require.Len(t, top.Vendors, 1)
	assert.Equal(t, "Big Co", top.Vendors[0].Vendor)
}

func TestRankPriceChanges(t *testing.T) {
	t.Run("unchanged items are dropped", func(t *testing.T) {
		got := RankPriceChanges([]PriceSpan{
			{ItemID: "a", ItemName: "A", Start: fptr(10), End: fptr(12)},
			{ItemID: "b", ItemName: "B", Start: fptr(5), End: fptr(5)},
		}, 10)
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].ItemID)
		assert.Equal(t, 20.0, got[0].PercentChange)
		assert.Equal(t, 2.0, got[0].Change)
	})

	t.Run("missing endpoints and zero start are dropped", func(t *testing.T) {
		got := RankPriceChanges([]PriceSpan{
			{ItemID: "a", ItemName: "A", End: fptr(12)},
			{ItemID: "b", ItemName: "B", Start: fptr(5)},
			{ItemID: "c", ItemName: "C", Start: fptr(0), End: fptr(3)},
		}, 10)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("ordered by absolute percent and limited", func(t *testing.T) {
		spans := []PriceSpan{
			{ItemID: "1", ItemName: "Up10", Start: fptr(100), End: fptr(110)},
			{ItemID: "2", ItemName: "Down50", Start: fptr(10), End: fptr(5)},
			{ItemID: "3", ItemName: "Up25", Start: fptr(4), End: fptr(5)},
			{ItemID: "4", ItemName: "Also10", Start: fptr(10), End: fptr(9)},
		}
		got := RankPriceChanges(spans, 3)
		require.Len(t, got, 3)
		assert.Equal(t, "Down50", got[0].ItemName)
		assert.Equal(t, -50.0, got[0].PercentChange)
		assert.Equal(t, "Up25", got[1].ItemName)
		assert.Equal(t, "Also10", got[2].ItemName, "ties break by item name")

		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, math.Abs(got[i-1].PercentChange), math.Abs(got[i].PercentChange))
		}
		for _, e := range got {
			assert.NotEqual(t, e.StartPrice, e.EndPrice)
		}
	})
}

func TestSummarizeAmounts(t *testing.T) {
	got := SummarizeAmounts([]float64{100, 120, 110})
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, 330.0, got.Total)
	assert.Equal(t, 110.0, got.Average)
	assert.Equal(t, 100.0, got.Min)
	assert.Equal(t, 120.0, got.Max)
	assert.Equal(t, 20.0, got.Variance)
	assert.Equal(t, got.Max-got.Min, got.Variance)

	empty := SummarizeAmounts(nil)
	assert.Zero(t, empty.Count)
	assert.Zero(t, empty.Average)
	assert.Zero(t, empty.Variance)
}

func TestRankOrgSpending(t *testing.T) {
	res := RankOrgSpending(nil)
	assert.NotNil(t, res.Organizations)
	assert.Zero(t, res.GrandTotal)
}
