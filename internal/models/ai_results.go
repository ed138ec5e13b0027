package models

// QueryResult is the uniform envelope returned for every template call.
// Exactly one of Data and Error is set.
type QueryResult struct {
	Data  interface{} `json:"data"`
	Error *string     `json:"error"`
}

func Success(data interface{}) QueryResult {
	return QueryResult{Data: data}
}

func Failure(message string) QueryResult {
	return QueryResult{Error: &message}
}

func (r QueryResult) OK() bool {
	return r.Error == nil
}

// ErrorMessage returns the error text, or "" on success.
func (r QueryResult) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// --- Prices ---

type ItemPrice struct {
	ItemID      string  `json:"itemId"`
	ItemName    string  `json:"itemName"`
	Unit        string  `json:"unit"`
	Price       float64 `json:"price"`
	Vendor      *string `json:"vendor"`
	EffectiveAt string  `json:"effectiveAt"`
}

type PricePoint struct {
	Price       float64 `json:"price"`
	Vendor      *string `json:"vendor"`
	EffectiveAt string  `json:"effectiveAt"`
}

type PriceChangeEntry struct {
	ItemID        string  `json:"itemId"`
	ItemName      string  `json:"itemName"`
	Unit          string  `json:"unit"`
	StartPrice    float64 `json:"startPrice"`
	EndPrice      float64 `json:"endPrice"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percentChange"`
}

type ItemSummary struct {
	ItemID   string  `json:"itemId"`
	ItemName string  `json:"itemName"`
	Unit     string  `json:"unit"`
	Category *string `json:"category"`
}

type CrossOrgEntry struct {
	OrgID        string  `json:"orgId"`
	OrgName      string  `json:"orgName"`
	ItemID       string  `json:"itemId"`
	ItemName     string  `json:"itemName"`
	CurrentPrice float64 `json:"currentPrice"`
	Vendor       *string `json:"vendor"`
	EffectiveAt  string  `json:"effectiveAt"`
}

// --- Expenses ---

type MonthlyBucket struct {
	Month            string  `json:"month"`
	Total            float64 `json:"total"`
	PreTaxTotal      float64 `json:"preTaxTotal"`
	TaxTotal         float64 `json:"taxTotal"`
	EffectiveTaxRate float64 `json:"effectiveTaxRate"`
	Count            int     `json:"count"`
}

type MonthlyExpensesResult struct {
	Months           []MonthlyBucket `json:"months"`
	GrandTotal       float64         `json:"grandTotal"`
	GrandPreTaxTotal float64         `json:"grandPreTaxTotal"`
	GrandTaxTotal    float64         `json:"grandTaxTotal"`
	TotalCount       int             `json:"totalCount"`
}

type CategoryBucket struct {
	CategoryID     string  `json:"categoryId"`
	CategoryName   string  `json:"categoryName"`
	Total          float64 `json:"total"`
	PreTaxTotal    float64 `json:"preTaxTotal"`
	TaxTotal       float64 `json:"taxTotal"`
	Count          int     `json:"count"`
	PercentOfTotal float64 `json:"percentOfTotal"`
}

type CategoryExpensesResult struct {
	Categories []CategoryBucket `json:"categories"`
	GrandTotal float64          `json:"grandTotal"`
}

type VendorBucket struct {
	Vendor      string  `json:"vendor"`
	Total       float64 `json:"total"`
	PreTaxTotal float64 `json:"preTaxTotal"`
	TaxTotal    float64 `json:"taxTotal"`
	Count       int     `json:"count"`
}

type TopVendorsResult struct {
	Vendors []VendorBucket `json:"vendors"`
}

// --- Recurring ---

type RecurringTemplateSummary struct {
	TemplateID   string  `json:"templateId"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Frequency    string  `json:"frequency"`
	Vendor       *string `json:"vendor"`
	CategoryName string  `json:"categoryName"`
	NextDueDate  *string `json:"nextDueDate"`
}

type RecurringExpenseEntry struct {
	ExpenseID   string  `json:"expenseId"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type RecurringSummary struct {
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
	Average  float64 `json:"average"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Variance float64 `json:"variance"`
}

type RecurringHistoryResult struct {
	Template RecurringTemplateSummary `json:"template"`
	Expenses []RecurringExpenseEntry  `json:"expenses"`
	Summary  RecurringSummary         `json:"summary"`
}

// --- Cross-org spending ---

type OrgSpendingEntry struct {
	OrgID       string  `json:"orgId"`
	OrgName     string  `json:"orgName"`
	Total       float64 `json:"total"`
	PreTaxTotal float64 `json:"preTaxTotal"`
	TaxTotal    float64 `json:"taxTotal"`
	Count       int     `json:"count"`
}

type CrossOrgSpendingResult struct {
	Organizations    []OrgSpendingEntry `json:"organizations"`
	GrandTotal       float64            `json:"grandTotal"`
	GrandPreTaxTotal float64            `json:"grandPreTaxTotal"`
	GrandTaxTotal    float64            `json:"grandTaxTotal"`
	TotalCount       int                `json:"totalCount"`
}
