package aiquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	apperrors "aiquery-workers/internal/common/errors"
	"aiquery-workers/internal/common/logger"
	"aiquery-workers/internal/models"
	"aiquery-workers/internal/store"
)

const (
	defaultRankLimit = 10
	maxRankLimit     = 100
	searchItemsLimit = 20
)

// ==========================
// Template descriptions
// ==========================

type templateSpec struct {
	description string
	schema      map[string]interface{}
}

var templateSpecs = map[models.TemplateName]templateSpec{
	models.TemplateCurrentPrice: {
		description: "Latest recorded price of one inventory item.",
		schema:      objectSchema([]string{"itemId"}, orgProp, "itemId", idProp("Inventory item id")),
	},
	models.TemplatePriceAtDate: {
		description: "Price of one inventory item as of a date: the newest record not after that day.",
		schema: objectSchema([]string{"itemId", "date"}, orgProp,
			"itemId", idProp("Inventory item id"),
			"date", dateProp("Reference date")),
	},
	models.TemplatePriceHistory: {
		description: "Price records of one inventory item since a date, oldest first.",
		schema: objectSchema([]string{"itemId", "startDate"}, orgProp,
			"itemId", idProp("Inventory item id"),
			"startDate", dateProp("First day included")),
	},
	models.TemplateTopPriceChanges: {
		description: "Active items ranked by the size of their price change since a date.",
		schema: objectSchema([]string{"startDate"}, orgProp,
			"startDate", dateProp("Baseline date"),
			"limit", limitProp),
	},
	models.TemplateMonthlyExpenses: {
		description: "Expense totals per month with pre-tax, tax and effective tax rate.",
		schema:      dateRangeSchema(true),
	},
	models.TemplateExpensesByCategory: {
		description: "Expense totals per category with each category's share of the total.",
		schema:      dateRangeSchema(true),
	},
	models.TemplateTopVendors: {
		description: "Vendors ranked by total spend in a date range.",
		schema: objectSchema([]string{"startDate", "endDate"}, orgProp,
			"startDate", dateProp("First day included"),
			"endDate", dateProp("Last day included"),
			"limit", limitProp),
	},
	models.TemplateSearchItems: {
		description: "Active inventory items whose name contains the search text, at most 20.",
		schema:      objectSchema([]string{"query"}, orgProp, "query", queryProp),
	},
	models.TemplateCrossOrgItemPrices: {
		description: "Current prices of matching items across every organization. Super users only.",
		schema:      objectSchema([]string{"query"}, nil, "query", queryProp),
	},
	models.TemplateRecurringTemplates: {
		description: "Active recurring expense templates with their category.",
		schema:      objectSchema(nil, orgProp),
	},
	models.TemplateRecurringExpenseHistory: {
		description: "Expenses generated by one recurring template in a date range, with amount statistics.",
		schema: objectSchema([]string{"templateId", "startDate", "endDate"}, orgProp,
			"templateId", idProp("Recurring template id"),
			"startDate", dateProp("First day included"),
			"endDate", dateProp("Last day included")),
	},
	models.TemplateCrossOrgSpending: {
		description: "Expense totals per organization in a date range. Super users only.",
		schema:      dateRangeSchema(false),
	},
}

var (
	orgProp = map[string]interface{}{
		"type":        "string",
		"description": "Organization id; defaults to the caller's organization",
	}
	limitProp = map[string]interface{}{
		"type":        "integer",
		"minimum":     1,
		"maximum":     maxRankLimit,
		"description": fmt.Sprintf("Maximum entries returned, default %d", defaultRankLimit),
	}
	queryProp = map[string]interface{}{
		"type":        "string",
		"minLength":   1,
		"maxLength":   logger.MaxSearchTermLength,
		"description": "Case-insensitive text contained in the item name",
	}
)

func idProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "minLength": 1, "description": description}
}

func dateProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"pattern":     `^\d{4}-\d{2}-\d{2}$`,
		"description": description + " (YYYY-MM-DD)",
	}
}

// objectSchema builds an object schema from name/property pairs.
// org is added as orgId unless nil.
func objectSchema(required []string, org map[string]interface{}, pairs ...interface{}) map[string]interface{} {
	props := map[string]interface{}{}
	if org != nil {
		props["orgId"] = org
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		props[pairs[i].(string)] = pairs[i+1]
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func dateRangeSchema(withOrg bool) map[string]interface{} {
	var org map[string]interface{}
	if withOrg {
		org = orgProp
	}
	return objectSchema([]string{"startDate", "endDate"}, org,
		"startDate", dateProp("First day included"),
		"endDate", dateProp("Last day included"))
}

func compileSchemas() (map[models.TemplateName]*gojsonschema.Schema, error) {
	compiled := make(map[models.TemplateName]*gojsonschema.Schema, len(templateSpecs))
	for name, spec := range templateSpecs {
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(spec.schema))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", name, err)
		}
		compiled[name] = s
	}
	return compiled, nil
}

// ==========================
// Parameter binding
// ==========================

// executor runs one template against the caller's raw params.
type executor func(ctx context.Context, qc models.AIQueryContext, raw json.RawMessage) (interface{}, error)

type paramsValidator interface {
	validate() []string
}

// bind adapts a typed executor. Raw params are checked against the template
// schema, decoded into P, then checked by P itself.
func bind[P any, R any](schema *gojsonschema.Schema, run func(context.Context, models.AIQueryContext, P) (R, error)) executor {
	return func(ctx context.Context, qc models.AIQueryContext, raw json.RawMessage) (interface{}, error) {
		var p P
		if err := decodeParams(schema, raw, &p); err != nil {
			return nil, err
		}
		return run(ctx, qc, p)
	}
}

func decodeParams(schema *gojsonschema.Schema, raw json.RawMessage, dst interface{}) error {
	raw = normalizeRaw(raw)

	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return apperrors.NewInvalidParamsError("params must be a JSON object")
	}
	if !res.Valid() {
		problems := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			problems = append(problems, describeSchemaError(e))
		}
		return apperrors.NewInvalidParamsError(problems...)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.NewInvalidParamsError("params must be a JSON object")
	}
	if v, ok := dst.(paramsValidator); ok {
		if problems := v.validate(); len(problems) > 0 {
			return apperrors.NewInvalidParamsError(problems...)
		}
	}
	return nil
}

func normalizeRaw(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	return trimmed
}

func describeSchemaError(e gojsonschema.ResultError) string {
	desc := logger.SanitizeString(e.Description(), logger.MaxSearchTermLength)
	if field := e.Field(); field != "" && field != "(root)" {
		return field + ": " + desc
	}
	return desc
}

// requestedOrg peeks at orgId before full validation so scope is decided first.
func requestedOrg(raw json.RawMessage) string {
	var peek map[string]interface{}
	if err := json.Unmarshal(normalizeRaw(raw), &peek); err != nil {
		return ""
	}
	orgID, _ := peek["orgId"].(string)
	return orgID
}

type problems []string

func (p *problems) addf(format string, args ...interface{}) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) id(field, value string) {
	if value == "" {
		return
	}
	if _, err := uuid.Parse(value); err != nil {
		p.addf("%s must be a UUID", field)
	}
}

func (p *problems) date(field, value string, dst *time.Time) {
	t, err := time.Parse(store.DateLayout, value)
	if err != nil {
		p.addf("%s must be a valid date (YYYY-MM-DD)", field)
		return
	}
	*dst = t
}

func rankLimit(value *int) int {
	if value == nil {
		return defaultRankLimit
	}
	return *value
}

// ==========================
// Parameter types
// ==========================

type dateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`

	start, end time.Time
}

func (d *dateRange) check(p *problems) {
	before := len(*p)
	p.date("startDate", d.StartDate, &d.start)
	p.date("endDate", d.EndDate, &d.end)
	if len(*p) == before && d.start.After(d.end) {
		p.addf("startDate must not be after endDate")
	}
}

type itemParams struct {
	OrgID  string `json:"orgId"`
	ItemID string `json:"itemId"`
}

func (ip *itemParams) validate() []string {
	var p problems
	p.id("itemId", ip.ItemID)
	return p
}

type priceAtDateParams struct {
	OrgID  string `json:"orgId"`
	ItemID string `json:"itemId"`
	Date   string `json:"date"`

	date time.Time
}

func (pp *priceAtDateParams) validate() []string {
	var p problems
	p.id("itemId", pp.ItemID)
	p.date("date", pp.Date, &pp.date)
	return p
}

type priceHistoryParams struct {
	OrgID     string `json:"orgId"`
	ItemID    string `json:"itemId"`
	StartDate string `json:"startDate"`

	start time.Time
}

func (ph *priceHistoryParams) validate() []string {
	var p problems
	p.id("itemId", ph.ItemID)
	p.date("startDate", ph.StartDate, &ph.start)
	return p
}

type topPriceChangesParams struct {
	OrgID     string `json:"orgId"`
	StartDate string `json:"startDate"`
	Limit     *int   `json:"limit"`

	start time.Time
	limit int
}

func (tp *topPriceChangesParams) validate() []string {
	var p problems
	p.date("startDate", tp.StartDate, &tp.start)
	tp.limit = rankLimit(tp.Limit)
	return p
}

type orgRangeParams struct {
	OrgID string `json:"orgId"`
	dateRange
}

func (op *orgRangeParams) validate() []string {
	var p problems
	op.check(&p)
	return p
}

type topVendorsParams struct {
	OrgID string `json:"orgId"`
	Limit *int   `json:"limit"`
	dateRange

	limit int
}

func (tv *topVendorsParams) validate() []string {
	var p problems
	tv.check(&p)
	tv.limit = rankLimit(tv.Limit)
	return p
}

type searchItemsParams struct {
	OrgID string `json:"orgId"`
	Query string `json:"query"`
}

func (sp *searchItemsParams) validate() []string {
	var p problems
	if strings.TrimSpace(sp.Query) == "" {
		p.addf("query must not be blank")
	}
	return p
}

type crossOrgSearchParams struct {
	Query string `json:"query"`
}

func (cp *crossOrgSearchParams) validate() []string {
	var p problems
	if strings.TrimSpace(cp.Query) == "" {
		p.addf("query must not be blank")
	}
	return p
}

type orgParams struct {
	OrgID string `json:"orgId"`
}

type recurringHistoryParams struct {
	OrgID      string `json:"orgId"`
	TemplateID string `json:"templateId"`
	dateRange
}

func (rp *recurringHistoryParams) validate() []string {
	var p problems
	p.id("templateId", rp.TemplateID)
	rp.check(&p)
	return p
}

type crossOrgRangeParams struct {
	dateRange
}

func (cp *crossOrgRangeParams) validate() []string {
	var p problems
	cp.check(&p)
	return p
}
