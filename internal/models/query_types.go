// internal/models/query_types.go
package models

// TemplateName identifies one of the pre-approved read-only query templates.
// The set is closed: nothing outside this file can add a template.
type TemplateName string

const (
	TemplateCurrentPrice            TemplateName = "current_price"
	TemplatePriceAtDate             TemplateName = "price_at_date"
	TemplatePriceHistory            TemplateName = "price_history"
	TemplateTopPriceChanges         TemplateName = "top_price_changes"
	TemplateMonthlyExpenses         TemplateName = "monthly_expenses"
	TemplateExpensesByCategory      TemplateName = "expenses_by_category"
	TemplateTopVendors              TemplateName = "top_vendors"
	TemplateSearchItems             TemplateName = "search_items"
	TemplateCrossOrgItemPrices      TemplateName = "cross_org_item_prices"
	TemplateRecurringTemplates      TemplateName = "recurring_templates"
	TemplateRecurringExpenseHistory TemplateName = "recurring_expense_history"
	TemplateCrossOrgSpending        TemplateName = "cross_org_spending"
)

var orgScopedTemplates = []TemplateName{
	TemplateCurrentPrice,
	TemplatePriceAtDate,
	TemplatePriceHistory,
	TemplateTopPriceChanges,
	TemplateMonthlyExpenses,
	TemplateExpensesByCategory,
	TemplateTopVendors,
	TemplateSearchItems,
	TemplateRecurringTemplates,
	TemplateRecurringExpenseHistory,
}

var crossOrgTemplates = []TemplateName{
	TemplateCrossOrgItemPrices,
	TemplateCrossOrgSpending,
}

// OrgScopedTemplateNames returns the templates that operate on a single organization.
func OrgScopedTemplateNames() []TemplateName {
	return append([]TemplateName(nil), orgScopedTemplates...)
}

// CrossOrgTemplateNames returns the templates that span every organization.
func CrossOrgTemplateNames() []TemplateName {
	return append([]TemplateName(nil), crossOrgTemplates...)
}

// AllTemplateNames returns every template, org-scoped first.
func AllTemplateNames() []TemplateName {
	all := make([]TemplateName, 0, len(orgScopedTemplates)+len(crossOrgTemplates))
	all = append(all, orgScopedTemplates...)
	return append(all, crossOrgTemplates...)
}

func (t TemplateName) IsCrossOrg() bool {
	for _, c := range crossOrgTemplates {
		if c == t {
			return true
		}
	}
	return false
}

func (t TemplateName) Valid() bool {
	for _, n := range AllTemplateNames() {
		if n == t {
			return true
		}
	}
	return false
}

func (t TemplateName) String() string {
	return string(t)
}
