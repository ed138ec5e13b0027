package aiquery

import (
	"context"

	"aiquery-workers/internal/models"
)

func (e *Engine) monthlyExpenses(ctx context.Context, qc models.AIQueryContext, p orgRangeParams) (models.MonthlyExpensesResult, error) {
	orgID, err := EnforceOrgScope(qc, p.OrgID)
	if err != nil {
		return models.MonthlyExpensesResult{}, err
	}
	expenses, err := e.store.Expenses(ctx, orgID, p.start, p.end)
	if err != nil {
		return models.MonthlyExpensesResult{}, err
	}
	return BucketByMonth(expenses), nil
}

func (e *Engine) expensesByCategory(ctx context.Context, qc models.AIQueryContext, p orgRangeParams) (models.CategoryExpensesResult, error) {
	orgID, err := EnforceOrgScope(qc, p.OrgID)
	if err != nil {
		return models.CategoryExpensesResult{}, err
	}
	expenses, err := e.store.Expenses(ctx, orgID, p.start, p.end)
	if err != nil {
		return models.CategoryExpensesResult{}, err
	}
	return BucketByCategory(expenses), nil
}

func (e *Engine) topVendors(ctx context.Context, qc models.AIQueryContext, p topVendorsParams) (models.TopVendorsResult, error) {
	orgID, err := EnforceOrgScope(qc, p.OrgID)
	if err != nil {
		return models.TopVendorsResult{}, err
	}
	expenses, err := e.store.Expenses(ctx, orgID, p.start, p.end)
	if err != nil {
		return models.TopVendorsResult{}, err
	}
	return BucketByVendor(expenses, p.limit), nil
}
