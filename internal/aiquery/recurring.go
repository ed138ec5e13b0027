package aiquery

import (
	"context"

	"aiquery-workers/internal/models"
	"aiquery-workers/internal/store"
)

const msgRecurringNotFound = "Recurring template not found"

func (e *Engine) recurringTemplates(ctx context.Context, qc models.AIQueryContext, p orgParams) ([]models.RecurringTemplateSummary, error) {
	orgID, err := EnforceOrgScope(qc, p.OrgID)
	if err != nil {
		return nil, err
	}
	templates, err := e.store.RecurringTemplates(ctx, orgID)
	if err != nil {
		return nil, err
	}

	out := make([]models.RecurringTemplateSummary, 0, len(templates))
	for _, t := range templates {
		out = append(out, recurringSummary(t))
	}
	return out, nil
}

func (e *Engine) recurringExpenseHistory(ctx context.Context, qc models.AIQueryContext, p recurringHistoryParams) (models.RecurringHistoryResult, error) {
	orgID, err := EnforceOrgScope(qc, p.OrgID)
	if err != nil {
		return models.RecurringHistoryResult{}, err
	}
	tmpl, err := e.store.RecurringTemplate(ctx, orgID, p.TemplateID)
	if err != nil {
		return models.RecurringHistoryResult{}, notFoundOr(err, msgRecurringNotFound)
	}
	expenses, err := e.store.RecurringExpenses(ctx, orgID, p.TemplateID, p.start, p.end)
	if err != nil {
		return models.RecurringHistoryResult{}, err
	}

	entries := make([]models.RecurringExpenseEntry, 0, len(expenses))
	amounts := make([]float64, 0, len(expenses))
	for _, x := range expenses {
		entries = append(entries, models.RecurringExpenseEntry{
			ExpenseID:   x.ID,
			Date:        store.FormatDate(x.Date),
			Amount:      x.Amount,
			Description: x.Description,
		})
		amounts = append(amounts, x.Amount)
	}

	return models.RecurringHistoryResult{
		Template: recurringSummary(tmpl),
		Expenses: entries,
		Summary:  SummarizeAmounts(amounts),
	}, nil
}

func recurringSummary(t store.RecurringTemplate) models.RecurringTemplateSummary {
	s := models.RecurringTemplateSummary{
		TemplateID:   t.ID,
		Name:         t.Name,
		Amount:       t.Amount,
		Frequency:    t.Frequency,
		Vendor:       t.Vendor,
		CategoryName: uncategorizedLabel,
	}
	if t.CategoryName != nil {
		s.CategoryName = *t.CategoryName
	}
	if t.NextDueDate != nil {
		d := store.FormatDate(*t.NextDueDate)
		s.NextDueDate = &d
	}
	return s
}
