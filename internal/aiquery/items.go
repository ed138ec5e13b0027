package aiquery

import (
	"context"
	"strings"

	"aiquery-workers/internal/models"
)

func (e *Engine) searchItems(ctx context.Context, qc models.AIQueryContext, p searchItemsParams) ([]models.ItemSummary, error) {
	orgID, err := EnforceOrgScope(qc, p.OrgID)
	if err != nil {
		return nil, err
	}
	items, err := e.store.SearchItems(ctx, orgID, strings.TrimSpace(p.Query), searchItemsLimit)
	if err != nil {
		return nil, err
	}

	out := make([]models.ItemSummary, 0, len(items))
	for _, it := range items {
		if len(out) == searchItemsLimit {
			break
		}
		out = append(out, models.ItemSummary{
			ItemID:   it.ID,
			ItemName: it.Name,
			Unit:     it.Unit,
			Category: it.Category,
		})
	}
	return out, nil
}
