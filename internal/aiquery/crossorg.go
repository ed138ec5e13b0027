package aiquery

import (
	"context"
	"strings"

	"aiquery-workers/internal/models"
	"aiquery-workers/internal/store"
)

// crossOrgItemPrices searches every org's active items and attaches each match's
// latest price. Matches without a price are dropped; order follows the search.
func (e *Engine) crossOrgItemPrices(ctx context.Context, qc models.AIQueryContext, p crossOrgSearchParams) ([]models.CrossOrgEntry, error) {
	if err := RequireCrossOrg(qc); err != nil {
		return nil, err
	}
	if err := e.allowCrossOrg(ctx, qc, models.TemplateCrossOrgItemPrices); err != nil {
		return nil, err
	}

	orgNames, err := e.orgNames(ctx)
	if err != nil {
		return nil, err
	}
	items, err := e.store.SearchItemsAllOrgs(ctx, strings.TrimSpace(p.Query), e.crossOrgSearchLimit)
	if err != nil {
		return nil, err
	}

	found := make([]*models.CrossOrgEntry, len(items))
	err = e.fanOut(ctx, models.TemplateCrossOrgItemPrices, len(items), func(ctx context.Context, i int) error {
		it := items[i]
		rec, err := e.store.LatestPrice(ctx, it.OrgID, it.ID, nil)
		if store.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		found[i] = &models.CrossOrgEntry{
			OrgID:        it.OrgID,
			OrgName:      orgNames[it.OrgID],
			ItemID:       it.ID,
			ItemName:     it.Name,
			CurrentPrice: rec.Price,
			Vendor:       rec.Vendor,
			EffectiveAt:  store.FormatDate(rec.EffectiveAt),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.CrossOrgEntry, 0, len(found))
	for _, f := range found {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out, nil
}

// crossOrgSpending totals each organization's expenses in range, one read per org.
func (e *Engine) crossOrgSpending(ctx context.Context, qc models.AIQueryContext, p crossOrgRangeParams) (models.CrossOrgSpendingResult, error) {
	if err := RequireCrossOrg(qc); err != nil {
		return models.CrossOrgSpendingResult{}, err
	}
	if err := e.allowCrossOrg(ctx, qc, models.TemplateCrossOrgSpending); err != nil {
		return models.CrossOrgSpendingResult{}, err
	}

	orgs, err := e.store.Organizations(ctx)
	if err != nil {
		return models.CrossOrgSpendingResult{}, err
	}

	entries := make([]models.OrgSpendingEntry, len(orgs))
	err = e.fanOut(ctx, models.TemplateCrossOrgSpending, len(orgs), func(ctx context.Context, i int) error {
		expenses, err := e.store.Expenses(ctx, orgs[i].ID, p.start, p.end)
		if err != nil {
			return err
		}
		entries[i] = orgSpending(orgs[i], expenses)
		return nil
	})
	if err != nil {
		return models.CrossOrgSpendingResult{}, err
	}
	return RankOrgSpending(entries), nil
}

func (e *Engine) orgNames(ctx context.Context) (map[string]string, error) {
	orgs, err := e.store.Organizations(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(orgs))
	for _, o := range orgs {
		names[o.ID] = o.Name
	}
	return names, nil
}
