package aiquery

import (
	"context"

	"aiquery-workers/internal/models"
	"aiquery-workers/internal/store"
)

const msgNoPrice = "No price found for this item"

func (e *Engine) currentPrice(ctx context.Context, qc models.AIQueryContext, p itemParams) (models.ItemPrice, error) {
	orgID, err := EnforceOrgScope(qc, p.OrgID)
	if err != nil {
		return models.ItemPrice{}, err
	}
	rec, err := e.store.LatestPrice(ctx, orgID, p.ItemID, nil)
	if err != nil {
		return models.ItemPrice{}, notFoundOr(err, msgNoPrice)
	}
	return itemPrice(rec), nil
}

func (e *Engine) priceAtDate(ctx context.Context, qc models.AIQueryContext, p priceAtDateParams) (models.ItemPrice, error) {
	orgID, err := EnforceOrgScope(qc, p.OrgID)
	if err != nil {
		return models.ItemPrice{}, err
	}
	rec, err := e.store.LatestPrice(ctx, orgID, p.ItemID, &p.date)
	if err != nil {
		return models.ItemPrice{}, notFoundOr(err, msgNoPrice)
	}
	return itemPrice(rec), nil
}

func (e *Engine) priceHistory(ctx context.Context, qc models.AIQueryContext, p priceHistoryParams) ([]models.PricePoint, error) {
	orgID, err := EnforceOrgScope(qc, p.OrgID)
	if err != nil {
		return nil, err
	}
	records, err := e.store.PriceHistory(ctx, orgID, p.ItemID, p.start)
	if err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(records))
	for _, r := range records {
		points = append(points, models.PricePoint{
			Price:       r.Price,
			Vendor:      r.Vendor,
			EffectiveAt: store.FormatDate(r.EffectiveAt),
		})
	}
	return points, nil
}

// topPriceChanges reads two prices per active item, concurrently, and ranks the changes.
func (e *Engine) topPriceChanges(ctx context.Context, qc models.AIQueryContext, p topPriceChangesParams) ([]models.PriceChangeEntry, error) {
	orgID, err := EnforceOrgScope(qc, p.OrgID)
	if err != nil {
		return nil, err
	}
	items, err := e.store.ActiveItems(ctx, orgID)
	if err != nil {
		return nil, err
	}

	spans := make([]PriceSpan, len(items))
	err = e.fanOut(ctx, models.TemplateTopPriceChanges, len(items), func(ctx context.Context, i int) error {
		it := items[i]
		span := PriceSpan{ItemID: it.ID, ItemName: it.Name, Unit: it.Unit}

		start, err := e.store.LatestPrice(ctx, orgID, it.ID, &p.start)
		switch {
		case err == nil:
			span.Start = &start.Price
		case !store.IsNotFound(err):
			return err
		}

		end, err := e.store.LatestPrice(ctx, orgID, it.ID, nil)
		switch {
		case err == nil:
			span.End = &end.Price
		case !store.IsNotFound(err):
			return err
		}

		spans[i] = span
		return nil
	})
	if err != nil {
		return nil, err
	}
	return RankPriceChanges(spans, p.limit), nil
}

func itemPrice(r store.PriceRecord) models.ItemPrice {
	return models.ItemPrice{
		ItemID:      r.ItemID,
		ItemName:    r.ItemName,
		Unit:        r.Unit,
		Price:       r.Price,
		Vendor:      r.Vendor,
		EffectiveAt: store.FormatDate(r.EffectiveAt),
	}
}
