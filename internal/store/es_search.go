package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// itemDocument is the shape of an inventory item in the search index.
type itemDocument struct {
	ID       string  `json:"id"`
	OrgID    string  `json:"orgId"`
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Category *string `json:"category"`
	IsActive bool    `json:"isActive"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source itemDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ElasticsearchSearcher serves item name search from an index kept in sync
// with inventory_items.
type ElasticsearchSearcher struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSearcher(client *elasticsearch.Client, index string) *ElasticsearchSearcher {
	return &ElasticsearchSearcher{client: client, index: index}
}

var _ ItemSearcher = (*ElasticsearchSearcher)(nil)

func (s *ElasticsearchSearcher) SearchItems(ctx context.Context, orgID, term string, limit int) ([]Item, error) {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"orgId": orgID}},
	}
	return s.search(ctx, buildItemSearchQuery(term, filters, limit))
}

func (s *ElasticsearchSearcher) SearchItemsAllOrgs(ctx context.Context, term string, limit int) ([]Item, error) {
	return s.search(ctx, buildItemSearchQuery(term, nil, limit))
}

func buildItemSearchQuery(term string, filters []interface{}, limit int) map[string]interface{} {
	filterClauses := append([]interface{}{
		map[string]interface{}{"term": map[string]interface{}{"isActive": true}},
	}, filters...)

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"wildcard": map[string]interface{}{
							"name.keyword": map[string]interface{}{
								"value":            "*" + wildcardEscaper.Replace(term) + "*",
								"case_insensitive": true,
							},
						},
					},
				},
				"filter": filterClauses,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"orgId": "asc"},
			map[string]interface{}{"name.keyword": "asc"},
		},
	}
	if limit > 0 {
		body["size"] = limit
	}
	return body
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func (s *ElasticsearchSearcher) search(ctx context.Context, query map[string]interface{}) ([]Item, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode item search: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("item search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("item search failed: %s", res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode item search: %w", err)
	}

	items := make([]Item, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		doc := hit.Source
		items = append(items, Item{
			ID:       doc.ID,
			OrgID:    doc.OrgID,
			Name:     doc.Name,
			Unit:     doc.Unit,
			Category: doc.Category,
		})
	}
	return items, nil
}

// SearchingReader overrides the item search of a Reader with another ItemSearcher.
type SearchingReader struct {
	Reader
	Searcher ItemSearcher
}

func (r SearchingReader) SearchItems(ctx context.Context, orgID, term string, limit int) ([]Item, error) {
	return r.Searcher.SearchItems(ctx, orgID, term, limit)
}

func (r SearchingReader) SearchItemsAllOrgs(ctx context.Context, term string, limit int) ([]Item, error) {
	return r.Searcher.SearchItemsAllOrgs(ctx, term, limit)
}
