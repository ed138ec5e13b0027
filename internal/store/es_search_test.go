package store_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiquery-workers/internal/store"
	"aiquery-workers/internal/store/storetest"
)

func newSearchServer(t *testing.T, status int, response string, captured *map[string]interface{}) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil && r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticsearchSearcher_SearchItems(t *testing.T) {
	var body map[string]interface{}
	client := newSearchServer(t, http.StatusOK, `{
		"hits": {"hits": [
			{"_source": {"id": "a1000000-0000-0000-0000-000000000001", "orgId": "0a000000-0000-0000-0000-00000000000a",
			             "name": "Flour", "unit": "kg", "category": "Baking", "isActive": true}}
		]}
	}`, &body)

	s := store.NewElasticsearchSearcher(client, "inventory-items")
	items, err := s.SearchItems(context.Background(), storetest.OrgA, "fl*", 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, storetest.ItemFlourA, items[0].ID)
	assert.Equal(t, storetest.OrgA, items[0].OrgID)
	require.NotNil(t, items[0].Category)
	assert.Equal(t, "Baking", *items[0].Category)

	assert.EqualValues(t, 20, body["size"])
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filters := boolQuery["filter"].([]interface{})
	require.Len(t, filters, 2)
	assert.Equal(t, storetest.OrgA, filters[1].(map[string]interface{})["term"].(map[string]interface{})["orgId"])

	wildcard := boolQuery["must"].([]interface{})[0].(map[string]interface{})["wildcard"].(map[string]interface{})
	name := wildcard["name.keyword"].(map[string]interface{})
	assert.Equal(t, `*fl\**`, name["value"])
	assert.Equal(t, true, name["case_insensitive"])
}

func TestElasticsearchSearcher_AllOrgsHasNoOrgFilter(t *testing.T) {
	var body map[string]interface{}
	client := newSearchServer(t, http.StatusOK, `{"hits": {"hits": []}}`, &body)

	s := store.NewElasticsearchSearcher(client, "inventory-items")
	items, err := s.SearchItemsAllOrgs(context.Background(), "flour", 50)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	filters := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Len(t, filters, 1)
}

func TestElasticsearchSearcher_ErrorStatus(t *testing.T) {
	client := newSearchServer(t, http.StatusInternalServerError, `{"error": "boom"}`, nil)

	s := store.NewElasticsearchSearcher(client, "inventory-items")
	_, err := s.SearchItems(context.Background(), storetest.OrgA, "flour", 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item search failed")
}

func TestSearchingReader_DelegatesSearch(t *testing.T) {
	client := newSearchServer(t, http.StatusOK, `{"hits": {"hits": [
		{"_source": {"id": "x", "orgId": "0b000000-0000-0000-0000-00000000000b", "name": "From Index", "unit": "kg", "isActive": true}}
	]}}`, nil)

	r := store.SearchingReader{
		Reader:   newSQLiteStore(t),
		Searcher: store.NewElasticsearchSearcher(client, "inventory-items"),
	}

	items, err := r.SearchItemsAllOrgs(context.Background(), "anything", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "From Index", items[0].Name)

	orgs, err := r.Organizations(context.Background())
	require.NoError(t, err)
	assert.Len(t, orgs, 3)
}
