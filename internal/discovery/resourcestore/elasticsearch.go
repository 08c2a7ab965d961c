// internal/discovery/resourcestore/elasticsearch.go
package resourcestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"resource-discovery/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchStore queries a resources index whose documents use the
// same field names as the relational table.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchStore(client *elasticsearch.Client, index string) *ElasticsearchStore {
	return &ElasticsearchStore{client: client, index: index}
}

func (s *ElasticsearchStore) Query(ctx context.Context, filter Filter) ([]models.Resource, error) {
	return s.search(ctx, buildFilterQuery(filter), limitOrDefault(filter.Limit))
}

func (s *ElasticsearchStore) SearchKeywords(ctx context.Context, kq KeywordQuery) ([]models.Resource, error) {
	return s.search(ctx, buildKeywordQuery(kq), limitOrDefault(kq.Limit))
}

func buildFilterQuery(filter Filter) map[string]interface{} {
	must := []interface{}{}
	filterClauses := []interface{}{}

	if len(filter.TypeLike) > 0 {
		should := make([]interface{}, 0, len(filter.TypeLike))
		for _, t := range filter.TypeLike {
			should = append(should, map[string]interface{}{
				"match_phrase": map[string]interface{}{"type": t},
			})
		}
		must = append(must, anyOf(should))
	}

	if filter.VerifiedOnly {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"verified": true},
		})
	}

	if filter.Location != "" {
		must = append(must, locationClause(filter.Location))
	}
	if filter.County != "" {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{"county": filter.County},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filterClauses,
			},
		},
	}
}

func buildKeywordQuery(kq KeywordQuery) map[string]interface{} {
	must := []interface{}{}

	if len(kq.Terms) > 0 {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":    strings.Join(kq.Terms, " "),
				"fields":   []string{"name^3", "description^2", "type"},
				"type":     "best_fields",
				"operator": "or",
			},
		})
	}
	if kq.Location != "" {
		must = append(must, locationClause(kq.Location))
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
}

func locationClause(location string) map[string]interface{} {
	return anyOf([]interface{}{
		map[string]interface{}{"match": map[string]interface{}{"city": location}},
		map[string]interface{}{"match": map[string]interface{}{"county": location}},
	})
}

func anyOf(should []interface{}) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               should,
			"minimum_should_match": 1,
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Source models.Resource `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchStore) search(ctx context.Context, body map[string]interface{}, size int) ([]models.Resource, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(payload),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: search failed: %s", ErrStoreUnavailable, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", ErrStoreUnavailable, err)
	}

	resources := make([]models.Resource, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		r := hit.Source
		if r.ID == "" {
			r.ID = hit.ID
		}
		resources = append(resources, r)
	}
	return tagCatalog(resources), nil
}
