package opensearch

import (
	"context"
	"net/http"

	"github.com/turtacn/FloraTraits/internal/domain/record"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// RecordQuery filters the record index. Empty fields are ignored.
type RecordQuery struct {
	ScientificName string
	County         string
	StateProvince  string
	Offset         int
	Limit          int
}

// SearchResult is one page of matching extractions.
type SearchResult struct {
	Total int64                `json:"total"`
	Hits  []*record.Extraction `json:"hits"`
}

// RecordSearcher queries the record index.
type RecordSearcher struct {
	client *Client
}

// NewRecordSearcher returns a searcher bound to the client's index.
func NewRecordSearcher(client *Client) *RecordSearcher {
	return &RecordSearcher{client: client}
}

// Search returns extractions matching every set field, newest first.
func (s *RecordSearcher) Search(ctx context.Context, q RecordQuery) (*SearchResult, error) {
	var resp struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source indexedRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if _, err := s.client.do(ctx, http.MethodPost, "/"+s.client.index+"/_search", buildQuery(q), &resp); err != nil {
		return nil, err
	}

	out := &SearchResult{Total: resp.Hits.Total.Value, Hits: make([]*record.Extraction, 0, len(resp.Hits.Hits))}
	for _, h := range resp.Hits.Hits {
		out.Hits = append(out.Hits, h.Source.extraction())
	}
	return out, nil
}

func buildQuery(q RecordQuery) map[string]interface{} {
	var filters []interface{}
	for field, value := range map[string]string{
		"scientific_name": q.ScientificName,
		"county":          q.County,
		"state_province":  q.StateProvince,
	} {
		if value != "" {
			filters = append(filters, map[string]interface{}{"term": map[string]string{field: value}})
		}
	}

	var query interface{} = map[string]interface{}{"match_all": map[string]interface{}{}}
	if len(filters) > 0 {
		query = map[string]interface{}{"bool": map[string]interface{}{"filter": filters}}
	}

	limit := q.Limit
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	return map[string]interface{}{
		"query": query,
		"from":  offset,
		"size":  limit,
		"sort":  []interface{}{map[string]string{"created_at": "desc"}},
	}
}
