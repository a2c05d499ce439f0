package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FloraTraits/internal/config"
	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
	pkgerrors "github.com/turtacn/FloraTraits/pkg/errors"
)

type cannedResponse struct {
	status int
	body   string
}

type fakeTransport struct {
	requests  []*http.Request
	bodies    []string
	responses []cannedResponse
	err       error
}

func (f *fakeTransport) Perform(req *http.Request) (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, body)

	resp := cannedResponse{status: http.StatusOK, body: "{}"}
	if len(f.responses) > 0 {
		resp = f.responses[0]
		f.responses = f.responses[1:]
	}
	return &http.Response{
		StatusCode: resp.status,
		Body:       io.NopCloser(bytes.NewBufferString(resp.body)),
		Header:     http.Header{},
	}, nil
}

func sampleExtraction() *record.Extraction {
	rec := traits.NewRecord()
	rec.Add("scientificName", "Quercus gambelii")
	rec.Add("county", "Boulder")
	rec.AddDynamic("leafColor", "green")
	return &record.Extraction{DocumentID: "doc/1", Source: "http", TextHash: "h", Record: rec, TraitCount: 3}
}

func TestNewClient_RequiresAddresses(t *testing.T) {
	_, err := NewClient(config.OpenSearchConfig{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	c, err := NewClient(config.OpenSearchConfig{Addresses: []string{"http://localhost:9200"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSearchIndex, c.Index())
}

func TestPing(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClientWithTransport(ft, "records", nil)
	require.NoError(t, c.Ping(context.Background()))
	assert.True(t, c.IsHealthy())

	ft.responses = []cannedResponse{{status: http.StatusServiceUnavailable, body: ""}}
	assert.Error(t, c.Ping(context.Background()))
	assert.False(t, c.IsHealthy())

	ft.err = errors.New("dial tcp: refused")
	err := c.Ping(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSinkUnavailable))
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	ft := &fakeTransport{responses: []cannedResponse{
		{status: http.StatusNotFound, body: ""},
		{status: http.StatusOK, body: `{"acknowledged":true}`},
	}}
	ix := NewRecordIndexer(NewClientWithTransport(ft, "records", nil))

	require.NoError(t, ix.EnsureIndex(context.Background()))
	require.Len(t, ft.requests, 2)
	assert.Equal(t, http.MethodHead, ft.requests[0].Method)
	assert.Equal(t, http.MethodPut, ft.requests[1].Method)
	assert.Equal(t, "/records", ft.requests[1].URL.Path)
	assert.Contains(t, ft.bodies[1], `"scientific_name":{"type":"keyword"}`)
}

func TestEnsureIndex_Exists(t *testing.T) {
	ft := &fakeTransport{}
	ix := NewRecordIndexer(NewClientWithTransport(ft, "records", nil))

	require.NoError(t, ix.EnsureIndex(context.Background()))
	assert.Len(t, ft.requests, 1)
}

func TestWrite_IndexesDarwinCoreFields(t *testing.T) {
	ft := &fakeTransport{responses: []cannedResponse{{status: http.StatusCreated, body: `{"result":"created"}`}}}
	ix := NewRecordIndexer(NewClientWithTransport(ft, "records", nil))

	require.NoError(t, ix.Write(context.Background(), sampleExtraction()))
	assert.Equal(t, "opensearch", ix.Name())
	require.Len(t, ft.requests, 1)
	assert.Equal(t, "/records/_doc/doc%2F1", ft.requests[0].URL.EscapedPath())

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(ft.bodies[0]), &doc))
	assert.Equal(t, "Quercus gambelii", doc["scientific_name"])
	assert.Equal(t, "Boulder", doc["county"])
	assert.Equal(t, "green", doc["record"].(map[string]interface{})["dynamicProperties"].(map[string]interface{})["leafColor"])
}

func TestWrite_ErrorStatus(t *testing.T) {
	ft := &fakeTransport{responses: []cannedResponse{{status: http.StatusBadRequest, body: `{"error":"mapper_parsing_exception"}`}}}
	ix := NewRecordIndexer(NewClientWithTransport(ft, "records", nil))

	err := ix.Write(context.Background(), sampleExtraction())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSinkWriteFailed))

	assert.Error(t, ix.Write(context.Background(), &record.Extraction{}))
}

func TestBulkWrite_ReportsItemErrors(t *testing.T) {
	ft := &fakeTransport{responses: []cannedResponse{{status: http.StatusOK, body: `{
		"errors": true,
		"items": [
			{"index": {"_id": "a", "status": 201}},
			{"index": {"_id": "b", "status": 400, "error": {"reason": "bad field"}}}
		]}`}}}
	ix := NewRecordIndexer(NewClientWithTransport(ft, "records", nil))

	a := sampleExtraction()
	a.DocumentID = "a"
	b := sampleExtraction()
	b.DocumentID = "b"
	failed, err := ix.BulkWrite(context.Background(), []*record.Extraction{a, b})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, BulkItemError{DocumentID: "b", Reason: "bad field"}, failed[0])

	lines := strings.Split(strings.TrimSpace(ft.bodies[0]), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "application/x-ndjson", ft.requests[0].Header.Get("Content-Type"))
}

func TestBulkWrite_Empty(t *testing.T) {
	ft := &fakeTransport{}
	ix := NewRecordIndexer(NewClientWithTransport(ft, "records", nil))
	failed, err := ix.BulkWrite(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, failed)
	assert.Empty(t, ft.requests)
}

func TestSearch(t *testing.T) {
	ft := &fakeTransport{responses: []cannedResponse{{status: http.StatusOK, body: `{
		"hits": {"total": {"value": 1}, "hits": [
			{"_source": {"document_id": "d1", "text_hash": "h", "trait_count": 2,
				"record": {"scientificName": "Quercus gambelii"}}}
		]}}`}}}
	s := NewRecordSearcher(NewClientWithTransport(ft, "records", nil))

	res, err := s.Search(context.Background(), RecordQuery{ScientificName: "Quercus gambelii", Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "d1", res.Hits[0].DocumentID)
	assert.Equal(t, "Quercus gambelii", res.Hits[0].ScientificName())

	assert.Equal(t, "/records/_search", ft.requests[0].URL.Path)
	assert.Contains(t, ft.bodies[0], `"size":200`)
	assert.Contains(t, ft.bodies[0], `"term":{"scientific_name":"Quercus gambelii"}`)
}

func TestBuildQuery_MatchAllByDefault(t *testing.T) {
	q := buildQuery(RecordQuery{Offset: -5})
	assert.Equal(t, 0, q["from"])
	assert.Equal(t, defaultPageSize, q["size"])
	assert.Contains(t, q["query"], "match_all")
}
