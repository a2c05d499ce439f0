package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

// recordMapping keeps the searchable Darwin Core terms as keywords and the
// full record as an unindexed object.
var recordMapping = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 0,
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"document_id":     map[string]string{"type": "keyword"},
			"source":          map[string]string{"type": "keyword"},
			"text_hash":       map[string]string{"type": "keyword"},
			"scientific_name": map[string]string{"type": "keyword"},
			"county":          map[string]string{"type": "keyword"},
			"state_province":  map[string]string{"type": "keyword"},
			"event_date":      map[string]string{"type": "keyword"},
			"trait_count":     map[string]string{"type": "integer"},
			"created_at":      map[string]string{"type": "date"},
			"record":          map[string]interface{}{"type": "object", "enabled": false},
		},
	},
}

// indexedRecord is the stored document shape.
type indexedRecord struct {
	DocumentID     string         `json:"document_id"`
	Source         string         `json:"source,omitempty"`
	TextHash       string         `json:"text_hash"`
	ScientificName string         `json:"scientific_name,omitempty"`
	County         string         `json:"county,omitempty"`
	StateProvince  string         `json:"state_province,omitempty"`
	EventDate      string         `json:"event_date,omitempty"`
	TraitCount     int            `json:"trait_count"`
	CreatedAt      time.Time      `json:"created_at"`
	Record         *traits.Record `json:"record"`
}

func toIndexed(e *record.Extraction) indexedRecord {
	doc := indexedRecord{
		DocumentID: e.DocumentID,
		Source:     e.Source,
		TextHash:   e.TextHash,
		TraitCount: e.TraitCount,
		CreatedAt:  e.CreatedAt,
		Record:     e.Record,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if e.Record != nil {
		doc.ScientificName = topString(e.Record, "scientificName")
		doc.County = topString(e.Record, "county")
		doc.StateProvince = topString(e.Record, "stateProvince")
		doc.EventDate = topString(e.Record, "eventDate")
	}
	return doc
}

func (d indexedRecord) extraction() *record.Extraction {
	rec := d.Record
	if rec == nil {
		rec = traits.NewRecord()
	}
	return &record.Extraction{
		DocumentID: d.DocumentID,
		Source:     d.Source,
		TextHash:   d.TextHash,
		Record:     rec,
		TraitCount: d.TraitCount,
		CreatedAt:  d.CreatedAt,
	}
}

func topString(r *traits.Record, key string) string {
	s, _ := r.Top[key].(string)
	return s
}

// RecordIndexer writes extractions into the record index.
type RecordIndexer struct {
	client *Client
	logger logging.Logger
}

// NewRecordIndexer returns an indexer bound to the client's index.
func NewRecordIndexer(client *Client) *RecordIndexer {
	return &RecordIndexer{client: client, logger: client.logger}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *RecordIndexer) EnsureIndex(ctx context.Context) error {
	status, err := i.client.do(ctx, http.MethodHead, "/"+i.client.index, nil, nil)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusOK:
		return nil
	case status != http.StatusNotFound:
		return errors.Newf(errors.ErrCodeSinkUnavailable, "index check returned status %d", status)
	}

	var ack struct {
		Acknowledged bool `json:"acknowledged"`
	}
	if _, err := i.client.do(ctx, http.MethodPut, "/"+i.client.index, recordMapping, &ack); err != nil {
		return err
	}
	i.logger.Info("Index created", logging.String("index", i.client.index))
	return nil
}

// Name identifies the sink in logs and metrics.
func (i *RecordIndexer) Name() string { return "opensearch" }

// Write indexes one extraction under its document ID, replacing any
// earlier version.
func (i *RecordIndexer) Write(ctx context.Context, e *record.Extraction) error {
	if e == nil || e.DocumentID == "" {
		return errors.InvalidParam("extraction document id is required")
	}
	path := "/" + i.client.index + "/_doc/" + url.PathEscape(e.DocumentID)
	var resp struct {
		Result string `json:"result"`
	}
	if _, err := i.client.do(ctx, http.MethodPut, path, toIndexed(e), &resp); err != nil {
		i.logger.Error("Failed to index extraction", logging.DocumentID(e.DocumentID), logging.Err(err))
		return err
	}
	return nil
}

// BulkItemError names a document the bulk request rejected.
type BulkItemError struct {
	DocumentID string
	Reason     string
}

// BulkWrite indexes many extractions in one request and reports per-item
// failures.
func (i *RecordIndexer) BulkWrite(ctx context.Context, es []*record.Extraction) ([]BulkItemError, error) {
	if len(es) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range es {
		meta := map[string]interface{}{"index": map[string]string{"_index": i.client.index, "_id": e.DocumentID}}
		if err := enc.Encode(meta); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode bulk action")
		}
		if err := enc.Encode(toIndexed(e)); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode bulk document")
		}
	}

	var resp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if _, err := i.client.do(ctx, http.MethodPost, "/_bulk", buf.Bytes(), &resp); err != nil {
		return nil, err
	}

	var failed []BulkItemError
	if resp.Errors {
		for _, item := range resp.Items {
			for _, res := range item {
				if res.Error != nil {
					failed = append(failed, BulkItemError{DocumentID: res.ID, Reason: res.Error.Reason})
				}
			}
		}
	}
	i.logger.Info("Bulk indexed extractions",
		logging.Int("count", len(es)),
		logging.Int("failed", len(failed)))
	return failed, nil
}
