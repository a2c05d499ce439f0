package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

const recordsPrefix = "records/"

var ErrObjectNotFound = errors.New(errors.ErrCodeExtractionDocNotFound, "object not found")

// DocumentStore reads label texts from the documents bucket and writes
// extraction records to the results bucket.
type DocumentStore struct {
	client   *Client
	maxBytes int64
	logger   logging.Logger
}

// NewDocumentStore returns a store that refuses texts over maxBytes. A
// non-positive maxBytes disables the limit.
func NewDocumentStore(client *Client, maxBytes int64) *DocumentStore {
	return &DocumentStore{client: client, maxBytes: maxBytes, logger: client.logger}
}

// GetText fetches a label text by object key.
func (s *DocumentStore) GetText(ctx context.Context, key string) (string, error) {
	if s.client.isClosed() {
		return "", ErrClientClosed
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.InvalidParam("object key required")
	}
	bucket := s.client.DocumentsBucket()

	info, err := s.client.api.StatObject(ctx, bucket, key)
	if err != nil {
		return "", mapObjectError(err, key)
	}
	if s.maxBytes > 0 && info.Size > s.maxBytes {
		return "", errors.New(errors.ErrCodeExtractionTextTooLarge, "document text too large").WithDetail(key)
	}

	obj, err := s.client.api.GetObject(ctx, bucket, key)
	if err != nil {
		return "", mapObjectError(err, key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", mapObjectError(err, key)
	}
	return string(data), nil
}

// PutText stores a label text and returns its key.
func (s *DocumentStore) PutText(ctx context.Context, key, text string) error {
	if s.client.isClosed() {
		return ErrClientClosed
	}
	_, err := s.client.api.PutObject(ctx, s.client.DocumentsBucket(), key,
		strings.NewReader(text), int64(len(text)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSinkWriteFailed, "failed to store document text").WithDetail(key)
	}
	return nil
}

// RecordKey is the object key for a document's record.
func RecordKey(documentID string) string {
	return path.Join(recordsPrefix, documentID+".json")
}

// Name identifies the sink in logs and metrics.
func (s *DocumentStore) Name() string { return "minio" }

// Write stores the extraction as a JSON object in the results bucket.
func (s *DocumentStore) Write(ctx context.Context, e *record.Extraction) error {
	if s.client.isClosed() {
		return ErrClientClosed
	}
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode extraction")
	}
	key := RecordKey(e.DocumentID)
	_, err = s.client.api.PutObject(ctx, s.client.ResultsBucket(), key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  "application/json",
			UserMetadata: map[string]string{"text-hash": e.TextHash},
		})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSinkWriteFailed, "failed to store extraction").WithDetail(key)
	}
	s.logger.Debug("Stored extraction", logging.DocumentID(e.DocumentID), logging.String("key", key))
	return nil
}

func mapObjectError(err error, key string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrObjectNotFound.WithDetail(key)
	}
	return errors.Wrap(err, errors.ErrCodeExternalService, "failed to read object").WithDetail(key)
}
