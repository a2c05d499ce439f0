package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventExtractionRequested = "extraction.requested"
	EventExtractionCompleted = "extraction.completed"
	EventExtractionFailed    = "extraction.failed"
)

const (
	schemaVersion    = "v1"
	deadLetterSuffix = ".dead_letter"
)

// DeadLetterTopic names the topic that receives messages from topic whose
// handler kept failing.
func DeadLetterTopic(topic string) string {
	return topic + deadLetterSuffix
}

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// JobPayload asks a worker to extract one document. Either Text or
// ObjectKey must be set.
type JobPayload struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	Text       string `json:"text,omitempty"`
	ObjectKey  string `json:"object_key,omitempty"`
}

// ResultPayload reports a finished job.
type ResultPayload struct {
	JobID      string         `json:"job_id"`
	DocumentID string         `json:"document_id"`
	Record     *traits.Record `json:"record,omitempty"`
	TraitCount int            `json:"trait_count"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
}

// NewEventEnvelope wraps payload.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "empty event payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

// Encode renders the envelope as a producer message on topic keyed by key.
func (e *EventEnvelope) Encode(topic, key string) (*ProducerMessage, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"event_id":       e.EventID,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// DecodeEnvelope parses a consumed message value.
func DecodeEnvelope(value []byte) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event")
	}
	if env.EventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "event type required")
	}
	return &env, nil
}
