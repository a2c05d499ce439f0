package extraction

import (
	"context"

	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/messaging/kafka"
)

// EventSink publishes every extraction as a completed-result event. Use it
// for synchronous requests; the queue Worker publishes its own results.
type EventSink struct {
	events EventPublisher
	topic  string
}

// NewEventSink publishes to topic through events.
func NewEventSink(events EventPublisher, topic string) *EventSink {
	return &EventSink{events: events, topic: topic}
}

// Name implements Sink.
func (s *EventSink) Name() string { return "kafka" }

// Write implements Sink. The document ID doubles as the job ID and the
// message key, so results for one document stay on one partition.
func (s *EventSink) Write(ctx context.Context, e *record.Extraction) error {
	return s.events.PublishEvent(ctx, s.topic, e.DocumentID, kafka.EventExtractionCompleted, kafka.ResultPayload{
		JobID:      e.DocumentID,
		DocumentID: e.DocumentID,
		Record:     e.Record,
		TraitCount: e.TraitCount,
		DurationMS: e.Duration.Milliseconds(),
	})
}
