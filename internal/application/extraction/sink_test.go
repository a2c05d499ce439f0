package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/messaging/kafka"
)

func TestEventSink_PublishesCompletedResult(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, WithSinks(NewEventSink(pub, "results")))

	e, err := svc.Extract(context.Background(), record.Document{ID: "doc-3", Text: "Flowers white, leaves green."})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, "results", ev.topic)
	assert.Equal(t, "doc-3", ev.key)
	assert.Equal(t, kafka.EventExtractionCompleted, ev.eventType)

	res, ok := ev.payload.(kafka.ResultPayload)
	require.True(t, ok)
	assert.Equal(t, "doc-3", res.JobID)
	assert.Equal(t, e.TraitCount, res.TraitCount)
	assert.Equal(t, "white", res.Record.Dynamic["flowerColor"])
}

func TestEventSink_Name(t *testing.T) {
	assert.Equal(t, "kafka", NewEventSink(&fakePublisher{}, "t").Name())
}
