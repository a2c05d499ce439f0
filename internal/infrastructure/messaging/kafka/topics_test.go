package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

func TestDeadLetterTopic(t *testing.T) {
	assert.Equal(t, "floratraits.extraction.jobs.dead_letter", DeadLetterTopic("floratraits.extraction.jobs"))
}

func TestEventEnvelope_RoundTrip(t *testing.T) {
	rec := traits.NewRecord()
	rec.Add("county", "Archuleta")
	env, err := NewEventEnvelope(EventExtractionCompleted, "test", ResultPayload{DocumentID: "d", Record: rec})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "v1", env.SchemaVersion)

	msg, err := env.Encode("results", "d")
	require.NoError(t, err)
	assert.Equal(t, EventExtractionCompleted, msg.Headers["event_type"])

	decoded, err := DecodeEnvelope(msg.Value)
	require.NoError(t, err)
	var out ResultPayload
	require.NoError(t, decoded.DecodePayload(&out))
	assert.Equal(t, "Archuleta", out.Record.Top["county"])
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, err := DecodeEnvelope([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`{"payload":{}}`))
	assert.Error(t, err)
}

func TestDecodePayload_Empty(t *testing.T) {
	env := &EventEnvelope{EventType: EventExtractionRequested}
	var job JobPayload
	assert.Error(t, env.DecodePayload(&job))
}
