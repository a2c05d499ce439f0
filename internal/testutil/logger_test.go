package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
)

func TestRecordingLogger_SharesEntriesAcrossDerivedLoggers(t *testing.T) {
	root := NewRecordingLogger()
	child := root.Named("worker").With(logging.String("job_id", "j1"))

	root.Info("started")
	child.Warn("job already claimed", logging.DocumentID("d1"))

	entries := root.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "worker", entries[1].Logger)
	assert.True(t, root.HasMessage("warn", "job already claimed"))
	assert.False(t, root.HasMessage("info", "job already claimed"))

	v, ok := root.Field("job already claimed", "job_id")
	require.True(t, ok)
	assert.Equal(t, "j1", v)
	_, ok = root.Field("started", "job_id")
	assert.False(t, ok)

	root.Clear()
	assert.Empty(t, child.(*RecordingLogger).Entries())
}

func TestPipeline_Shared(t *testing.T) {
	a := Pipeline(t)
	b := Pipeline(t)
	assert.Same(t, a, b)
	assert.NotEmpty(t, a.Fingerprint())
}
