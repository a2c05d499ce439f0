package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/internal/intelligence/pipeline"
)

var (
	pipeOnce sync.Once
	pipe     *pipeline.Pipeline
	pipeErr  error
)

// Pipeline returns a default pipeline built once per test binary. Pipelines
// are immutable, so tests may share it.
func Pipeline(t testing.TB) *pipeline.Pipeline {
	t.Helper()
	pipeOnce.Do(func() {
		pipe, pipeErr = pipeline.New(pipeline.DefaultOptions(), logging.NewNopLogger())
	})
	require.NoError(t, pipeErr)
	return pipe
}
