package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FloraTraits/internal/config"
	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/internal/interfaces/http/middleware"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

type published struct {
	topic, key, eventType string
	payload               kafka.JobPayload
}

type fakeJobPublisher struct {
	sent []published
	err  error
}

func (f *fakeJobPublisher) PublishEvent(_ context.Context, topic, key, eventType string, payload interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, key: key, eventType: eventType, payload: payload.(kafka.JobPayload)})
	return nil
}

type fakeUploader struct {
	objects map[string]string
}

func (f *fakeUploader) PutText(_ context.Context, key, text string) error {
	f.objects[key] = text
	return nil
}

func testRuntime(t *testing.T, metrics bool) *Runtime {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Server.Mode = "test"
	cfg.Metrics.Enabled = metrics
	rt, err := NewRuntime(context.Background(), cfg, logging.NewNopLogger(), runtimeOptions{offline: true})
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt
}

func TestEnqueueDocuments_Inline(t *testing.T) {
	pub := &fakeJobPublisher{}
	kc := config.KafkaConfig{JobsTopic: "flora.jobs"}
	docs := []record.Document{{ID: "d1", Text: seedLabel}, {Text: "Flowers white."}}

	jobs, err := enqueueDocuments(context.Background(), kc, pub, nil, "texts", docs, logging.NewNopLogger())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Len(t, pub.sent, 2)

	first := pub.sent[0]
	assert.Equal(t, "flora.jobs", first.topic)
	assert.Equal(t, "d1", first.key)
	assert.Equal(t, kafka.EventExtractionRequested, first.eventType)
	assert.Equal(t, seedLabel, first.payload.Text)
	assert.Empty(t, first.payload.ObjectKey)
	assert.Equal(t, jobs[0].JobID, first.payload.JobID)

	assert.NotEmpty(t, jobs[1].DocumentID)
	assert.Equal(t, jobs[1].DocumentID, pub.sent[1].key)
	assert.NotEqual(t, jobs[0].JobID, jobs[1].JobID)
}

func TestEnqueueDocuments_Upload(t *testing.T) {
	pub := &fakeJobPublisher{}
	up := &fakeUploader{objects: map[string]string{}}
	docs := []record.Document{{ID: "BRIT-0001", Text: seedLabel}}

	jobs, err := enqueueDocuments(context.Background(), config.KafkaConfig{JobsTopic: "jobs"}, pub, up, "texts", docs, logging.NewNopLogger())
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	assert.Equal(t, "texts/BRIT-0001.txt", jobs[0].ObjectKey)
	assert.Equal(t, seedLabel, up.objects["texts/BRIT-0001.txt"])
	assert.Empty(t, pub.sent[0].payload.Text)
	assert.Equal(t, "texts/BRIT-0001.txt", pub.sent[0].payload.ObjectKey)
}

func TestEnqueueDocuments_PublishError(t *testing.T) {
	pub := &fakeJobPublisher{err: errors.New(errors.ErrCodeExternalService, "broker down")}
	jobs, err := enqueueDocuments(context.Background(), config.KafkaConfig{}, pub, nil, "", []record.Document{{ID: "a", Text: "x"}}, logging.NewNopLogger())
	require.Error(t, err)
	assert.Empty(t, jobs)
}

func TestEnqueuedJobs_Table(t *testing.T) {
	rows := enqueuedJobs{{JobID: "j1", DocumentID: "d1"}}.TableRows()
	assert.Equal(t, [][]string{{"j1", "d1", ""}}, rows)
}

func TestCommands_NeedBackends(t *testing.T) {
	cases := [][]string{
		{"worker"},
		{"enqueue"},
		{"migrate", "up"},
		{"migrate", "status"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, "_"), func(t *testing.T) {
			_, _, err := execute(t, seedLabel, args...)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable), err.Error())
		})
	}
}

func TestMigrateDown_StepsMustBePositive(t *testing.T) {
	_, _, err := execute(t, "", "migrate", "down", "--steps", "0")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestMigrationStatus_String(t *testing.T) {
	assert.Equal(t, "version 3", migrationStatus{Version: 3}.String())
	assert.Equal(t, "version 2 (dirty)", migrationStatus{Version: 2, Dirty: true}.String())
}

func TestPassesCmd(t *testing.T) {
	out, _, err := execute(t, "", "passes")
	require.NoError(t, err)

	var info PipelineInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.NotEmpty(t, info.Passes)
	assert.Equal(t, "terms", info.Passes[0])
	assert.Len(t, info.Fingerprint, 16)
	assert.NotEmpty(t, info.Gazetteer)
}

func TestPassesCmd_Text(t *testing.T) {
	out, _, err := execute(t, "", "-o", "text", "passes")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "record_number")
}

func TestNewRuntime_Offline(t *testing.T) {
	rt := testRuntime(t, false)
	assert.NotNil(t, rt.Service)
	assert.Nil(t, rt.Collector)
	assert.Nil(t, rt.Producer)
	assert.Empty(t, rt.HealthCheckers())
}

func TestNewAPIRouter_ExtractAndMetrics(t *testing.T) {
	rt := testRuntime(t, true)
	h := newAPIRouter(rt, &serveOptions{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(`{"document_id":"d1","text":"Seeds [1–]3–12[–30]."}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "seedCountHigh")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewAPIRouter_CORSAndRateLimit(t *testing.T) {
	rt := testRuntime(t, false)
	limiter := middleware.NewTokenBucketLimiter(1, 1, 0)
	defer limiter.Stop()
	h := newAPIRouter(rt, &serveOptions{corsOrigins: []string{"https://herbarium.example.org"}, rateLimit: 1}, limiter)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/extract", nil)
	req.Header.Set("Origin", "https://herbarium.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://herbarium.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, codes[1])
}

func TestNewHealthServer_HealthOnly(t *testing.T) {
	rt := testRuntime(t, true)
	srv := newHealthServer(rt, 9091)
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(`{"text":"x"}`))
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
