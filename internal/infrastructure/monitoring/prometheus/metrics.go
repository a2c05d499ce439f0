package prometheus

import (
	"strconv"
	"time"
)

// ExtractionMetrics are the service-level metrics of the extraction engine
// and its surfaces.
type ExtractionMetrics struct {
	DocumentsTotal     CounterVec
	DocumentDuration   HistogramVec
	DocumentTokens     HistogramVec
	TraitsTotal        CounterVec
	BatchSize          HistogramVec
	CacheRequestsTotal CounterVec
	SinkWritesTotal    CounterVec
	SinkDuration       HistogramVec
	JobsInFlight       GaugeVec
	HTTPRequestsTotal  CounterVec
	HTTPDuration       HistogramVec
}

// Buckets.
var (
	DefaultDocumentDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}
	DefaultTokenBuckets            = []float64{10, 50, 100, 250, 500, 1000, 5000, 20000}
	DefaultBatchBuckets            = []float64{1, 5, 10, 50, 100, 250, 500}
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
)

// NewExtractionMetrics registers every extraction metric on collector.
func NewExtractionMetrics(collector MetricsCollector) *ExtractionMetrics {
	return &ExtractionMetrics{
		DocumentsTotal: collector.RegisterCounter("documents_total",
			"Documents processed", "source", "status"),
		DocumentDuration: collector.RegisterHistogram("document_duration_seconds",
			"Pipeline run time per document", DefaultDocumentDurationBuckets, "source"),
		DocumentTokens: collector.RegisterHistogram("document_tokens",
			"Tokens per document", DefaultTokenBuckets, "source"),
		TraitsTotal: collector.RegisterCounter("traits_total",
			"Traits emitted", "trait"),
		BatchSize: collector.RegisterHistogram("batch_size",
			"Documents per batch request", DefaultBatchBuckets),
		CacheRequestsTotal: collector.RegisterCounter("cache_requests_total",
			"Result cache lookups", "result"),
		SinkWritesTotal: collector.RegisterCounter("sink_writes_total",
			"Record sink writes", "sink", "status"),
		SinkDuration: collector.RegisterHistogram("sink_duration_seconds",
			"Record sink write time", DefaultHTTPDurationBuckets, "sink"),
		JobsInFlight: collector.RegisterGauge("jobs_in_flight",
			"Queue jobs being processed", "topic"),
		HTTPRequestsTotal: collector.RegisterCounter("http_requests_total",
			"HTTP requests", "method", "path", "status_code"),
		HTTPDuration: collector.RegisterHistogram("http_request_duration_seconds",
			"HTTP request duration", DefaultHTTPDurationBuckets, "method", "path"),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordDocument counts one pipeline run and its traits by name.
func (m *ExtractionMetrics) RecordDocument(source string, tokens int, traitNames []string, d time.Duration, err error) {
	m.DocumentsTotal.WithLabelValues(source, status(err)).Inc()
	if err != nil {
		return
	}
	m.DocumentDuration.WithLabelValues(source).Observe(d.Seconds())
	m.DocumentTokens.WithLabelValues(source).Observe(float64(tokens))
	for _, n := range traitNames {
		m.TraitsTotal.WithLabelValues(n).Inc()
	}
}

// RecordCache counts a cache lookup.
func (m *ExtractionMetrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordSink counts one sink write.
func (m *ExtractionMetrics) RecordSink(sink string, d time.Duration, err error) {
	m.SinkWritesTotal.WithLabelValues(sink, status(err)).Inc()
	m.SinkDuration.WithLabelValues(sink).Observe(d.Seconds())
}

// RecordHTTPRequest counts one HTTP exchange.
func (m *ExtractionMetrics) RecordHTTPRequest(method, path string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
