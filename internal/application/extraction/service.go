// Package extraction runs label and treatment texts through the trait
// pipeline and fans the results out to storage, index and queue sinks.
package extraction

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/FloraTraits/internal/config"
	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/database/redis"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FloraTraits/internal/infrastructure/search/opensearch"
	"github.com/turtacn/FloraTraits/internal/intelligence/pipeline"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

// Sink receives every finished extraction.
type Sink interface {
	Name() string
	Write(ctx context.Context, e *record.Extraction) error
}

// TextSource resolves a document's object key to its text.
type TextSource interface {
	GetText(ctx context.Context, key string) (string, error)
}

// Searcher queries indexed extractions.
type Searcher interface {
	Search(ctx context.Context, q opensearch.RecordQuery) (*opensearch.SearchResult, error)
}

// Limits bound request sizes.
type Limits struct {
	MaxTextBytes int
	MaxBatchSize int
	Workers      int
	CacheTTL     time.Duration
}

// LimitsFrom reads the pipeline section of the configuration.
func LimitsFrom(cfg config.PipelineConfig) Limits {
	l := Limits{
		MaxTextBytes: cfg.MaxTextBytes,
		MaxBatchSize: cfg.MaxBatchSize,
		Workers:      cfg.Workers,
	}
	if l.MaxTextBytes <= 0 {
		l.MaxTextBytes = config.DefaultMaxTextBytes
	}
	if l.MaxBatchSize <= 0 {
		l.MaxBatchSize = config.DefaultMaxBatchSize
	}
	if l.Workers <= 0 {
		l.Workers = config.DefaultWorkers
	}
	return l
}

// Option configures a Service.
type Option func(*Service)

// WithCache memoizes pipeline runs by text content.
func WithCache(c redis.Cache) Option { return func(s *Service) { s.cache = c } }

// WithRepository persists extractions and serves lookups.
func WithRepository(r record.Repository) Option { return func(s *Service) { s.repo = r } }

// WithSinks adds best-effort sinks.
func WithSinks(sinks ...Sink) Option {
	return func(s *Service) { s.sinks = append(s.sinks, sinks...) }
}

// WithTextSource resolves documents submitted by object key.
func WithTextSource(t TextSource) Option { return func(s *Service) { s.texts = t } }

// WithSearcher enables Search.
func WithSearcher(q Searcher) Option { return func(s *Service) { s.searcher = q } }

// WithMetrics records run and sink metrics.
func WithMetrics(m *prometheus.ExtractionMetrics) Option { return func(s *Service) { s.metrics = m } }

// Service is safe for concurrent use.
type Service struct {
	pipe     *pipeline.Pipeline
	limits   Limits
	cache    redis.Cache
	repo     record.Repository
	sinks    []Sink
	texts    TextSource
	searcher Searcher
	metrics  *prometheus.ExtractionMetrics
	logger   logging.Logger
}

// NewService wires the pipeline with optional collaborators.
func NewService(pipe *pipeline.Pipeline, limits Limits, log logging.Logger, opts ...Option) *Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if limits.Workers <= 0 {
		limits.Workers = config.DefaultWorkers
	}
	s := &Service{pipe: pipe, limits: limits, logger: log.Named("extraction")}
	for _, o := range opts {
		o(s)
	}
	return s
}

// run is the cacheable part of an extraction.
type run struct {
	Record     *traits.Record `json:"record"`
	Spans      []record.Span  `json:"spans"`
	TraitNames []string       `json:"trait_names"`
	Tokens     int            `json:"tokens"`
}

// Extract runs one document. Sink failures are logged and counted but do
// not fail the extraction; a repository failure does.
func (s *Service) Extract(ctx context.Context, doc record.Document) (*record.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "extraction cancelled")
	}
	text, err := s.resolveText(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc.EnsureID()
	if doc.Source == "" {
		doc.Source = record.SourceHTTP
	}
	log := s.logger.With(logging.DocumentID(doc.ID), logging.String("source", doc.Source))

	start := time.Now()
	r, err := s.runCached(ctx, text)
	elapsed := time.Since(start)
	if s.metrics != nil {
		tokens := 0
		var names []string
		if r != nil {
			tokens, names = r.Tokens, r.TraitNames
		}
		s.metrics.RecordDocument(doc.Source, tokens, names, elapsed, err)
	}
	if err != nil {
		log.Error("extraction failed", logging.Err(err))
		return nil, err
	}

	e := &record.Extraction{
		DocumentID: doc.ID,
		Source:     doc.Source,
		TextHash:   record.HashText(text),
		Record:     r.Record,
		Spans:      r.Spans,
		TraitCount: len(r.TraitNames),
		Duration:   elapsed,
		CreatedAt:  time.Now().UTC(),
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, e); err != nil {
			log.Error("failed to persist extraction", logging.Err(err))
			return nil, err
		}
	}
	s.deliver(ctx, e)

	log.Info("document extracted",
		logging.Int("traits", e.TraitCount),
		logging.Duration("elapsed", elapsed))
	return e, nil
}

func (s *Service) resolveText(ctx context.Context, doc record.Document) (string, error) {
	text := doc.Text
	if text == "" && doc.ObjectKey != "" {
		if s.texts == nil {
			return "", errors.New(errors.ErrCodeServiceUnavailable, "document store not configured")
		}
		var err error
		if text, err = s.texts.GetText(ctx, doc.ObjectKey); err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New(errors.ErrCodeExtractionEmptyText, "document text is empty")
	}
	if s.limits.MaxTextBytes > 0 && len(text) > s.limits.MaxTextBytes {
		return "", errors.Newf(errors.ErrCodeExtractionTextTooLarge,
			"document text is %d bytes, limit is %d", len(text), s.limits.MaxTextBytes)
	}
	return text, nil
}

func (s *Service) runCached(ctx context.Context, text string) (*run, error) {
	if s.cache == nil {
		return s.runPipeline(text), nil
	}
	var r run
	hit, err := s.cache.GetOrLoad(ctx, redis.ContentKey(s.pipe.Fingerprint(), text), &r, s.limits.CacheTTL,
		func(context.Context) (any, error) { return s.runPipeline(text), nil })
	if err != nil {
		s.logger.Warn("cached run failed, running directly", logging.Err(err))
		return s.runPipeline(text), nil
	}
	if s.metrics != nil {
		s.metrics.RecordCache(hit)
	}
	if r.Record == nil {
		r.Record = traits.NewRecord()
	}
	return &r, nil
}

func (s *Service) runPipeline(text string) *run {
	res := s.pipe.Run(text)
	r := &run{Record: res.Record, Tokens: len(res.Doc.Tokens)}
	for _, sp := range res.Spans {
		r.Spans = append(r.Spans, record.Span{
			Start: sp.Start,
			End:   sp.End,
			Label: sp.Label,
			Text:  res.Doc.SpanText(sp),
		})
		r.TraitNames = append(r.TraitNames, sp.Trait.Name())
	}
	return r
}

// deliver writes e to every sink concurrently and waits for all of them.
func (s *Service) deliver(ctx context.Context, e *record.Extraction) {
	if len(s.sinks) == 0 {
		return
	}
	var g errgroup.Group
	for _, sink := range s.sinks {
		sink := sink
		g.Go(func() error {
			start := time.Now()
			err := sink.Write(ctx, e)
			if s.metrics != nil {
				s.metrics.RecordSink(sink.Name(), time.Since(start), err)
			}
			if err != nil {
				s.logger.Warn("sink write failed",
					logging.String("sink", sink.Name()),
					logging.DocumentID(e.DocumentID),
					logging.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// BatchItem is one document's outcome in a batch.
type BatchItem struct {
	DocumentID string             `json:"document_id"`
	Extraction *record.Extraction `json:"extraction,omitempty"`
	Error      string             `json:"error,omitempty"`
	Code       errors.ErrorCode   `json:"code,omitempty"`
}

// ExtractBatch runs docs on a bounded worker pool. Items keep the input
// order and fail independently; only an oversized batch or a cancelled
// context fails the whole call.
func (s *Service) ExtractBatch(ctx context.Context, docs []record.Document) ([]BatchItem, error) {
	if len(docs) == 0 {
		return nil, errors.InvalidParam("batch is empty")
	}
	if s.limits.MaxBatchSize > 0 && len(docs) > s.limits.MaxBatchSize {
		return nil, errors.Newf(errors.ErrCodeExtractionBatchTooLarge,
			"batch has %d documents, limit is %d", len(docs), s.limits.MaxBatchSize)
	}

	items := make([]BatchItem, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limits.Workers)
	for i := range docs {
		i, doc := i, docs[i]
		doc.EnsureID()
		items[i].DocumentID = doc.ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := s.Extract(gctx, doc)
			if err != nil {
				items[i].Error = err.Error()
				items[i].Code = errors.GetCode(err)
				return nil
			}
			items[i].Extraction = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "batch cancelled")
	}
	s.logger.Info("batch extracted", logging.Int("documents", len(docs)))
	return items, nil
}

// Get returns a stored extraction.
func (s *Service) Get(ctx context.Context, documentID string) (*record.Extraction, error) {
	if s.repo == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "record store not configured")
	}
	return s.repo.FindByDocumentID(ctx, documentID)
}

// List pages through stored extractions.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*record.Extraction, error) {
	if s.repo == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "record store not configured")
	}
	return s.repo.List(ctx, limit, offset)
}

// Search queries the record index.
func (s *Service) Search(ctx context.Context, q opensearch.RecordQuery) (*opensearch.SearchResult, error) {
	if s.searcher == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "record index not configured")
	}
	return s.searcher.Search(ctx, q)
}

// Pipeline exposes the underlying pipeline.
func (s *Service) Pipeline() *pipeline.Pipeline { return s.pipe }
