package extraction

import (
	"context"
	"time"

	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

// Locker claims a job so that redelivered messages run once.
type Locker interface {
	Claim(ctx context.Context, jobID string) (bool, error)
	Release(ctx context.Context, jobID string) error
}

// EventPublisher publishes result events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// Worker turns queued extraction jobs into result events.
type Worker struct {
	svc          *Service
	lock         Locker
	events       EventPublisher
	resultsTopic string
	logger       logging.Logger
}

// NewWorker builds a worker. lock may be nil, in which case duplicate
// deliveries are processed again.
func NewWorker(svc *Service, lock Locker, events EventPublisher, resultsTopic string, log logging.Logger) *Worker {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Worker{svc: svc, lock: lock, events: events, resultsTopic: resultsTopic, logger: log.Named("worker")}
}

// Handle processes one job message. Invalid jobs publish a failure event
// and return nil so they are not retried; transient failures return an
// error so the consumer retries them.
func (w *Worker) Handle(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.DecodeEnvelope(msg.Value)
	if err != nil {
		w.logger.Warn("dropping undecodable job", logging.Int64("offset", msg.Offset), logging.Err(err))
		return nil
	}
	var job kafka.JobPayload
	if err := env.DecodePayload(&job); err != nil {
		w.logger.Warn("dropping job with bad payload", logging.String("event_id", env.EventID), logging.Err(err))
		return nil
	}
	if job.JobID == "" {
		job.JobID = env.EventID
	}
	log := w.logger.With(logging.String("job_id", job.JobID), logging.DocumentID(job.DocumentID))

	if w.lock != nil {
		ok, err := w.lock.Claim(ctx, job.JobID)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("job already claimed, skipping")
			return nil
		}
	}

	start := time.Now()
	e, err := w.svc.Extract(ctx, record.Document{
		ID:        job.DocumentID,
		Source:    record.SourceQueue,
		Text:      job.Text,
		ObjectKey: job.ObjectKey,
	})
	if err != nil {
		if retryable(err) {
			w.release(ctx, job.JobID)
			return err
		}
		log.Warn("job failed", logging.Err(err))
		return w.publish(ctx, kafka.EventExtractionFailed, kafka.ResultPayload{
			JobID:      job.JobID,
			DocumentID: job.DocumentID,
			DurationMS: time.Since(start).Milliseconds(),
			Error:      err.Error(),
		})
	}

	return w.publish(ctx, kafka.EventExtractionCompleted, kafka.ResultPayload{
		JobID:      job.JobID,
		DocumentID: e.DocumentID,
		Record:     e.Record,
		TraitCount: e.TraitCount,
		DurationMS: e.Duration.Milliseconds(),
	})
}

func (w *Worker) publish(ctx context.Context, eventType string, res kafka.ResultPayload) error {
	if w.events == nil || w.resultsTopic == "" {
		return nil
	}
	return w.events.PublishEvent(ctx, w.resultsTopic, res.DocumentID, eventType, res)
}

func (w *Worker) release(ctx context.Context, jobID string) {
	if w.lock == nil {
		return
	}
	if err := w.lock.Release(ctx, jobID); err != nil {
		w.logger.Warn("failed to release job lock", logging.String("job_id", jobID), logging.Err(err))
	}
}

// retryable reports whether a failed job could succeed on redelivery.
func retryable(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeExtractionEmptyText,
		errors.ErrCodeExtractionTextTooLarge,
		errors.ErrCodeExtractionDocNotFound,
		errors.ErrCodeBadRequest,
		errors.ErrCodeValidation:
		return false
	}
	return true
}
