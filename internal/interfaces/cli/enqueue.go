package cli

import (
	"context"
	"path"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/turtacn/FloraTraits/internal/config"
	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/internal/infrastructure/storage/minio"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

type enqueueOptions struct {
	documentID string
	upload     bool
	prefix     string
}

// JobPublisher is the subset of the Kafka producer enqueue needs.
type JobPublisher interface {
	PublishEvent(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// TextUploader stores document text for workers to fetch.
type TextUploader interface {
	PutText(ctx context.Context, key, text string) error
}

// EnqueuedJob reports one published job.
type EnqueuedJob struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	ObjectKey  string `json:"object_key,omitempty"`
}

type enqueuedJobs []EnqueuedJob

func (j enqueuedJobs) TableHeaders() []string { return []string{"JOB", "DOCUMENT", "OBJECT"} }

func (j enqueuedJobs) TableRows() [][]string {
	rows := make([][]string, len(j))
	for i, job := range j {
		rows[i] = []string{job.JobID, job.DocumentID, job.ObjectKey}
	}
	return rows
}

// NewEnqueueCmd publishes extraction jobs for the worker.
func NewEnqueueCmd() *cobra.Command {
	o := &enqueueOptions{}
	cmd := &cobra.Command{
		Use:   "enqueue [file ...]",
		Short: "Publish extraction jobs to the jobs topic",
		Long: "Publishes one extraction.requested event per file (or stdin). With --upload\n" +
			"the text is stored in the documents bucket and the job carries its object\n" +
			"key; otherwise the text travels inline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueue(cmd, args, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.documentID, "id", "", "document ID for a single document")
	f.BoolVar(&o.upload, "upload", false, "store text in MinIO and send object keys")
	f.StringVar(&o.prefix, "prefix", "texts", "object key prefix for uploaded text")
	return cmd
}

func runEnqueue(cmd *cobra.Command, args []string, o *enqueueOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, log := cliCtx.Config, cliCtx.Logger
	if !cfg.Kafka.Enabled {
		return errors.New(errors.ErrCodeServiceUnavailable, "enqueue needs kafka.enabled=true")
	}
	if o.upload && !cfg.MinIO.Enabled {
		return errors.New(errors.ErrCodeServiceUnavailable, "--upload needs minio.enabled=true")
	}
	if o.documentID != "" && len(args) > 1 {
		return errors.InvalidParam("--id applies to a single document")
	}

	docs, err := readDocuments(cmd, args, &extractOptions{documentID: o.documentID})
	if err != nil {
		return err
	}

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer producer.Close()

	var uploader TextUploader
	if o.upload {
		client, err := minio.NewClient(cfg.MinIO, log)
		if err != nil {
			return err
		}
		defer client.Close()
		uploader = minio.NewDocumentStore(client, int64(cfg.Pipeline.MaxTextBytes))
	}

	jobs, err := enqueueDocuments(cmd.Context(), cfg.Kafka, producer, uploader, o.prefix, docs, log)
	if err != nil {
		return err
	}
	return PrintResult(cmd, enqueuedJobs(jobs))
}

// enqueueDocuments publishes one job per document. uploader may be nil, in
// which case text is sent inline.
func enqueueDocuments(ctx context.Context, cfg config.KafkaConfig, pub JobPublisher, uploader TextUploader,
	prefix string, docs []record.Document, log logging.Logger) ([]EnqueuedJob, error) {
	out := make([]EnqueuedJob, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		job := kafka.JobPayload{JobID: uuid.NewString(), DocumentID: doc.ID}
		if uploader != nil {
			job.ObjectKey = path.Join(prefix, doc.ID+".txt")
			if err := uploader.PutText(ctx, job.ObjectKey, doc.Text); err != nil {
				return out, err
			}
		} else {
			job.Text = doc.Text
		}
		if err := pub.PublishEvent(ctx, cfg.JobsTopic, doc.ID, kafka.EventExtractionRequested, job); err != nil {
			return out, err
		}
		log.Debug("job enqueued", logging.String("job_id", job.JobID), logging.DocumentID(doc.ID))
		out = append(out, EnqueuedJob{JobID: job.JobID, DocumentID: doc.ID, ObjectKey: job.ObjectKey})
	}
	return out, nil
}
