package minio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/FloraTraits/internal/config"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

// ObjectAPI is the subset of the MinIO client the stores need. GetObject
// returns a plain reader so tests can serve objects from memory.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucket, key string) (minio.ObjectInfo, error)
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
}

type minioAPI struct {
	c *minio.Client
}

func (a minioAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return a.c.BucketExists(ctx, bucket)
}

func (a minioAPI) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return a.c.MakeBucket(ctx, bucket, opts)
}

func (a minioAPI) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.c.PutObject(ctx, bucket, key, r, size, opts)
}

func (a minioAPI) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return a.c.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
}

func (a minioAPI) StatObject(ctx context.Context, bucket, key string) (minio.ObjectInfo, error) {
	return a.c.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
}

func (a minioAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	return a.c.ListBuckets(ctx)
}

var ErrClientClosed = errors.New(errors.ErrCodeSinkUnavailable, "minio client is closed")

// Client owns the connection and the two buckets: label texts in, trait
// records out.
type Client struct {
	api    ObjectAPI
	cfg    config.MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects and creates missing buckets.
func NewClient(cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create minio client")
	}
	cfg.Region = region

	c := NewClientWithAPI(minioAPI{c: mc}, cfg, log)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.EnsureBuckets(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wraps an existing API implementation.
func NewClientWithAPI(api ObjectAPI, cfg config.MinIOConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.DocumentsBucket == "" {
		cfg.DocumentsBucket = config.DefaultMinIODocumentsBucket
	}
	if cfg.ResultsBucket == "" {
		cfg.ResultsBucket = config.DefaultMinIOResultsBucket
	}
	return &Client{api: api, cfg: cfg, logger: log.Named("minio")}
}

// EnsureBuckets creates the documents and results buckets when missing.
func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{c.cfg.DocumentsBucket, c.cfg.ResultsBucket} {
		exists, err := c.api.BucketExists(ctx, bucket)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSinkUnavailable, "failed to check bucket existence").WithDetail(bucket)
		}
		if exists {
			continue
		}
		if err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.cfg.Region}); err != nil {
			return errors.Wrap(err, errors.ErrCodeSinkUnavailable, "failed to create bucket").WithDetail(bucket)
		}
		c.logger.Info("Created bucket", logging.String("bucket", bucket))
	}
	return nil
}

// HealthCheck lists buckets to confirm the endpoint answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	if _, err := c.api.ListBuckets(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeSinkUnavailable, "minio health check failed")
	}
	return nil
}

// DocumentsBucket returns the bucket holding label texts.
func (c *Client) DocumentsBucket() string { return c.cfg.DocumentsBucket }

// ResultsBucket returns the bucket receiving trait records.
func (c *Client) ResultsBucket() string { return c.cfg.ResultsBucket }

// Close marks the client closed. The MinIO client itself holds no
// connections that need releasing.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
