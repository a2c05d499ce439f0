package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v3"

	"github.com/turtacn/FloraTraits/internal/config"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

var ErrInvalidConfig = errors.New(errors.ErrCodeValidation, "opensearch addresses required")

// Transport performs raw requests against the cluster. *opensearch.Client
// satisfies it.
type Transport interface {
	Perform(req *http.Request) (*http.Response, error)
}

// Client manages the OpenSearch connection used for the trait record
// index.
type Client struct {
	transport Transport
	index     string
	logger    logging.Logger
	healthy   atomic.Bool
}

// NewClient creates a client for cfg.Addresses. It does not contact the
// cluster; call Ping for that.
func NewClient(cfg config.OpenSearchConfig, log logging.Logger) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, ErrInvalidConfig
	}
	transport := &http.Transport{MaxIdleConnsPerHost: 10}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	oc, err := opensearch.NewClient(opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.User,
		Password:      cfg.Password,
		Transport:     transport,
		MaxRetries:    3,
		RetryBackoff:  func(int) time.Duration { return 100 * time.Millisecond },
		RetryOnStatus: []int{502, 503, 504, 429},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create opensearch client")
	}
	return NewClientWithTransport(oc, cfg.Index, log), nil
}

// NewClientWithTransport wraps an existing transport.
func NewClientWithTransport(t Transport, index string, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if index == "" {
		index = config.DefaultSearchIndex
	}
	return &Client{transport: t, index: index, logger: log.Named("opensearch")}
}

// Index returns the record index name.
func (c *Client) Index() string { return c.index }

// Ping checks the connection to OpenSearch.
func (c *Client) Ping(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodHead, "/", nil, nil)
	if err == nil && status >= 300 {
		err = errors.Newf(errors.ErrCodeSinkUnavailable, "ping returned status %d", status)
	}
	if err != nil {
		c.healthy.Store(false)
		c.logger.Warn("OpenSearch ping failed", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeSinkUnavailable, "opensearch unreachable")
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the result of the last Ping.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// do sends body as JSON (or raw bytes) and decodes a 2xx response into out.
// Non-2xx statuses are returned without error so callers can treat 404
// specially; status >= 400 with out != nil yields an error.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	contentType := "application/json"
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
		contentType = "application/x-ndjson"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to build request")
	}
	if reader != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.transport.Perform(req)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSinkUnavailable, "opensearch request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if out == nil {
			return resp.StatusCode, nil
		}
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, errors.Newf(errors.ErrCodeSinkWriteFailed, "opensearch returned status %d", resp.StatusCode).
			WithDetail(string(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode response")
		}
	}
	return resp.StatusCode, nil
}
