package extraction

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/testutil"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	limits := Limits{MaxTextBytes: 1024, MaxBatchSize: 4, Workers: 2}
	return NewService(testutil.Pipeline(t), limits, nil, opts...)
}

type fakeRepo struct {
	mu      sync.Mutex
	saved   map[string]*record.Extraction
	saveErr error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{saved: map[string]*record.Extraction{}} }

func (r *fakeRepo) Save(_ context.Context, e *record.Extraction) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[e.DocumentID] = e
	return nil
}

func (r *fakeRepo) FindByDocumentID(_ context.Context, id string) (*record.Extraction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.saved[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeExtractionDocNotFound, "extraction not found")
	}
	return e, nil
}

func (r *fakeRepo) List(_ context.Context, limit, _ int) ([]*record.Extraction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*record.Extraction
	for _, e := range r.saved {
		if len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeSink struct {
	name string
	err  error

	mu  sync.Mutex
	got []*record.Extraction
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Write(_ context.Context, e *record.Extraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, e)
	return s.err
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

type fakeTexts map[string]string

func (f fakeTexts) GetText(_ context.Context, key string) (string, error) {
	t, ok := f[key]
	if !ok {
		return "", errors.New(errors.ErrCodeExtractionDocNotFound, "object not found")
	}
	return t, nil
}

// memCache stores JSON the same way the Redis cache does.
type memCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	loads int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return errors.NotFound("cache miss")
	}
	return json.Unmarshal(data, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) GetOrLoad(ctx context.Context, key string, dest any, ttl time.Duration, loader func(context.Context) (any, error)) (bool, error) {
	if err := c.Get(ctx, key, dest); err == nil {
		return true, nil
	}
	v, err := loader(ctx)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.loads++
	c.mu.Unlock()
	if err := c.Set(ctx, key, v, ttl); err != nil {
		return false, err
	}
	return false, c.Get(ctx, key, dest)
}

type fakeLocker struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
	err      error
}

func newFakeLocker() *fakeLocker { return &fakeLocker{claimed: map[string]bool{}} }

func (l *fakeLocker) Claim(_ context.Context, id string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed[id] {
		return false, nil
	}
	l.claimed[id] = true
	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, id)
	l.released = append(l.released, id)
	return nil
}

type publishedEvent struct {
	topic, key, eventType string
	payload               interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic, key, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic, key, eventType, payload})
	return nil
}
