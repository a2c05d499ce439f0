package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held by this owner")

var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// JobLock claims queue jobs so a redelivered message is processed by one
// worker only. Claims expire after ttl in case the holder dies.
type JobLock struct {
	client *Client
	owner  string
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

// NewJobLock returns a lock owned by a fresh worker identity.
func NewJobLock(client *Client, ttl time.Duration, log logging.Logger) *JobLock {
	return newJobLock(client, uuid.NewString(), ttl, log)
}

func newJobLock(client *Client, owner string, ttl time.Duration, log logging.Logger) *JobLock {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &JobLock{client: client, owner: owner, prefix: "floratraits:lock:", ttl: ttl, logger: log}
}

// Owner is the identity written into claimed keys.
func (l *JobLock) Owner() string { return l.owner }

// Claim reports whether this owner now holds the job.
func (l *JobLock) Claim(ctx context.Context, jobID string) (bool, error) {
	if l.client.isClosed() {
		return false, ErrClientClosed
	}
	ok, err := l.client.rdb.SetNX(ctx, l.prefix+jobID, l.owner, l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to claim job")
	}
	if !ok {
		l.logger.Debug("job already claimed", logging.String("job_id", jobID))
	}
	return ok, nil
}

// Release drops the claim if this owner still holds it.
func (l *JobLock) Release(ctx context.Context, jobID string) error {
	n, err := releaseScript.Run(ctx, l.client.rdb, []string{l.prefix + jobID}, l.owner).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release job")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
