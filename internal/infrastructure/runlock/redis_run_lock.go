// Package runlock provides the distributed per-source run lock. Two
// replicas asked to ingest the same source at once must not both fetch;
// the Redis lock arbitrates, and the loser reports the run as already in
// progress.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appingest "github.com/mezze/backend/internal/application/ingestion"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/shared"
)

const keyPrefix = "mezze:ingestion:run:"

// RedisRunLock implements the per-source run lock on Redis
type RedisRunLock struct {
	locker *redislock.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisRunLock creates a Redis-backed run lock. The TTL should exceed
// the run timeout so a lock never expires under a live run; a crashed
// holder frees the source when the TTL lapses.
func NewRedisRunLock(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisRunLock {
	return &RedisRunLock{
		locker: redislock.New(client),
		ttl:    ttl,
		logger: logger,
	}
}

var _ appingest.RunLock = (*RedisRunLock)(nil)

// Acquire takes the lock for a source
func (l *RedisRunLock) Acquire(ctx context.Context, code ingestion.SourceCode) (appingest.RunLease, error) {
	lock, err := l.locker.Obtain(ctx, sourceKey(code), l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, shared.ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire run lock for %s: %w", code, err)
	}
	return &redisRunLease{lock: lock, code: code, logger: l.logger}, nil
}

type redisRunLease struct {
	lock   *redislock.Lock
	code   ingestion.SourceCode
	logger *zap.Logger
}

// Release frees the lock. A lock the TTL already reclaimed is not an
// error; the run it protected is over either way.
func (le *redisRunLease) Release(ctx context.Context) error {
	err := le.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		le.logger.Warn("run lock expired before release", zap.String("source", string(le.code)))
		return nil
	}
	return err
}

func sourceKey(code ingestion.SourceCode) string {
	return keyPrefix + string(code)
}
