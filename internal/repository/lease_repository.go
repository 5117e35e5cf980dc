package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const tickLeaseKey = "hacktrackr:reminder:tick-lease"

// releaseScript deletes the lease only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// refreshScript extends the lease only while it still carries our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// LeaseRepository guards a sweep across replicas with a Redis SET NX lease.
// A held lease is refreshed every third of its TTL until released, so a sweep
// longer than the TTL keeps it. A nil client grants every lease, which is the
// single-instance setup.
type LeaseRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewLeaseRepository constructs a lease repository.
func NewLeaseRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *LeaseRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaseRepository{client: client, ttl: ttl, logger: logger}
}

// Acquire tries to take the tick lease. The returned release func is always
// non-nil and safe to call once the sweep finishes.
func (r *LeaseRepository) Acquire(ctx context.Context) (bool, func(), error) {
	noop := func() {}
	if r.client == nil {
		return true, noop, nil
	}

	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, tickLeaseKey, token, r.ttl).Result()
	if err != nil {
		return false, noop, fmt.Errorf("redis setnx %s: %w", tickLeaseKey, err)
	}
	if !ok {
		return false, noop, nil
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go r.keepAlive(token, stop, stopped)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-stopped
			// the sweep context may already be done; release on a short budget of its own
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{tickLeaseKey}, token).Err(); err != nil && err != redis.Nil {
				r.logger.Sugar().Warnw("failed to release tick lease", "key", tickLeaseKey, "error", err)
			}
		})
	}
	return true, release, nil
}

func (r *LeaseRepository) keepAlive(token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := r.ttl / 3
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			kept, err := refreshScript.Run(ctx, r.client, []string{tickLeaseKey}, token, r.ttl.Milliseconds()).Int()
			cancel()
			switch {
			case err != nil:
				r.logger.Sugar().Warnw("failed to refresh tick lease", "key", tickLeaseKey, "error", err)
			case kept == 0:
				r.logger.Sugar().Errorw("tick lease lost before the sweep finished", "key", tickLeaseKey)
				return
			}
		}
	}
}

// Ping reports whether the lease backend is reachable.
func (r *LeaseRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection if present.
func (r *LeaseRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
