// Redis-backed mutual exclusion for the periodic refresh jobs. Each job type
// takes its own lock so concurrent runs of the same job are serialized while
// the two job types remain independent.
package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type JobLock struct {
	redis *redis.Client
	name  string
	ttl   time.Duration
	token string
}

func NewJobLock(redis *redis.Client, name string, ttl time.Duration) *JobLock {
	return &JobLock{redis: redis, name: name, ttl: ttl}
}

func (l *JobLock) key() string {
	return fmt.Sprintf("jobs:%s:lock", l.name)
}

// TryAcquire attempts to take the lock without blocking. It returns false when
// another run already holds it.
func (l *JobLock) TryAcquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, l.key(), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s lock: %w", l.name, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// releaseScript deletes the lock only if this run still owns it, so an expired
// lock re-acquired by a newer run is never released from under it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *JobLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	err := releaseScript.Run(ctx, l.redis, []string{l.key()}, l.token).Err()
	l.token = ""
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release %s lock: %w", l.name, err)
	}
	return nil
}
