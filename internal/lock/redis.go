// Package lock provides a booking.Locker shared by every server instance
// through Redis.
package lock

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/resource-booking/internal/booking"
)

// ErrLockTimeout is returned when the lock could not be taken before the
// caller's context expired.
var ErrLockTimeout = errors.New("resource lock timeout")

// Release only deletes the key when it still holds our token, so an
// expired lock that was re-acquired elsewhere is left alone.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX PX lock keyed by resource id.  The TTL bounds
// how long a crashed holder can block a resource; the database row lock
// taken inside the admission transaction stays authoritative.
type RedisLocker struct {
    rdb    *redis.Client
    ttl    time.Duration
    prefix string
    retry  time.Duration
}

var _ booking.Locker = (*RedisLocker)(nil)

// NewRedisLocker returns a locker with the given key TTL.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
    if ttl <= 0 {
        ttl = 10 * time.Second
    }
    return &RedisLocker{rdb: rdb, ttl: ttl, prefix: "booking:lock:resource", retry: 25 * time.Millisecond}
}

func (l *RedisLocker) key(resourceID uint64) string {
    return fmt.Sprintf("%s:%d", l.prefix, resourceID)
}

// Lock polls until the key is free or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, resourceID uint64) (func(), error) {
    key := l.key(resourceID)
    token := uuid.NewString()
    ticker := time.NewTicker(l.retry)
    defer ticker.Stop()
    for {
        ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
        if err != nil {
            if ctx.Err() != nil {
                return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
            }
            return nil, fmt.Errorf("acquire lock %s: %w", key, err)
        }
        if ok {
            break
        }
        select {
        case <-ctx.Done():
            return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
        case <-ticker.C:
        }
    }
    var once sync.Once
    return func() {
        once.Do(func() {
            // The request context may already be cancelled at this point.
            rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
            defer cancel()
            _ = releaseScript.Run(rctx, l.rdb, []string{key}, token).Err()
        })
    }, nil
}
