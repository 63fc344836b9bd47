package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OwnerLockKey builds redis keys for owner-scoped critical sections.
func OwnerLockKey(ownerID string) string {
	return fmt.Sprintf("scheduler:owner:%s:lock", ownerID)
}

// ErrLockHeld indicates another invocation owns the critical section.
var ErrLockHeld = errors.New("owner lock already held")

// OwnerLocker serializes scheduler runs per owner. Recurring processing
// reads next_due_date, computes the advance and writes it back; two
// concurrent runs for the same owner could otherwise materialize the
// same occurrence twice.
type OwnerLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOwnerLocker constructs a locker with the given lease TTL.
func NewOwnerLocker(client *redis.Client, ttl time.Duration) *OwnerLocker {
	return &OwnerLocker{client: client, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire takes the owner lock. The returned release func is safe to call
// after the lease expired; it only deletes the key if the token still
// matches.
func (l *OwnerLocker) Acquire(ctx context.Context, ownerID string) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("shared: owner locker not configured")
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	key := OwnerLockKey(ownerID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("shared: acquire owner lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
