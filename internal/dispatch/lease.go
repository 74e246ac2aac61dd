package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease key only if it still holds our token, so an
// expired lease reacquired by another run is never released from here.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a per-org dispatch run lease backed by Redis. It prevents two
// scheduler triggers from running overlapping dispatch batches for the same
// org. Correctness does not depend on it: the store's conditional status
// updates are the at-most-once backstop.
type Lease struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewLease creates a lease manager. ttl bounds how long a crashed run can
// block subsequent ones.
func NewLease(client redis.UniversalClient, ttl time.Duration) *Lease {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Lease{client: client, ttl: ttl}
}

func leaseKey(orgID string) string {
	return "reminders:dispatch:lease:" + orgID
}

// Acquire attempts to take the org's dispatch lease. Returns the release
// token and true on success, and false when another run holds it.
func (l *Lease) Acquire(ctx context.Context, orgID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, leaseKey(orgID), token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("dispatch: acquire lease: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release gives the lease back. Best effort: an error only means the lease
// will sit until its TTL expires.
func (l *Lease) Release(ctx context.Context, orgID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{leaseKey(orgID)}, token).Err(); err != nil {
		return fmt.Errorf("dispatch: release lease: %w", err)
	}
	return nil
}
