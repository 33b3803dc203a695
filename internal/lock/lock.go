// Package lock serializes work per key (one repair per user at a time).
package lock

import (
	"context"
	"errors"
	"time"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

// retryInterval is how often a blocked Lock call polls.
const retryInterval = 50 * time.Millisecond

// Locker hands out exclusive leases on a key. The returned release func is
// safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

func waitErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrLockTimeout
	}
	return ctx.Err()
}
