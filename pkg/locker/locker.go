// Package locker provides distributed locking shared by service instances.
package locker

import (
	"context"
	"time"
)

// DistributedLocker provides distributed lock capabilities across multiple instances.
// Implementations must be safe for concurrent use.
//
//	acquired, err := locker.Acquire(ctx, "ratelimit:sweep", 5*time.Minute)
//	if err != nil || !acquired {
//	    return
//	}
//	defer locker.Release(ctx, "ratelimit:sweep")
type DistributedLocker interface {
	// Acquire attempts to acquire the lock for key.
	// Returns false when another holder keeps it. The lock expires after ttl
	// if never released.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release releases the lock for key if this instance owns it.
	Release(ctx context.Context, key string) error
}
