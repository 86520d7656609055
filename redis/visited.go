// Package redis provides a visited-link set shared by every scan process
// of a run.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/adharvest"
	"github.com/redis/go-redis/v9"
)

const visitedPrefix = "visited:"

// DefaultTTL bounds how long a run's visited keys outlive it.
const DefaultTTL = 24 * time.Hour

// Ensure VisitedSet implements adharvest.VisitedSet at compile time.
var _ adharvest.VisitedSet = (*VisitedSet)(nil)

// VisitedSet records links under keys scoped to one run ID, so separate
// runs never see each other's links.
type VisitedSet struct {
	client *redis.Client
	runID  string
	ttl    time.Duration
}

// NewVisitedSet creates a VisitedSet for runID. A non-positive ttl uses
// DefaultTTL.
func NewVisitedSet(client *redis.Client, runID string, ttl time.Duration) (*VisitedSet, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if runID == "" {
		return nil, adharvest.Errorf(adharvest.EINVALID, "run id is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &VisitedSet{client: client, runID: runID, ttl: ttl}, nil
}

// Key returns the Redis key that marks link as visited.
func (v *VisitedSet) Key(link string) string {
	return fmt.Sprintf("%s%s:%016x", visitedPrefix, v.runID, xxhash.Sum64String(link))
}

// MarkIfNew sets the link's key if absent and reports whether it did.
// SETNX makes the check and the insert a single atomic step.
func (v *VisitedSet) MarkIfNew(ctx context.Context, link string) (bool, error) {
	ok, err := v.client.SetNX(ctx, v.Key(link), "1", v.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark visited %s: %w", link, err)
	}
	return ok, nil
}

// Ping verifies the connection.
func (v *VisitedSet) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}
