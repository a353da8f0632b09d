package lock

import (
	"context"

	"github.com/google/uuid"
)

// Locker guarantees at most one active pipeline run per job across
// processes. TryAcquire never blocks: when the lock is already held the
// caller must skip the run entirely.
type Locker interface {
	// TryAcquire attempts to take the lock for a job. On success it
	// returns a release function that must run on every exit path.
	TryAcquire(ctx context.Context, jobID uuid.UUID) (release func(), acquired bool, err error)
}
