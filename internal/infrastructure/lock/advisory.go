package lock

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdvisoryLocker implements Locker with Postgres session advisory locks.
// The lock is bound to a dedicated connection that is pinned for the full
// duration of the run, so it holds across every process that shares the
// database.
type AdvisoryLocker struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAdvisoryLocker creates an advisory locker over the shared gorm handle.
func NewAdvisoryLocker(db *gorm.DB, logger *zap.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, logger: logger}
}

// lockKey maps a job uuid onto the bigint keyspace of pg advisory locks.
func lockKey(jobID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(jobID[:])
	return int64(h.Sum64())
}

// TryAcquire takes pg_try_advisory_lock on a pinned connection.
// "Skip, don't wait": an already-held lock returns acquired=false
// immediately.
func (l *AdvisoryLocker) TryAcquire(ctx context.Context, jobID uuid.UUID) (func(), bool, error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get database object: %w", err)
	}

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to pin lock connection: %w", err)
	}

	key := lockKey(jobID)
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return nil, false, nil
	}

	release := func() {
		// Release must not inherit a cancelled run context.
		ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
		defer cancel()
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", key); err != nil {
			if l.logger != nil {
				l.logger.Warn("failed to release advisory lock",
					zap.String("job_id", jobID.String()),
					zap.Error(err),
				)
			}
		}
		conn.Close()
	}
	return release, true, nil
}
