package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/protokol-team/protokol/internal/domain/entities"
)

const statusTTL = 24 * time.Hour

// StatusCache is a best-effort mirror of job status in Redis for fast
// status queries. The database row stays the source of truth; cache
// failures are logged and swallowed.
type StatusCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStatusCache creates a status cache over an existing Redis client.
func NewStatusCache(client *redis.Client, logger *zap.Logger) *StatusCache {
	return &StatusCache{client: client, logger: logger}
}

// CachedStatus is the snapshot stored per job.
type CachedStatus struct {
	Status   entities.JobStatus `json:"status"`
	Progress int                `json:"progress"`
	Step     string             `json:"step"`
}

func statusKey(jobID uuid.UUID) string {
	return "protokol:job:" + jobID.String() + ":status"
}

// Set stores the latest snapshot for a job.
func (c *StatusCache) Set(ctx context.Context, jobID uuid.UUID, snapshot CachedStatus) {
	if c == nil || c.client == nil {
		return
	}
	b, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statusKey(jobID), b, statusTTL).Err(); err != nil {
		if c.logger != nil {
			c.logger.Debug("status cache write failed", zap.String("job_id", jobID.String()), zap.Error(err))
		}
	}
}

// Get returns the cached snapshot, or (nil, false) on miss or error.
func (c *StatusCache) Get(ctx context.Context, jobID uuid.UUID) (*CachedStatus, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	b, err := c.client.Get(ctx, statusKey(jobID)).Bytes()
	if err != nil {
		return nil, false
	}
	var snapshot CachedStatus
	if err := json.Unmarshal(b, &snapshot); err != nil {
		return nil, false
	}
	return &snapshot, true
}
