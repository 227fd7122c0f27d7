package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/resolverai/burnie-mindshare-sub002/config"
)

// JobState is the lifecycle stage of one edit job.
type JobState string

const (
	StatePending    JobState = "pending"
	StateProcessing JobState = "processing"
	StateCompleted  JobState = "completed"
	StateFailed     JobState = "failed"
)

// JobStatus is the status record stored per edit id.
type JobStatus struct {
	EditID    string    `json:"edit_id"`
	State     JobState  `json:"state"`
	OutputURL string    `json:"output_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusStore keeps job status records in Redis. A nil store is valid
// and drops every write, for deployments that run without Redis.
type StatusStore struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewStatusStore connects to Redis using a redis:// URL. An empty URL
// returns a nil store.
func NewStatusStore(ctx context.Context, redisURL string, logger zerolog.Logger) (*StatusStore, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &StatusStore{
		rdb:    rdb,
		logger: logger.With().Str("component", "status").Logger(),
	}, nil
}

// Set writes a status record. Status writes are advisory; a Redis error
// is logged but never fails the job.
func (s *StatusStore) Set(ctx context.Context, status JobStatus) {
	if s == nil {
		return
	}

	status.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(status)
	if err != nil {
		s.logger.Error().Err(err).Str("edit_id", status.EditID).Msg("failed to marshal job status")
		return
	}

	if err := s.rdb.Set(ctx, statusKey(status.EditID), raw, config.JobStatusTTL).Err(); err != nil {
		s.logger.Error().Err(err).Str("edit_id", status.EditID).Msg("failed to write job status")
	}
}

// Get looks up the status record for an edit id. The second return is
// false when no record exists or the store is disabled.
func (s *StatusStore) Get(ctx context.Context, editID string) (JobStatus, bool, error) {
	if s == nil {
		return JobStatus{}, false, nil
	}

	raw, err := s.rdb.Get(ctx, statusKey(editID)).Bytes()
	if err == redis.Nil {
		return JobStatus{}, false, nil
	}
	if err != nil {
		return JobStatus{}, false, fmt.Errorf("failed to read job status: %w", err)
	}

	var status JobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return JobStatus{}, false, fmt.Errorf("corrupt job status for %s: %w", editID, err)
	}
	return status, true, nil
}

// Close releases the Redis connection.
func (s *StatusStore) Close() error {
	if s == nil {
		return nil
	}
	return s.rdb.Close()
}

func statusKey(editID string) string {
	return "edit_status:" + editID
}
