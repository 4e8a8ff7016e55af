package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nao1215/docingest/internal/model"
)

// DefaultRedisPrefix is used when no key prefix is configured.
const DefaultRedisPrefix = "docingest:job:"

// StatusClient is the part of *redis.Client the mirror uses.
type StatusClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Close() error
}

// JobStatus is the mirrored view of a crawl job.
type JobStatus struct {
	JobID        string          `json:"job_id"`
	KBID         string          `json:"kb_id"`
	StartURL     string          `json:"start_url"`
	Status       model.JobStatus `json:"status"`
	PagesFetched int             `json:"pages_fetched"`
	PagesSkipped int             `json:"pages_skipped"`
	Errors       int             `json:"errors"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

// RedisStatusMirror writes every job transition to Redis. The status is
// stored under prefix+jobID and under prefix+"kb:"+kbID for the latest job
// of a knowledge base.
type RedisStatusMirror struct {
	client StatusClient
	prefix string
	ttl    time.Duration
}

// NewRedisStatusMirror connects to addr. A zero ttl keeps keys forever.
func NewRedisStatusMirror(addr, prefix string, ttl time.Duration) *RedisStatusMirror {
	return NewRedisStatusMirrorWithClient(redis.NewClient(&redis.Options{Addr: addr}), prefix, ttl)
}

// NewRedisStatusMirrorWithClient builds a mirror on a custom client (tests).
func NewRedisStatusMirrorWithClient(client StatusClient, prefix string, ttl time.Duration) *RedisStatusMirror {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStatusMirror{client: client, prefix: prefix, ttl: ttl}
}

// Close closes the Redis client.
func (m *RedisStatusMirror) Close() error {
	return m.client.Close()
}

// JobChanged writes the current state of job.
func (m *RedisStatusMirror) JobChanged(ctx context.Context, job *model.CrawlJob) error {
	payload, err := json.Marshal(JobStatus{
		JobID:        job.ID,
		KBID:         job.KBID,
		StartURL:     job.StartURL,
		Status:       job.Status,
		PagesFetched: job.PagesFetched,
		PagesSkipped: job.PagesSkipped,
		Errors:       len(job.Errors),
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode job status: %w", err)
	}

	for _, key := range []string{m.prefix + job.ID, m.prefix + "kb:" + job.KBID} {
		if err := m.client.Set(ctx, key, payload, m.ttl).Err(); err != nil {
			return fmt.Errorf("failed to mirror job status: %w", err)
		}
	}
	return nil
}

// Get reads the mirrored status of a job. The boolean is false when no
// status is stored.
func (m *RedisStatusMirror) Get(ctx context.Context, jobID string) (JobStatus, bool, error) {
	return m.get(ctx, m.prefix+jobID)
}

// Latest reads the status of the most recent job of a knowledge base.
func (m *RedisStatusMirror) Latest(ctx context.Context, kbID string) (JobStatus, bool, error) {
	return m.get(ctx, m.prefix+"kb:"+kbID)
}

func (m *RedisStatusMirror) get(ctx context.Context, key string) (JobStatus, bool, error) {
	val, err := m.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return JobStatus{}, false, nil
		}
		return JobStatus{}, false, err
	}

	var status JobStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return JobStatus{}, false, fmt.Errorf("failed to decode job status: %w", err)
	}
	return status, true, nil
}
