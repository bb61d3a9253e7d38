// Package queue is a Redis-list job queue feeding the background worker:
// outbound email and object-storage cleanup.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueJobs is the Redis list key for worker jobs.
	QueueJobs = "worker:jobs"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// PendingCleanupSet tracks storage keys awaiting deletion; the daily
	// sweep re-enqueues anything left behind by failed cleanup jobs.
	PendingCleanupSet = "worker:pending_cleanup"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeEmail          JobType = "email"
	JobTypeStorageCleanup JobType = "storage_cleanup"
)

// EmailPayload is the payload for email jobs. EmailLogID references the
// audit row updated by the worker after delivery.
type EmailPayload struct {
	EmailLogID     uuid.UUID  `json:"email_log_id"`
	EmailType      string     `json:"email_type"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	BodyHTML       string     `json:"body_html"`
}

// StorageCleanupPayload lists object keys to remove from storage.
type StorageCleanupPayload struct {
	Keys []string `json:"keys"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueEmail enqueues an email job.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := q.push(ctx, JobTypeEmail, body); err != nil {
		return err
	}
	q.logger.Debug("enqueued email job",
		zap.String("email_type", payload.EmailType),
		zap.String("recipient", payload.RecipientEmail))
	return nil
}

// EnqueueStorageCleanup enqueues removal of storage objects. Keys are also
// recorded in the pending set so the daily sweep can recover them if the job
// is lost.
func (q *Queue) EnqueueStorageCleanup(ctx context.Context, payload StorageCleanupPayload) error {
	if len(payload.Keys) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(payload.Keys))
	for _, k := range payload.Keys {
		members = append(members, k)
	}
	if err := q.client.SAdd(ctx, PendingCleanupSet, members...).Err(); err != nil {
		q.logger.Warn("record pending cleanup failed", zap.Error(err))
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := q.push(ctx, JobTypeStorageCleanup, body); err != nil {
		return err
	}
	q.logger.Debug("enqueued storage cleanup job", zap.Int("keys", len(payload.Keys)))
	return nil
}

// MarkCleaned removes keys from the pending-cleanup set after deletion.
func (q *Queue) MarkCleaned(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		members = append(members, k)
	}
	return q.client.SRem(ctx, PendingCleanupSet, members...).Err()
}

// PendingCleanupKeys returns storage keys still awaiting deletion.
func (q *Queue) PendingCleanupKeys(ctx context.Context) ([]string, error) {
	return q.client.SMembers(ctx, PendingCleanupSet).Result()
}

func (q *Queue) push(ctx context.Context, jobType JobType, payload json.RawMessage) error {
	job := Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueJobs, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// Dequeue blocks until a job is available or ctx is done. Returns the job
// and the queue key it came from.
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueJobs).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries,
// pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueJobs, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
