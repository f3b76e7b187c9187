// Package queue implements the durable job queue workers pull ingestion
// and override-detection tasks from, a Redis list used as a FIFO within
// a single priority class.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const jobsKey = "ruleoracle:jobs"

type JobKind string

const (
	JobIngest           JobKind = "ingest"
	JobDetectOverrides  JobKind = "detect_overrides"
)

// Job is one queued unit of work; the timeout is enforced by the worker
// loop, not by Redis. ResultTTLS is carried with the job but not read by
// the worker; status records expire on the progress bus's own TTL.
type Job struct {
	ID        string          `json:"id"`
	Kind      JobKind         `json:"kind"`
	Args      json.RawMessage `json:"args"`
	TimeoutS  int             `json:"timeout_s"`
	ResultTTLS int            `json:"result_ttl_s"`
	CreatedAt time.Time       `json:"created_at"`
}

type Queue struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Queue { return &Queue{rdb: rdb} }

// Enqueue appends a job to the tail of the queue.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	return q.rdb.RPush(ctx, jobsKey, body).Err()
}

// Dequeue blocks until a job is available or ctx is cancelled, pulling
// jobs in FIFO order.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.rdb.BLPop(ctx, 0, jobsKey).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("queue: blpop: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("queue: unexpected blpop result %v", result)
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue: unmarshal job: %w", err)
	}
	return &job, nil
}
