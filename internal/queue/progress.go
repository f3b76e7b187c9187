package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type State string

const (
	StateQueued     State = "queued"
	StateDownloading State = "downloading"
	StateExtracting State = "extracting"
	StateOCR        State = "ocr"
	StateChunking   State = "chunking"
	StateEmbedding  State = "embedding"
	StateSaving     State = "saving"
	StateReady      State = "ready"
	StateFailed     State = "failed"
	StateError      State = "error"
	StateUnknown    State = "unknown"
)

// IsTerminal reports whether the streamer should stop on reaching this
// state.
func (s State) IsTerminal() bool {
	switch s {
	case StateReady, StateFailed, StateError, StateUnknown:
		return true
	default:
		return false
	}
}

// Status is the single cache key per job carrying a small JSON blob —
// the progress bus's source of truth, not a pub/sub channel, so the
// streamer tolerates missed intermediate ticks.
type Status struct {
	JobID     string          `json:"job_id"`
	State     State           `json:"state"`
	Pct       int             `json:"pct"`
	Message   string          `json:"message"`
	UpdatedAt time.Time       `json:"updated_at"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type ProgressBus struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProgressBus(rdb *redis.Client, ttl time.Duration) *ProgressBus {
	return &ProgressBus{rdb: rdb, ttl: ttl}
}

func statusKey(jobID string) string { return "job:status:" + jobID }

// Update writes a new status, enforcing the "monotonic in pct within one
// job until a terminal state" ordering guarantee at the caller's
// discretion — the bus itself just persists whatever it's given, since
// only the worker that owns a job ever calls Update for it.
func (b *ProgressBus) Update(ctx context.Context, jobID string, state State, pct int, message string, result json.RawMessage, errMsg string) error {
	status := Status{
		JobID:     jobID,
		State:     state,
		Pct:       pct,
		Message:   message,
		UpdatedAt: time.Now(),
		Result:    result,
		Error:     errMsg,
	}
	body, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("progress: marshal status: %w", err)
	}
	return b.rdb.Set(ctx, statusKey(jobID), body, b.ttl).Err()
}

// Get reads the current status, returning StateUnknown if the key has
// expired or never existed.
func (b *ProgressBus) Get(ctx context.Context, jobID string) (Status, error) {
	raw, err := b.rdb.Get(ctx, statusKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{JobID: jobID, State: StateUnknown}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("progress: get: %w", err)
	}
	var status Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return Status{}, fmt.Errorf("progress: unmarshal: %w", err)
	}
	return status, nil
}
