package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeRenderJob is the task type the API enqueues on job creation; it plays
// the role a document-create trigger plays on a managed platform.
const TypeRenderJob = "render:job"

// RenderPayload is the task body.
type RenderPayload struct {
	JobID string `json:"job_id"`
}

// Enqueuer schedules render work for newly created jobs.
type Enqueuer interface {
	EnqueueRenderJob(ctx context.Context, jobID string) error
}

// QueueEnqueuer submits render tasks to the asynq queue.
type QueueEnqueuer struct {
	client *asynq.Client
}

// NewEnqueuer builds an enqueuer over the shared Redis connection options.
func NewEnqueuer(redisOpt asynq.RedisClientOpt) *QueueEnqueuer {
	return &QueueEnqueuer{client: asynq.NewClient(redisOpt)}
}

// EnqueueRenderJob submits one render task. Retries are bounded; the
// orchestrator's conditional status writes make redelivery a no-op.
func (e *QueueEnqueuer) EnqueueRenderJob(ctx context.Context, jobID string) error {
	payload, err := json.Marshal(RenderPayload{JobID: jobID})
	if err != nil {
		return fmt.Errorf("marshal render payload: %w", err)
	}
	task := asynq.NewTask(TypeRenderJob, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(20*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue render task: %w", err)
	}
	return nil
}

// Close releases the queue connection.
func (e *QueueEnqueuer) Close() error {
	return e.client.Close()
}

// HandleRenderTask adapts ProcessJob to the asynq handler contract.
func (o *Orchestrator) HandleRenderTask(ctx context.Context, t *asynq.Task) error {
	var payload RenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode render payload: %w", err)
	}
	if payload.JobID == "" {
		return fmt.Errorf("render payload missing job id")
	}
	return o.ProcessJob(ctx, payload.JobID)
}

var _ Enqueuer = (*QueueEnqueuer)(nil)
