package audit

import (
	"context"
	"encoding/json"
	"time"

	"appforge-controlplane/pkg/task"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TaskAuditRecord = "audit:record"

// RecordPayload is the intent record emitted when a privileged action is
// permitted: actor, action, resource and timestamp. Persistence is the
// worker's responsibility.
type RecordPayload struct {
	ActorID        string    `json:"actor_id"`
	OrganizationID string    `json:"organization_id"`
	ActionType     string    `json:"action_type"`
	ResourceID     string    `json:"resource_id"`
	ResourceType   string    `json:"resource_type"`
	ResourceName   string    `json:"resource_name"`
	RecordedAt     time.Time `json:"recorded_at"`
}

func NewRecordTask(p RecordPayload) *asynq.Task {
	payload, _ := json.Marshal(p)
	return asynq.NewTask(TaskAuditRecord, payload,
		asynq.MaxRetry(3),
		asynq.Queue("default"),
	)
}

// Recorder emits intent records for privileged actions. Emission happens
// only after the guard has permitted the operation.
type Recorder interface {
	Record(ctx context.Context, p RecordPayload)
}

type recorder struct {
	enqueuer task.Enqueuer
}

func NewRecorder(enqueuer task.Enqueuer) Recorder {
	return &recorder{enqueuer: enqueuer}
}

func (r *recorder) Record(ctx context.Context, p RecordPayload) {
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now()
	}

	if _, err := r.enqueuer.Enqueue(NewRecordTask(p)); err != nil {
		zap.L().Error("failed to enqueue audit record",
			zap.String("action_type", p.ActionType),
			zap.String("actor_id", p.ActorID),
			zap.Error(err),
		)
	}
}
