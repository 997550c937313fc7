package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"appforge-controlplane/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler consumes audit intent tasks and persists them.
type Handler struct {
	repo repository.Repository[AuditLog]
	node *snowflake.Node
}

type HandlerParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		repo: repository.ProvideStore[AuditLog](p.DB),
		node: p.Node,
	}
}

func (h *Handler) HandleRecord(ctx context.Context, t *asynq.Task) error {
	var p RecordPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal audit payload: %w", err)
	}

	row := &AuditLog{
		ID:             h.node.Generate().String(),
		OrganizationID: p.OrganizationID,
		UserID:         p.ActorID,
		ActionType:     p.ActionType,
		ResourceID:     p.ResourceID,
		ResourceType:   p.ResourceType,
		ResourceName:   p.ResourceName,
		RecordedAt:     p.RecordedAt,
	}

	if err := h.repo.Create(ctx, row); err != nil {
		return fmt.Errorf("persist audit log: %w", err)
	}

	zap.L().Info("audit log written",
		zap.String("action_type", p.ActionType),
		zap.String("resource_id", p.ResourceID),
	)
	return nil
}

func RegisterHandlers(mux *asynq.ServeMux, h *Handler) {
	mux.HandleFunc(TaskAuditRecord, h.HandleRecord)
}
