package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/projaxis/authcore/internal/database/models"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeAuditEvent, h.HandleAuditEvent)
}

func (h *Handler) HandleAuditEvent(ctx context.Context, t *asynq.Task) error {
	var payload AuditEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	event := models.AuditEvent{
		ActorID:        payload.ActorID,
		OrganizationID: payload.OrganizationID,
		ProjectID:      payload.ProjectID,
		SubjectID:      payload.SubjectID,
		Action:         payload.Action,
		Outcome:        payload.Outcome,
		Detail:         payload.Detail,
	}
	if event.Detail == "" {
		event.Detail = "{}"
	}
	event.CreatedAt = payload.OccurredAt

	if err := h.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("persist audit event: %w", err)
	}

	h.logger.Info("audit event recorded",
		"action", payload.Action,
		"outcome", payload.Outcome,
		"actor_id", payload.ActorID,
	)
	return nil
}
