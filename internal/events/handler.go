package events

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Agentic-Person/whop-chronos-sub010/internal/models"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/response"
)

// TrackEventRequest is the body for POST /events.
type TrackEventRequest struct {
	EventType string         `json:"event_type" binding:"required"`
	CreatorID uuid.UUID      `json:"creator_id" binding:"required"`
	VideoID   *uuid.UUID     `json:"video_id,omitempty"`
	StudentID *uuid.UUID     `json:"student_id,omitempty"`
	CourseID  *uuid.UUID     `json:"course_id,omitempty"`
	ModuleID  *uuid.UUID     `json:"module_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
}

// Enqueuer hands validated events to the ingest queue.
type Enqueuer interface {
	EnqueueEvent(ctx context.Context, event models.AnalyticsEvent) error
}

// Handler handles POST /events.
type Handler struct {
	queue  Enqueuer
	logger *zap.Logger
}

// NewHandler creates a telemetry ingest handler.
func NewHandler(queue Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{queue: queue, logger: logger}
}

// TrackResponse acknowledges an accepted event.
type TrackResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// Track handles POST /events. The event is validated, queued and written
// by the ingest worker; the player gets its 202 without waiting on
// Postgres.
func (h *Handler) Track(c *gin.Context) {
	var req TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventType := models.EventType(req.EventType)
	if !eventType.Valid() {
		response.BadRequest(c, "invalid event_type: "+req.EventType)
		return
	}

	event := models.AnalyticsEvent{
		ID:        uuid.New(),
		EventType: eventType,
		CreatorID: req.CreatorID,
		VideoID:   req.VideoID,
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		ModuleID:  req.ModuleID,
		Metadata:  models.Metadata(req.Metadata),
		Timestamp: time.Now().UTC(),
	}
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		event.Timestamp = req.Timestamp.UTC()
	}

	if err := h.queue.EnqueueEvent(c.Request.Context(), event); err != nil {
		h.logger.Error("enqueue event failed",
			zap.String("event_type", req.EventType),
			zap.String("creator_id", req.CreatorID.String()),
			zap.Error(err))
		response.ServiceUnavailable(c, "event ingestion unavailable")
		return
	}

	response.Accepted(c, TrackResponse{EventID: event.ID.String(), Status: "queued"})
}
