package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Agentic-Person/whop-chronos-sub010/internal/models"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/queue"
)

// EventStore persists ingested events and their watch sessions.
type EventStore interface {
	Append(ctx context.Context, e *models.AnalyticsEvent) error
	UpsertWatchSession(ctx context.Context, s *models.WatchSession) error
}

// CacheInvalidator drops a creator's cached reports once new data lands.
type CacheInvalidator interface {
	InvalidateCreator(ctx context.Context, creatorID uuid.UUID) int
}

// IngestProcessor processes event ingest jobs: persist the event, advance its
// watch session, invalidate the creator's cached reports.
type IngestProcessor struct {
	store  EventStore
	cache  CacheInvalidator
	queue  *queue.Queue
	logger *zap.Logger
}

// NewIngestProcessor creates an event ingest processor.
func NewIngestProcessor(store EventStore, cache CacheInvalidator, q *queue.Queue, logger *zap.Logger) *IngestProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestProcessor{store: store, cache: cache, queue: q, logger: logger}
}

// Process executes one event ingest job.
func (p *IngestProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEventIngest {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var event models.AnalyticsEvent
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if !event.EventType.Valid() {
		return fmt.Errorf("invalid event type: %s", event.EventType)
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := p.store.Append(ctx, &event); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	if session := watchSessionFrom(&event); session != nil {
		if err := p.store.UpsertWatchSession(ctx, session); err != nil {
			return fmt.Errorf("upsert watch session: %w", err)
		}
	}

	// Stale reports are worse than a cold cache: every ingested event
	// drops whatever was cached for the creator.
	if p.cache != nil {
		removed := p.cache.InvalidateCreator(ctx, event.CreatorID)
		if removed > 0 {
			p.logger.Debug("invalidated cached reports",
				zap.String("creator_id", event.CreatorID.String()),
				zap.Int("removed", removed))
		}
	}

	p.logger.Debug("event ingested",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", string(event.EventType)),
		zap.String("creator_id", event.CreatorID.String()))
	return nil
}

// watchSessionFrom builds the session update carried by playback telemetry.
// Events other than progress and completion, or ones missing attribution or
// a session id, do not touch sessions.
func watchSessionFrom(e *models.AnalyticsEvent) *models.WatchSession {
	if e.EventType != models.EventVideoProgress && e.EventType != models.EventVideoCompleted {
		return nil
	}
	if e.VideoID == nil || e.StudentID == nil {
		return nil
	}
	sessionID := e.Metadata.String("session_id")
	if sessionID == "" {
		return nil
	}

	s := &models.WatchSession{
		ID:               uuid.New(),
		SessionID:        sessionID,
		VideoID:          *e.VideoID,
		StudentID:        *e.StudentID,
		SessionStart:     e.Timestamp,
		WatchTimeSeconds: e.Metadata.Int64("watch_time_seconds"),
		PercentComplete:  e.Metadata.Float64("percent_complete"),
		DeviceType:       e.Metadata.String("device_type"),
		ReferrerType:     e.Metadata.String("referrer_type"),
	}
	s.Completed = s.PercentComplete >= models.CompletionThreshold
	if e.EventType == models.EventVideoCompleted {
		if s.PercentComplete == 0 {
			s.PercentComplete = 100
		}
		end := e.Timestamp
		s.SessionEnd = &end
		s.Completed = true
	}
	return s
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *IngestProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("ingest worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
