package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types understood by the ingest API.
const (
	EventVideoStarted   = "video_started"
	EventVideoProgress  = "video_progress"
	EventVideoCompleted = "video_completed"
)

// Event is one telemetry record bound for the ingest API.
type Event struct {
	EventType string         `json:"event_type"`
	VideoID   uuid.UUID      `json:"video_id"`
	CreatorID uuid.UUID      `json:"creator_id"`
	StudentID *uuid.UUID     `json:"student_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Submitter sends one telemetry event. The batch emitter depends on
// this instead of the concrete client.
type Submitter interface {
	Submit(ctx context.Context, event Event) error
}

// Defaults for client construction.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 10 * time.Second
)

// Config describes how the client reaches the ingest API.
type Config struct {
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Client posts telemetry to the ingest API, retrying transient failures
// with a linearly growing delay.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewClient creates a telemetry client. Zero config fields fall back to
// the package defaults.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// Submit sends one event, waiting retryDelay*attempt between tries. It
// returns the final error once every attempt has failed.
func (c *Client) Submit(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.retryDelay * time.Duration(attempt-1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = c.post(ctx, body); lastErr == nil {
			return nil
		}
		c.logger.Warn("telemetry submit failed",
			zap.String("event_type", event.EventType),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
	}
	return fmt.Errorf("submit after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("ingest returned %s", resp.Status)
	}
	return nil
}

// TrackStart reports a playback start. Like every single-shot tracker it
// drops the event after exhausted retries; telemetry never breaks the
// player.
func (c *Client) TrackStart(ctx context.Context, videoID, creatorID uuid.UUID, studentID *uuid.UUID) {
	c.track(ctx, Event{
		EventType: EventVideoStarted,
		VideoID:   videoID,
		CreatorID: creatorID,
		StudentID: studentID,
	})
}

// TrackProgress reports a mid-playback checkpoint.
func (c *Client) TrackProgress(ctx context.Context, videoID, creatorID uuid.UUID, studentID *uuid.UUID, sessionID string, percentComplete, currentTime float64) {
	c.track(ctx, Event{
		EventType: EventVideoProgress,
		VideoID:   videoID,
		CreatorID: creatorID,
		StudentID: studentID,
		Metadata: map[string]any{
			"session_id":       sessionID,
			"percent_complete": percentComplete,
			"current_time":     currentTime,
		},
	})
}

// TrackComplete reports a finished viewing.
func (c *Client) TrackComplete(ctx context.Context, videoID, creatorID uuid.UUID, studentID *uuid.UUID, sessionID string, watchTimeSeconds int64) {
	c.track(ctx, Event{
		EventType: EventVideoCompleted,
		VideoID:   videoID,
		CreatorID: creatorID,
		StudentID: studentID,
		Metadata: map[string]any{
			"session_id":         sessionID,
			"watch_time_seconds": watchTimeSeconds,
			"percent_complete":   100,
		},
	})
}

func (c *Client) track(ctx context.Context, event Event) {
	if err := c.Submit(ctx, event); err != nil {
		c.logger.Warn("telemetry dropped",
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}
