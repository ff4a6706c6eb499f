package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what a tracked analytics event describes.
type EventType string

const (
	EventVideoStarted     EventType = "video_started"
	EventVideoProgress    EventType = "video_progress"
	EventVideoCompleted   EventType = "video_completed"
	EventVideoTranscribed EventType = "video_transcribed"
	EventVideoImported    EventType = "video_imported"
	EventChatMessage      EventType = "chat_message"
	EventLogin            EventType = "login"
)

var validEventTypes = map[EventType]bool{
	EventVideoStarted:     true,
	EventVideoProgress:    true,
	EventVideoCompleted:   true,
	EventVideoTranscribed: true,
	EventVideoImported:    true,
	EventChatMessage:      true,
	EventLogin:            true,
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	return validEventTypes[t]
}

// Metadata is the free-form payload attached to an event. Known fields
// (watch_time_seconds, percent_complete, cost, method, file_size_mb,
// session_id, device_type) are read through the typed accessors below;
// a missing or mistyped field reads as the zero value.
type Metadata map[string]any

// Int64 returns the named field as an int64, or 0 when absent.
// JSON decoding yields float64 for numbers, so both are accepted.
func (m Metadata) Int64(key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float64 returns the named field as a float64, or 0 when absent.
func (m Metadata) Float64(key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// String returns the named field as a string, or "" when absent.
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// AnalyticsEvent is one tracked occurrence in a creator's hub: a playback
// milestone, an import, a transcription, a chat message or a login.
type AnalyticsEvent struct {
	ID        uuid.UUID  `json:"id"`
	EventType EventType  `json:"event_type"`
	CreatorID uuid.UUID  `json:"creator_id"`
	VideoID   *uuid.UUID `json:"video_id,omitempty"`
	StudentID *uuid.UUID `json:"student_id,omitempty"`
	CourseID  *uuid.UUID `json:"course_id,omitempty"`
	ModuleID  *uuid.UUID `json:"module_id,omitempty"`
	Metadata  Metadata   `json:"metadata,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
