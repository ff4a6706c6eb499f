package models

import (
	"time"

	"github.com/google/uuid"
)

// Video is one piece of content in a creator's library. Soft-deleted
// videos keep their rows (and their historical events) but are excluded
// from library-wide aggregates.
type Video struct {
	ID                  uuid.UUID  `json:"id"`
	CreatorID           uuid.UUID  `json:"creator_id"`
	CourseID            *uuid.UUID `json:"course_id,omitempty"`
	Title               string     `json:"title"`
	DurationSeconds     int        `json:"duration_seconds"`
	FileSizeMB          float64    `json:"file_size_mb"`
	TranscriptionMethod string     `json:"transcription_method,omitempty"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Student is a learner enrolled with a creator. JoinedAt anchors the
// student's retention cohort.
type Student struct {
	ID          uuid.UUID `json:"id"`
	CreatorID   uuid.UUID `json:"creator_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Course groups videos under a creator.
type Course struct {
	ID        uuid.UUID `json:"id"`
	CreatorID uuid.UUID `json:"creator_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
