package models

import (
	"time"

	"github.com/google/uuid"
)

// WatchSession is one student's viewing session on a video, updated in
// place as progress telemetry arrives. A session flips to completed once
// percent_complete reaches 90.
type WatchSession struct {
	ID               uuid.UUID  `json:"id"`
	SessionID        string     `json:"session_id"`
	VideoID          uuid.UUID  `json:"video_id"`
	StudentID        uuid.UUID  `json:"student_id"`
	SessionStart     time.Time  `json:"session_start"`
	SessionEnd       *time.Time `json:"session_end,omitempty"`
	WatchTimeSeconds int64      `json:"watch_time_seconds"`
	PercentComplete  float64    `json:"percent_complete"`
	Completed        bool       `json:"completed"`
	DeviceType       string     `json:"device_type,omitempty"`
	ReferrerType     string     `json:"referrer_type,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CompletionThreshold is the percent_complete at which a watch session
// counts as a completion.
const CompletionThreshold = 90.0
