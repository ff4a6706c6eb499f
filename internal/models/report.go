package models

import (
	"time"

	"github.com/google/uuid"
)

// SummaryMetrics are the headline numbers for a reporting window.
type SummaryMetrics struct {
	TotalViews            int     `json:"total_views"`
	TotalWatchTimeSeconds int64   `json:"total_watch_time_seconds"`
	AvgCompletionRate     float64 `json:"avg_completion_rate"`
	NewVideos             int     `json:"new_videos"`
}

// Trends hold integer percentage deltas against the preceding window of
// equal length.
type Trends struct {
	Views          int `json:"views"`
	WatchTime      int `json:"watch_time"`
	CompletionRate int `json:"completion_rate"`
	Videos         int `json:"videos"`
}

// DailyViews is one day in the views-over-time series. Days without
// views are present with a zero count.
type DailyViews struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// VideoCompletionRate ranks one video by how often starts turn into
// completions inside the window.
type VideoCompletionRate struct {
	VideoID        uuid.UUID `json:"video_id"`
	Title          string    `json:"title"`
	Views          int       `json:"views"`
	Completions    int       `json:"completions"`
	CompletionRate float64   `json:"completion_rate"`
}

// CostBreakdownRow sums transcription spend for one processing method.
type CostBreakdownRow struct {
	Method    string  `json:"method"`
	TotalCost float64 `json:"total_cost"`
	Events    int     `json:"events"`
}

// StoragePoint is one day in the cumulative storage series.
type StoragePoint struct {
	Date    string  `json:"date"`
	AddedMB float64 `json:"added_mb"`
	TotalMB float64 `json:"total_mb"`
}

// ActivityCell counts events in one weekday/hour slot (weekday 0 is
// Sunday, hours in UTC).
type ActivityCell struct {
	Weekday int `json:"weekday"`
	Hour    int `json:"hour"`
	Events  int `json:"events"`
}

// EngagementSummary describes how actively students used the library
// inside the window.
type EngagementSummary struct {
	ActiveStudents      int            `json:"active_students"`
	AvgVideosPerStudent float64        `json:"avg_videos_per_student"`
	PeakActivity        []ActivityCell `json:"peak_activity"`
}

// VideoPerformance ranks one video by views inside the window.
type VideoPerformance struct {
	VideoID             uuid.UUID `json:"video_id"`
	Title               string    `json:"title"`
	Views               int       `json:"views"`
	AvgWatchTimeSeconds float64   `json:"avg_watch_time_seconds"`
	CompletionRate      float64   `json:"completion_rate"`
}

// AnalyticsReport is the assembled dashboard report for one creator and
// one reporting window.
type AnalyticsReport struct {
	CreatorID       uuid.UUID             `json:"creator_id"`
	Range           RangeType             `json:"range"`
	Window          DateRange             `json:"window"`
	GeneratedAt     time.Time             `json:"generated_at"`
	Summary         SummaryMetrics        `json:"summary"`
	Trends          Trends                `json:"trends"`
	ViewsOverTime   []DailyViews          `json:"views_over_time"`
	CompletionRates []VideoCompletionRate `json:"completion_rates"`
	CostBreakdown   []CostBreakdownRow    `json:"cost_breakdown"`
	StorageUsage    []StoragePoint        `json:"storage_usage"`
	Engagement      EngagementSummary     `json:"engagement"`
	TopVideos       []VideoPerformance    `json:"top_videos"`
}
