package analytics

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agentic-Person/whop-chronos-sub010/internal/models"
)

func sampleReport() *models.AnalyticsReport {
	return &models.AnalyticsReport{
		CreatorID: uuid.New(),
		Range:     models.RangeLast7Days,
		Summary: models.SummaryMetrics{
			TotalViews:            15,
			TotalWatchTimeSeconds: 840,
			AvgCompletionRate:     35.0,
			NewVideos:             2,
		},
		Trends: models.Trends{Views: 200, WatchTime: 68, CompletionRate: -30, Videos: 100},
		ViewsOverTime: []models.DailyViews{
			{Date: "2026-08-17", Views: 0},
			{Date: "2026-08-18", Views: 15},
		},
		CompletionRates: []models.VideoCompletionRate{
			{VideoID: uuid.New(), Title: "Alpha", Views: 10, Completions: 7, CompletionRate: 70},
			{VideoID: uuid.New(), Title: "Intro, Part 1", Views: 3, Completions: 1, CompletionRate: 100.0 / 3},
		},
		CostBreakdown: []models.CostBreakdownRow{
			{Method: "assemblyai", TotalCost: 3, Events: 1},
			{Method: "whisper", TotalCost: 4, Events: 2},
		},
		StorageUsage: []models.StoragePoint{
			{Date: "2026-08-17", AddedMB: 500, TotalMB: 500},
			{Date: "2026-08-18", AddedMB: 0, TotalMB: 500},
		},
		Engagement: models.EngagementSummary{
			ActiveStudents:      2,
			AvgVideosPerStudent: 1.5,
			PeakActivity: []models.ActivityCell{
				{Weekday: 2, Hour: 10, Events: 15},
				{Weekday: 2, Hour: 11, Events: 7},
			},
		},
		TopVideos: []models.VideoPerformance{
			{VideoID: uuid.New(), Title: "Alpha", Views: 10, AvgWatchTimeSeconds: 120, CompletionRate: 70},
		},
	}
}

func TestRenderCSVSectionOrder(t *testing.T) {
	out := string(RenderCSV(sampleReport()))

	sections := []string{
		"SUMMARY METRICS",
		"TRENDS",
		"VIEWS OVER TIME",
		"COMPLETION RATES BY VIDEO",
		"COST BREAKDOWN",
		"STORAGE USAGE",
		"STUDENT ENGAGEMENT",
		"PEAK ACTIVITY HOURS",
		"TOP PERFORMING VIDEOS",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(out, s)
		require.NotEqual(t, -1, idx, "missing section %q", s)
		assert.Greater(t, idx, last, "section %q out of order", s)
		last = idx
	}
}

func TestRenderCSVRows(t *testing.T) {
	out := string(RenderCSV(sampleReport()))

	assert.Contains(t, out, "Total Views,15")
	assert.Contains(t, out, "Average Completion Rate (%),35.0")
	assert.Contains(t, out, "Completion Rate,-30")
	assert.Contains(t, out, "2026-08-18,15")
	assert.Contains(t, out, "Alpha,10,7,70.0")
	assert.Contains(t, out, `"Intro, Part 1",3,1,33.3`, "titles with commas stay quoted")
	assert.Contains(t, out, "whisper,4.00,2")
	assert.Contains(t, out, "2026-08-17,500.0,500.0")
	assert.Contains(t, out, "Avg Videos per Student,1.5")
	assert.Contains(t, out, "Tuesday,10,15")
	assert.Contains(t, out, "Alpha,10,120.0,70.0")
}

func TestRenderCSVCapsPeakActivity(t *testing.T) {
	report := sampleReport()
	report.Engagement.PeakActivity = nil
	for i := 0; i < 12; i++ {
		report.Engagement.PeakActivity = append(report.Engagement.PeakActivity,
			models.ActivityCell{Weekday: 3, Hour: i, Events: 500 - i})
	}

	out := string(RenderCSV(report))
	assert.Contains(t, out, "Wednesday,9,491")
	assert.NotContains(t, out, "Wednesday,10,490")
	assert.NotContains(t, out, "Wednesday,11,489")
}
