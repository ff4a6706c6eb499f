package analytics

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/Agentic-Person/whop-chronos-sub010/internal/models"
)

// peakActivityRows caps the PEAK ACTIVITY HOURS section of the export.
const peakActivityRows = 10

// RenderCSV renders the report as a section-formatted CSV document. The
// sections and their column order are stable so downstream spreadsheets
// can rely on them.
func RenderCSV(report *models.AnalyticsReport) []byte {
	records := [][]string{
		{"SUMMARY METRICS"},
		{"Metric", "Value"},
		{"Total Views", strconv.Itoa(report.Summary.TotalViews)},
		{"Total Watch Time (seconds)", strconv.FormatInt(report.Summary.TotalWatchTimeSeconds, 10)},
		{"Average Completion Rate (%)", formatFloat(report.Summary.AvgCompletionRate)},
		{"New Videos", strconv.Itoa(report.Summary.NewVideos)},
		{},
		{"TRENDS"},
		{"Metric", "Change (%)"},
		{"Views", strconv.Itoa(report.Trends.Views)},
		{"Watch Time", strconv.Itoa(report.Trends.WatchTime)},
		{"Completion Rate", strconv.Itoa(report.Trends.CompletionRate)},
		{"Videos", strconv.Itoa(report.Trends.Videos)},
		{},
		{"VIEWS OVER TIME"},
		{"Date", "Views"},
	}
	for _, day := range report.ViewsOverTime {
		records = append(records, []string{day.Date, strconv.Itoa(day.Views)})
	}

	records = append(records, []string{}, []string{"COMPLETION RATES BY VIDEO"},
		[]string{"Video", "Views", "Completions", "Completion Rate (%)"})
	for _, v := range report.CompletionRates {
		records = append(records, []string{
			v.Title, strconv.Itoa(v.Views), strconv.Itoa(v.Completions), formatFloat(v.CompletionRate),
		})
	}

	records = append(records, []string{}, []string{"COST BREAKDOWN"},
		[]string{"Method", "Total Cost", "Events"})
	for _, row := range report.CostBreakdown {
		records = append(records, []string{
			row.Method, strconv.FormatFloat(row.TotalCost, 'f', 2, 64), strconv.Itoa(row.Events),
		})
	}

	records = append(records, []string{}, []string{"STORAGE USAGE"},
		[]string{"Date", "Added (MB)", "Total (MB)"})
	for _, p := range report.StorageUsage {
		records = append(records, []string{p.Date, formatFloat(p.AddedMB), formatFloat(p.TotalMB)})
	}

	records = append(records, []string{}, []string{"STUDENT ENGAGEMENT"},
		[]string{"Metric", "Value"},
		[]string{"Active Students", strconv.Itoa(report.Engagement.ActiveStudents)},
		[]string{"Avg Videos per Student", formatFloat(report.Engagement.AvgVideosPerStudent)})

	records = append(records, []string{}, []string{"PEAK ACTIVITY HOURS"},
		[]string{"Day", "Hour", "Events"})
	peak := report.Engagement.PeakActivity
	if len(peak) > peakActivityRows {
		peak = peak[:peakActivityRows]
	}
	for _, cell := range peak {
		records = append(records, []string{
			time.Weekday(cell.Weekday).String(),
			strconv.Itoa(cell.Hour),
			strconv.Itoa(cell.Events),
		})
	}

	records = append(records, []string{}, []string{"TOP PERFORMING VIDEOS"},
		[]string{"Video", "Views", "Avg Watch Time (seconds)", "Completion Rate (%)"})
	for _, v := range report.TopVideos {
		records = append(records, []string{
			v.Title, strconv.Itoa(v.Views), formatFloat(v.AvgWatchTimeSeconds), formatFloat(v.CompletionRate),
		})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.WriteAll(records)
	return buf.Bytes()
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 1, 64)
}
