package models

import (
	"fmt"
	"time"
)

// RangeType names a preset reporting window.
type RangeType string

const (
	RangeLast7Days  RangeType = "last_7_days"
	RangeLast30Days RangeType = "last_30_days"
	RangeLast90Days RangeType = "last_90_days"
	RangeAllTime    RangeType = "all_time"
)

// Valid reports whether rt is a known preset.
func (rt RangeType) Valid() bool {
	switch rt {
	case RangeLast7Days, RangeLast30Days, RangeLast90Days, RangeAllTime:
		return true
	}
	return false
}

// Window returns the preset's half-open window ending at now. All-time
// windows start at the creator's earliest event, which only the caller
// can resolve; for RangeAllTime ok is false.
func (rt RangeType) Window(now time.Time) (DateRange, bool) {
	switch rt {
	case RangeLast7Days:
		return DateRange{Start: now.AddDate(0, 0, -7), End: now}, true
	case RangeLast30Days:
		return DateRange{Start: now.AddDate(0, 0, -30), End: now}, true
	case RangeLast90Days:
		return DateRange{Start: now.AddDate(0, 0, -90), End: now}, true
	}
	return DateRange{}, false
}

// DateRange is a half-open reporting window [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a window from explicit bounds.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("invalid date range: end %s before start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return DateRange{Start: start, End: end}, nil
}

// Previous returns the window of equal length immediately preceding r.
func (r DateRange) Previous() DateRange {
	d := r.End.Sub(r.Start)
	return DateRange{Start: r.Start.Add(-d), End: r.Start}
}

// Contains reports whether t falls inside the window.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Days lists the UTC calendar days the window touches, oldest first.
// A partial trailing day is included.
func (r DateRange) Days() []time.Time {
	start := r.Start.UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	var days []time.Time
	for day.Before(r.End) {
		days = append(days, day)
		day = day.AddDate(0, 0, 1)
	}
	return days
}
