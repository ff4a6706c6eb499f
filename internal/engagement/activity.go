package engagement

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one student action with its timestamp.
type Activity struct {
	StudentID uuid.UUID
	Timestamp time.Time
}

// DAU counts distinct students active in the 24 hours before now.
func DAU(activities []Activity, now time.Time) int {
	return distinctBetween(activities, now.Add(-24*time.Hour), now)
}

// MAU counts distinct students active in the 30 days before now.
func MAU(activities []Activity, now time.Time) int {
	return distinctBetween(activities, now.AddDate(0, 0, -30), now)
}

func distinctBetween(activities []Activity, start, end time.Time) int {
	seen := make(map[uuid.UUID]struct{})
	for _, a := range activities {
		if !a.Timestamp.Before(start) && a.Timestamp.Before(end) {
			seen[a.StudentID] = struct{}{}
		}
	}
	return len(seen)
}

// ActiveUsersPoint is one day's activity snapshot.
type ActiveUsersPoint struct {
	Date   string `json:"date"`
	DAU    int    `json:"dau"`
	MAU    int    `json:"mau"`
	Change int    `json:"change"`
}

// ActiveUsersOverTime reports the trailing days UTC calendar days ending
// with today, oldest first. Each point carries the day's distinct
// actives, the distinct actives over the 30 days ending that day, and
// the percent change from the previous day's DAU (a zero baseline for
// the first point).
func ActiveUsersOverTime(activities []Activity, days int, now time.Time) []ActiveUsersPoint {
	points := make([]ActiveUsersPoint, 0, days)
	prev := 0
	for i := days - 1; i >= 0; i-- {
		day := now.UTC().AddDate(0, 0, -i)
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.AddDate(0, 0, 1)
		dau := distinctBetween(activities, dayStart, dayEnd)
		mau := distinctBetween(activities, dayEnd.AddDate(0, 0, -30), dayEnd)
		points = append(points, ActiveUsersPoint{
			Date:   dayStart.Format("2006-01-02"),
			DAU:    dau,
			MAU:    mau,
			Change: PercentageChange(float64(dau), float64(prev)),
		})
		prev = dau
	}
	return points
}

// DurationBucket is one bar of the session-length histogram.
type DurationBucket struct {
	Label    string `json:"label"`
	Sessions int    `json:"sessions"`
}

var durationBands = []struct {
	label string
	min   float64
	max   float64 // exclusive; <0 means open-ended
}{
	{"0-5 min", 0, 5},
	{"5-15 min", 5, 15},
	{"15-30 min", 15, 30},
	{"30-60 min", 30, 60},
	{"60+ min", 60, -1},
}

// SessionDurationHistogram buckets session lengths in minutes into the
// five dashboard bands. All five buckets are always present, in order.
func SessionDurationHistogram(minutes []float64) []DurationBucket {
	buckets := make([]DurationBucket, len(durationBands))
	for i, b := range durationBands {
		buckets[i].Label = b.label
	}
	for _, m := range minutes {
		for i, b := range durationBands {
			if m >= b.min && (b.max < 0 || m < b.max) {
				buckets[i].Sessions++
				break
			}
		}
	}
	return buckets
}
