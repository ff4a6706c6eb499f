package engagement

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// RetentionWeeks is how many weeks past the cohort start the retention
// curve extends.
const RetentionWeeks = 12

// Member is one student in a cohort together with their activity
// timestamps.
type Member struct {
	StudentID uuid.UUID
	JoinedAt  time.Time
	Activity  []time.Time
}

// Cohort groups students who joined in the same period.
type Cohort struct {
	Label   string
	Members []Member
}

// CohortRetention is the weekly retention curve for one cohort.
// Weeks[0] is 100 by definition: joining counts as week-zero presence.
type CohortRetention struct {
	Cohort string `json:"cohort"`
	Size   int    `json:"size"`
	Weeks  []int  `json:"weeks"`
}

// Retention computes each cohort's weekly retention. The cohort clock
// starts at the earliest join date among members; week N covers the
// half-open window [start+7N days, start+7(N+1) days), and a member is
// retained in a week when any of their activity falls inside it.
func Retention(cohorts []Cohort) []CohortRetention {
	out := make([]CohortRetention, 0, len(cohorts))
	for _, c := range cohorts {
		if len(c.Members) == 0 {
			continue
		}
		start := c.Members[0].JoinedAt
		for _, m := range c.Members[1:] {
			if m.JoinedAt.Before(start) {
				start = m.JoinedAt
			}
		}
		weeks := make([]int, RetentionWeeks+1)
		weeks[0] = 100
		for week := 1; week <= RetentionWeeks; week++ {
			ws := start.AddDate(0, 0, 7*week)
			we := start.AddDate(0, 0, 7*(week+1))
			active := 0
			for _, m := range c.Members {
				if anyBetween(m.Activity, ws, we) {
					active++
				}
			}
			weeks[week] = int(math.Round(float64(active) / float64(len(c.Members)) * 100))
		}
		out = append(out, CohortRetention{Cohort: c.Label, Size: len(c.Members), Weeks: weeks})
	}
	return out
}

func anyBetween(ts []time.Time, start, end time.Time) bool {
	for _, t := range ts {
		if !t.Before(start) && t.Before(end) {
			return true
		}
	}
	return false
}
