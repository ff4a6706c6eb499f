package engagement

import "math"

// PercentageChange returns the percent delta from previous to current,
// rounded to the nearest integer. A zero baseline reports 100 when there
// is any current activity and 0 when there is none, so callers never
// divide by zero.
func PercentageChange(current, previous float64) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round((current - previous) / previous * 100))
}
