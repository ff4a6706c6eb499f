package usage

import (
	"fmt"
	"math"
)

// Thresholds, in percent of the limit, at which a resource starts
// warning and at which an upgrade is suggested.
const (
	WarnThreshold    = 80.0
	UpgradeThreshold = 90.0
)

// Stat is the usage snapshot for one resource. Limit is -1 when the
// tier does not cap the resource; the percentage is then 0 so gauges
// never fill on unlimited plans.
type Stat struct {
	Current    float64 `json:"current"`
	Limit      float64 `json:"limit"`
	Percentage float64 `json:"percentage"`
}

// Snapshot is a creator's usage across every quota dimension.
type Snapshot struct {
	Tier          Tier              `json:"tier"`
	Resources     map[Resource]Stat `json:"resources"`
	Warnings      []Resource        `json:"warnings,omitempty"`
	SuggestedTier Tier              `json:"suggested_tier,omitempty"`
}

// QuotaCheck is the outcome of a single-resource admission check.
type QuotaCheck struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Percent returns current as a percentage of limit, rounded to one
// decimal. Unlimited resources always read 0.
func Percent(current, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(current/limit*1000) / 10
}

// BuildSnapshot folds raw counts into per-resource stats plus the
// derived warnings and upgrade suggestion.
func BuildSnapshot(tier Tier, counts map[Resource]float64) Snapshot {
	limits := LimitsFor(tier)
	snap := Snapshot{Tier: tier, Resources: make(map[Resource]Stat, len(AllResources))}
	for _, r := range AllResources {
		stat := Stat{
			Current:    counts[r],
			Limit:      limits[r],
			Percentage: Percent(counts[r], limits[r]),
		}
		snap.Resources[r] = stat
		if stat.Percentage >= WarnThreshold {
			snap.Warnings = append(snap.Warnings, r)
		}
	}
	if next, ok := SuggestUpgrade(snap.Resources, tier); ok {
		snap.SuggestedTier = next
	}
	return snap
}

// SuggestUpgrade returns the next tier up when any resource sits at or
// past the upgrade threshold. The top tier never suggests anything.
func SuggestUpgrade(resources map[Resource]Stat, tier Tier) (Tier, bool) {
	next, ok := NextTier(tier)
	if !ok {
		return "", false
	}
	for _, stat := range resources {
		if stat.Percentage >= UpgradeThreshold {
			return next, true
		}
	}
	return "", false
}

// Check evaluates one resource against its tier limit. Denials carry a
// human-readable reason for the 403 body.
func Check(tier Tier, resource Resource, current float64) QuotaCheck {
	limit := LimitsFor(tier)[resource]
	if limit == Unlimited {
		return QuotaCheck{Allowed: true}
	}
	if current >= limit {
		return QuotaCheck{
			Allowed: false,
			Reason:  fmt.Sprintf("%s limit (%d) reached", resource, int64(limit)),
		}
	}
	return QuotaCheck{Allowed: true}
}
