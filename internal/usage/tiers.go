package usage

// Tier is a creator's subscription level.
type Tier string

const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPro, TierEnterprise:
		return true
	}
	return false
}

// Resource is one quota-limited dimension of a creator's account.
type Resource string

const (
	ResourceVideos     Resource = "videos"
	ResourceStorageGB  Resource = "storage_gb"
	ResourceAIMessages Resource = "ai_messages"
	ResourceStudents   Resource = "students"
	ResourceCourses    Resource = "courses"
)

// AllResources lists every quota dimension in display order.
var AllResources = []Resource{
	ResourceVideos,
	ResourceStorageGB,
	ResourceAIMessages,
	ResourceStudents,
	ResourceCourses,
}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	for _, known := range AllResources {
		if r == known {
			return true
		}
	}
	return false
}

// Unlimited marks a resource with no cap on the current tier.
const Unlimited = -1

// Limits maps each resource to its cap for one tier.
type Limits map[Resource]float64

var tierLimits = map[Tier]Limits{
	TierFree: {
		ResourceVideos:     10,
		ResourceStorageGB:  5,
		ResourceAIMessages: 100,
		ResourceStudents:   50,
		ResourceCourses:    3,
	},
	TierBasic: {
		ResourceVideos:     50,
		ResourceStorageGB:  25,
		ResourceAIMessages: 1000,
		ResourceStudents:   250,
		ResourceCourses:    10,
	},
	TierPro: {
		ResourceVideos:     200,
		ResourceStorageGB:  100,
		ResourceAIMessages: 10000,
		ResourceStudents:   1000,
		ResourceCourses:    50,
	},
	TierEnterprise: {
		ResourceVideos:     Unlimited,
		ResourceStorageGB:  Unlimited,
		ResourceAIMessages: Unlimited,
		ResourceStudents:   Unlimited,
		ResourceCourses:    Unlimited,
	},
}

// tierOrder ranks tiers for upgrade suggestions.
var tierOrder = []Tier{TierFree, TierBasic, TierPro, TierEnterprise}

// LimitsFor returns the quota table for tier. Unknown tiers get the free
// limits so a bad value can never unlock unlimited usage.
func LimitsFor(tier Tier) Limits {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// NextTier returns the tier one step above t, or false at the top.
func NextTier(t Tier) (Tier, bool) {
	for i, cur := range tierOrder {
		if cur == t && i+1 < len(tierOrder) {
			return tierOrder[i+1], true
		}
	}
	return "", false
}
