package engagement

import "math"

// Weight of each signal in the composite engagement score.
const (
	weightVideoCompletion = 0.30
	weightChatInteraction = 0.25
	weightLoginFrequency  = 0.20
	weightCourseProgress  = 0.25
)

// Normalization ceilings: 10 chat messages per day and 7 logins per week
// count as fully engaged.
const (
	maxChatPerDay    = 10.0
	maxLoginsPerWeek = 7.0
)

// ScoreInput carries the engagement signals for one creator and window.
// VideoCompletionRate and CourseProgress are percentages (0-100); the
// frequency inputs are raw rates and get normalized here.
type ScoreInput struct {
	VideoCompletionRate float64 `json:"video_completion_rate"`
	ChatMessagesPerDay  float64 `json:"chat_messages_per_day"`
	LoginsPerWeek       float64 `json:"logins_per_week"`
	CourseProgress      float64 `json:"course_progress"`
}

// ScoreBreakdown shows each signal's weighted contribution. Components
// are rounded independently of the total, so they do not always sum to
// it exactly.
type ScoreBreakdown struct {
	VideoCompletion int `json:"video_completion"`
	ChatInteraction int `json:"chat_interaction"`
	LoginFrequency  int `json:"login_frequency"`
	CourseProgress  int `json:"course_progress"`
}

// Score is the composite engagement score with its per-signal breakdown.
type Score struct {
	Total     int            `json:"total"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// ComputeScore folds the four signals into a 0-100 score. The total is
// rounded once over the exact weighted sum and clamped to 100.
func ComputeScore(in ScoreInput) Score {
	chat := math.Min(in.ChatMessagesPerDay/maxChatPerDay, 1) * 100
	login := math.Min(in.LoginsPerWeek/maxLoginsPerWeek, 1) * 100

	completion := in.VideoCompletionRate * weightVideoCompletion
	interaction := chat * weightChatInteraction
	frequency := login * weightLoginFrequency
	progress := in.CourseProgress * weightCourseProgress

	total := int(math.Round(completion + interaction + frequency + progress))
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return Score{
		Total: total,
		Breakdown: ScoreBreakdown{
			VideoCompletion: int(math.Round(completion)),
			ChatInteraction: int(math.Round(interaction)),
			LoginFrequency:  int(math.Round(frequency)),
			CourseProgress:  int(math.Round(progress)),
		},
	}
}
