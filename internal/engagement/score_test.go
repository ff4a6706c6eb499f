package engagement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name      string
		in        ScoreInput
		wantTotal int
		wantBreak ScoreBreakdown
	}{
		{
			name:      "fully engaged",
			in:        ScoreInput{VideoCompletionRate: 100, ChatMessagesPerDay: 10, LoginsPerWeek: 7, CourseProgress: 100},
			wantTotal: 100,
			wantBreak: ScoreBreakdown{VideoCompletion: 30, ChatInteraction: 25, LoginFrequency: 20, CourseProgress: 25},
		},
		{
			name:      "no activity",
			in:        ScoreInput{},
			wantTotal: 0,
			wantBreak: ScoreBreakdown{},
		},
		{
			name:      "frequencies cap at their ceilings",
			in:        ScoreInput{ChatMessagesPerDay: 42, LoginsPerWeek: 20},
			wantTotal: 45,
			wantBreak: ScoreBreakdown{ChatInteraction: 25, LoginFrequency: 20},
		},
		{
			name:      "mid engagement",
			in:        ScoreInput{VideoCompletionRate: 80, ChatMessagesPerDay: 5, LoginsPerWeek: 3.5, CourseProgress: 60},
			wantTotal: 62,
			wantBreak: ScoreBreakdown{VideoCompletion: 24, ChatInteraction: 13, LoginFrequency: 10, CourseProgress: 15},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeScore(tt.in)
			assert.Equal(t, tt.wantTotal, got.Total)
			assert.Equal(t, tt.wantBreak, got.Breakdown)
		})
	}
}

// The total is rounded over the exact sum while components round on
// their own, so the breakdown may drift from the total by a point.
func TestComputeScoreBreakdownRounding(t *testing.T) {
	got := ComputeScore(ScoreInput{VideoCompletionRate: 85, ChatMessagesPerDay: 5})
	// exact contributions: 25.5 + 12.5 = 38
	assert.Equal(t, 38, got.Total)
	assert.Equal(t, 26, got.Breakdown.VideoCompletion)
	assert.Equal(t, 13, got.Breakdown.ChatInteraction)
	sum := got.Breakdown.VideoCompletion + got.Breakdown.ChatInteraction +
		got.Breakdown.LoginFrequency + got.Breakdown.CourseProgress
	assert.Equal(t, 39, sum)
}

func TestComputeScoreStaysInRange(t *testing.T) {
	inputs := []ScoreInput{
		{VideoCompletionRate: 100, ChatMessagesPerDay: 1000, LoginsPerWeek: 1000, CourseProgress: 100},
		{VideoCompletionRate: 99.9, ChatMessagesPerDay: 9.99, LoginsPerWeek: 6.99, CourseProgress: 99.9},
		{VideoCompletionRate: 0.1, ChatMessagesPerDay: 0.1, LoginsPerWeek: 0.1, CourseProgress: 0.1},
	}
	for _, in := range inputs {
		got := ComputeScore(in)
		assert.GreaterOrEqual(t, got.Total, 0)
		assert.LessOrEqual(t, got.Total, 100)
	}
}
