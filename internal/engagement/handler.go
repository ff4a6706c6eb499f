package engagement

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Agentic-Person/whop-chronos-sub010/internal/events"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/models"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/response"
)

// Bounds for the ?days= window parameter.
const (
	defaultWindowDays = 30
	maxWindowDays     = 365
)

// Store is the slice of the event store the engagement endpoint reads.
type Store interface {
	CountByType(ctx context.Context, creatorID uuid.UUID, eventType models.EventType, window models.DateRange) (int, error)
	StudentActivity(ctx context.Context, creatorID uuid.UUID, window models.DateRange) ([]events.StudentActivityRow, error)
	ListStudents(ctx context.Context, creatorID uuid.UUID) ([]models.Student, error)
	SessionDurations(ctx context.Context, creatorID uuid.UUID, window models.DateRange) ([]float64, error)
	AvgCourseProgress(ctx context.Context, creatorID uuid.UUID, window models.DateRange) (float64, error)
}

// Overview is the engagement dashboard payload.
type Overview struct {
	CreatorID        uuid.UUID          `json:"creator_id"`
	WindowDays       int                `json:"window_days"`
	GeneratedAt      time.Time          `json:"generated_at"`
	Score            Score              `json:"score"`
	Inputs           ScoreInput         `json:"score_inputs"`
	DAU              int                `json:"dau"`
	MAU              int                `json:"mau"`
	ActiveUsers      []ActiveUsersPoint `json:"active_users"`
	SessionDurations []DurationBucket   `json:"session_durations"`
	Retention        []CohortRetention  `json:"retention"`
}

// Handler handles GET /creators/:id/engagement.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an engagement handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// GetByCreator handles GET /creators/:id/engagement?days=30.
func (h *Handler) GetByCreator(c *gin.Context) {
	creatorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid creator id")
		return
	}
	days, ok := daysParam(c)
	if !ok {
		response.BadRequest(c, "invalid days")
		return
	}

	overview, err := h.buildOverview(c.Request.Context(), creatorID, days, time.Now().UTC())
	if err != nil {
		h.logger.Error("engagement overview failed",
			zap.String("creator_id", creatorID.String()),
			zap.Int("days", days),
			zap.Error(err))
		response.Internal(c, "failed to build engagement overview")
		return
	}

	response.OK(c, overview)
}

func (h *Handler) buildOverview(ctx context.Context, creatorID uuid.UUID, days int, now time.Time) (*Overview, error) {
	window := models.DateRange{Start: now.AddDate(0, 0, -days), End: now}

	students, err := h.store.ListStudents(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	// The activity read must reach back far enough for both the per-day
	// MAU series and the oldest cohort's retention curve.
	activityStart := now.AddDate(0, 0, -(days + 30))
	for _, s := range students {
		if s.JoinedAt.Before(activityStart) {
			activityStart = s.JoinedAt
		}
	}

	var (
		starts, completions int
		chats, logins       int
		courseProgress      float64
		rows                []events.StudentActivityRow
		durations           []float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		starts, err = h.store.CountByType(gctx, creatorID, models.EventVideoStarted, window)
		return err
	})
	g.Go(func() error {
		var err error
		completions, err = h.store.CountByType(gctx, creatorID, models.EventVideoCompleted, window)
		return err
	})
	g.Go(func() error {
		var err error
		chats, err = h.store.CountByType(gctx, creatorID, models.EventChatMessage, window)
		return err
	})
	g.Go(func() error {
		var err error
		logins, err = h.store.CountByType(gctx, creatorID, models.EventLogin, window)
		return err
	})
	g.Go(func() error {
		var err error
		courseProgress, err = h.store.AvgCourseProgress(gctx, creatorID, window)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = h.store.StudentActivity(gctx, creatorID, models.DateRange{Start: activityStart, End: now})
		return err
	})
	g.Go(func() error {
		var err error
		durations, err = h.store.SessionDurations(gctx, creatorID, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	activities := make([]Activity, len(rows))
	byStudent := make(map[uuid.UUID][]time.Time)
	for i, r := range rows {
		activities[i] = Activity{StudentID: r.StudentID, Timestamp: r.Timestamp}
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r.Timestamp)
	}

	completionRate := 0.0
	if starts > 0 {
		completionRate = float64(completions) / float64(starts) * 100
		if completionRate > 100 {
			completionRate = 100
		}
	}
	input := ScoreInput{
		VideoCompletionRate: completionRate,
		ChatMessagesPerDay:  float64(chats) / float64(days),
		LoginsPerWeek:       float64(logins) / (float64(days) / 7.0),
		CourseProgress:      courseProgress,
	}

	return &Overview{
		CreatorID:        creatorID,
		WindowDays:       days,
		GeneratedAt:      now,
		Score:            ComputeScore(input),
		Inputs:           input,
		DAU:              DAU(activities, now),
		MAU:              MAU(activities, now),
		ActiveUsers:      ActiveUsersOverTime(activities, days, now),
		SessionDurations: SessionDurationHistogram(durations),
		Retention:        Retention(cohortsByJoinMonth(students, byStudent)),
	}, nil
}

// cohortsByJoinMonth groups students into monthly join cohorts, oldest
// cohort first.
func cohortsByJoinMonth(students []models.Student, activity map[uuid.UUID][]time.Time) []Cohort {
	byMonth := make(map[string][]Member)
	for _, s := range students {
		label := s.JoinedAt.UTC().Format("2006-01")
		byMonth[label] = append(byMonth[label], Member{StudentID: s.ID, JoinedAt: s.JoinedAt, Activity: activity[s.ID]})
	}
	labels := make([]string, 0, len(byMonth))
	for label := range byMonth {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	cohorts := make([]Cohort, 0, len(labels))
	for _, label := range labels {
		cohorts = append(cohorts, Cohort{Label: label, Members: byMonth[label]})
	}
	return cohorts
}

func daysParam(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("days", strconv.Itoa(defaultWindowDays))
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxWindowDays {
		return 0, false
	}
	return days, true
}
