package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Agentic-Person/whop-chronos-sub010/internal/engagement"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/events"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/models"
)

const (
	// topCompletionRates caps the completion-rate ranking section.
	topCompletionRates = 10
	// topPerformingVideos caps the top-videos section.
	topPerformingVideos = 20
	// videoFanOutLimit bounds the per-video query fan-out so a large
	// library cannot exhaust the connection pool.
	videoFanOutLimit = 8
)

// Store is the slice of the event store the aggregator reads.
type Store interface {
	CountByType(ctx context.Context, creatorID uuid.UUID, eventType models.EventType, window models.DateRange) (int, error)
	SumWatchTime(ctx context.Context, creatorID uuid.UUID, window models.DateRange) (int64, error)
	CountVideoEvents(ctx context.Context, videoID uuid.UUID, eventType models.EventType, window models.DateRange) (int, error)
	AvgVideoWatchTime(ctx context.Context, videoID uuid.UUID, window models.DateRange) (float64, error)
	ListVideos(ctx context.Context, creatorID uuid.UUID) ([]models.Video, error)
	DailyViewCounts(ctx context.Context, creatorID uuid.UUID, window models.DateRange) (map[string]int, error)
	CostByMethod(ctx context.Context, creatorID uuid.UUID, window models.DateRange) ([]models.CostBreakdownRow, error)
	DailyStorageDeltas(ctx context.Context, creatorID uuid.UUID, window models.DateRange) (map[string]float64, error)
	StudentActivity(ctx context.Context, creatorID uuid.UUID, window models.DateRange) ([]events.StudentActivityRow, error)
	EarliestEventTime(ctx context.Context, creatorID uuid.UUID) (*time.Time, error)
}

// Aggregator assembles the creator dashboard report. Every sub-report is
// an independent read, so they all run concurrently and join before the
// trend math.
type Aggregator struct {
	store  Store
	logger *zap.Logger
}

// NewAggregator creates an aggregator over the event store.
func NewAggregator(store Store, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{store: store, logger: logger}
}

// Aggregate builds the report for a preset range ending now.
func (a *Aggregator) Aggregate(ctx context.Context, creatorID uuid.UUID, rangeType models.RangeType) (*models.AnalyticsReport, error) {
	return a.AggregateAt(ctx, creatorID, rangeType, time.Now().UTC())
}

// AggregateAt is Aggregate with an explicit reference time, which keeps
// report generation reproducible.
func (a *Aggregator) AggregateAt(ctx context.Context, creatorID uuid.UUID, rangeType models.RangeType, now time.Time) (*models.AnalyticsReport, error) {
	started := time.Now()
	window, err := a.resolveWindow(ctx, creatorID, rangeType, now)
	if err != nil {
		return nil, err
	}
	prev := window.Previous()

	var (
		views, prevViews           int
		watchTime, prevWatchTime   int64
		completion, prevCompletion completionStats
		newVideos, prevNewVideos   int
		daily                      map[string]int
		costs                      []models.CostBreakdownRow
		storage                    map[string]float64
		activity                   []events.StudentActivityRow
		top                        []models.VideoPerformance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		views, err = a.store.CountByType(gctx, creatorID, models.EventVideoStarted, window)
		return err
	})
	g.Go(func() error {
		var err error
		prevViews, err = a.store.CountByType(gctx, creatorID, models.EventVideoStarted, prev)
		return err
	})
	g.Go(func() error {
		var err error
		watchTime, err = a.store.SumWatchTime(gctx, creatorID, window)
		return err
	})
	g.Go(func() error {
		var err error
		prevWatchTime, err = a.store.SumWatchTime(gctx, creatorID, prev)
		return err
	})
	g.Go(func() error {
		var err error
		completion, err = a.completionStats(gctx, creatorID, window)
		return err
	})
	g.Go(func() error {
		var err error
		prevCompletion, err = a.completionStats(gctx, creatorID, prev)
		return err
	})
	g.Go(func() error {
		var err error
		newVideos, err = a.store.CountByType(gctx, creatorID, models.EventVideoImported, window)
		return err
	})
	g.Go(func() error {
		var err error
		prevNewVideos, err = a.store.CountByType(gctx, creatorID, models.EventVideoImported, prev)
		return err
	})
	g.Go(func() error {
		var err error
		daily, err = a.store.DailyViewCounts(gctx, creatorID, window)
		return err
	})
	g.Go(func() error {
		var err error
		costs, err = a.store.CostByMethod(gctx, creatorID, window)
		return err
	})
	g.Go(func() error {
		var err error
		storage, err = a.store.DailyStorageDeltas(gctx, creatorID, window)
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = a.store.StudentActivity(gctx, creatorID, window)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = a.topVideoPerformance(gctx, creatorID, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate analytics: %w", err)
	}

	report := &models.AnalyticsReport{
		CreatorID:   creatorID,
		Range:       rangeType,
		Window:      window,
		GeneratedAt: now,
		Summary: models.SummaryMetrics{
			TotalViews:            views,
			TotalWatchTimeSeconds: watchTime,
			AvgCompletionRate:     round1(completion.avgRate),
			NewVideos:             newVideos,
		},
		Trends: models.Trends{
			Views:          engagement.PercentageChange(float64(views), float64(prevViews)),
			WatchTime:      engagement.PercentageChange(float64(watchTime), float64(prevWatchTime)),
			CompletionRate: engagement.PercentageChange(completion.avgRate, prevCompletion.avgRate),
			Videos:         engagement.PercentageChange(float64(newVideos), float64(prevNewVideos)),
		},
		ViewsOverTime:   fillDailyViews(window, daily),
		CompletionRates: orEmpty(completion.ranking),
		CostBreakdown:   orEmpty(costs),
		StorageUsage:    fillStorageSeries(window, storage),
		Engagement:      buildEngagementSummary(activity),
		TopVideos:       orEmpty(top),
	}

	a.logger.Debug("report aggregated",
		zap.String("creator_id", creatorID.String()),
		zap.String("range", string(rangeType)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return report, nil
}

// resolveWindow turns a preset into concrete bounds. All-time windows
// anchor at the creator's first recorded event.
func (a *Aggregator) resolveWindow(ctx context.Context, creatorID uuid.UUID, rangeType models.RangeType, now time.Time) (models.DateRange, error) {
	if window, ok := rangeType.Window(now); ok {
		return window, nil
	}
	earliest, err := a.store.EarliestEventTime(ctx, creatorID)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("resolve all_time window: %w", err)
	}
	start := now.AddDate(0, 0, -90)
	if earliest != nil {
		start = *earliest
	}
	return models.DateRange{Start: start, End: now}, nil
}

// completionStats pairs every live video's in-window starts with its
// completions. The per-video reads fan out under a bounded group. The
// mean spans all live videos: a video nobody started contributes zero.
type completionStats struct {
	avgRate float64
	ranking []models.VideoCompletionRate
}

func (a *Aggregator) completionStats(ctx context.Context, creatorID uuid.UUID, window models.DateRange) (completionStats, error) {
	videos, err := a.store.ListVideos(ctx, creatorID)
	if err != nil {
		return completionStats{}, err
	}
	if len(videos) == 0 {
		return completionStats{ranking: []models.VideoCompletionRate{}}, nil
	}

	stats := make([]models.VideoCompletionRate, len(videos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(videoFanOutLimit)
	for i, v := range videos {
		g.Go(func() error {
			starts, err := a.store.CountVideoEvents(gctx, v.ID, models.EventVideoStarted, window)
			if err != nil {
				return err
			}
			completions, err := a.store.CountVideoEvents(gctx, v.ID, models.EventVideoCompleted, window)
			if err != nil {
				return err
			}
			rate := 0.0
			if starts > 0 {
				rate = float64(completions) / float64(starts) * 100
			}
			stats[i] = models.VideoCompletionRate{
				VideoID:        v.ID,
				Title:          v.Title,
				Views:          starts,
				Completions:    completions,
				CompletionRate: rate,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return completionStats{}, err
	}

	var sum float64
	ranked := make([]models.VideoCompletionRate, 0, len(stats))
	for _, s := range stats {
		sum += s.CompletionRate
		if s.Views > 0 {
			ranked = append(ranked, s)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].CompletionRate != ranked[j].CompletionRate {
			return ranked[i].CompletionRate > ranked[j].CompletionRate
		}
		if ranked[i].Views != ranked[j].Views {
			return ranked[i].Views > ranked[j].Views
		}
		return ranked[i].Title < ranked[j].Title
	})
	if len(ranked) > topCompletionRates {
		ranked = ranked[:topCompletionRates]
	}
	return completionStats{avgRate: sum / float64(len(stats)), ranking: ranked}, nil
}

// topVideoPerformance ranks the library by in-window views, pairing each
// video with its average completed watch time and completion rate.
func (a *Aggregator) topVideoPerformance(ctx context.Context, creatorID uuid.UUID, window models.DateRange) ([]models.VideoPerformance, error) {
	videos, err := a.store.ListVideos(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return []models.VideoPerformance{}, nil
	}

	perf := make([]models.VideoPerformance, len(videos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(videoFanOutLimit)
	for i, v := range videos {
		g.Go(func() error {
			views, err := a.store.CountVideoEvents(gctx, v.ID, models.EventVideoStarted, window)
			if err != nil {
				return err
			}
			completions, err := a.store.CountVideoEvents(gctx, v.ID, models.EventVideoCompleted, window)
			if err != nil {
				return err
			}
			avgWatch, err := a.store.AvgVideoWatchTime(gctx, v.ID, window)
			if err != nil {
				return err
			}
			rate := 0.0
			if views > 0 {
				rate = float64(completions) / float64(views) * 100
			}
			perf[i] = models.VideoPerformance{
				VideoID:             v.ID,
				Title:               v.Title,
				Views:               views,
				AvgWatchTimeSeconds: avgWatch,
				CompletionRate:      rate,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(perf, func(i, j int) bool {
		if perf[i].Views != perf[j].Views {
			return perf[i].Views > perf[j].Views
		}
		return perf[i].Title < perf[j].Title
	})
	if len(perf) > topPerformingVideos {
		perf = perf[:topPerformingVideos]
	}
	return perf, nil
}

// fillDailyViews expands sparse per-day counts into a continuous series
// covering every calendar day the window touches.
func fillDailyViews(window models.DateRange, counts map[string]int) []models.DailyViews {
	days := window.Days()
	out := make([]models.DailyViews, 0, len(days))
	for _, day := range days {
		key := day.Format("2006-01-02")
		out = append(out, models.DailyViews{Date: key, Views: counts[key]})
	}
	return out
}

// fillStorageSeries turns per-day import deltas into a running total
// across the window.
func fillStorageSeries(window models.DateRange, deltas map[string]float64) []models.StoragePoint {
	days := window.Days()
	out := make([]models.StoragePoint, 0, len(days))
	total := 0.0
	for _, day := range days {
		key := day.Format("2006-01-02")
		total += deltas[key]
		out = append(out, models.StoragePoint{Date: key, AddedMB: deltas[key], TotalMB: total})
	}
	return out
}

// buildEngagementSummary folds raw activity rows into distinct-student
// stats and the weekday/hour heat map, busiest cells first.
func buildEngagementSummary(activity []events.StudentActivityRow) models.EngagementSummary {
	videosByStudent := make(map[uuid.UUID]map[uuid.UUID]struct{})
	var grid [7][24]int
	for _, row := range activity {
		if _, ok := videosByStudent[row.StudentID]; !ok {
			videosByStudent[row.StudentID] = make(map[uuid.UUID]struct{})
		}
		if row.VideoID != nil {
			videosByStudent[row.StudentID][*row.VideoID] = struct{}{}
		}
		ts := row.Timestamp.UTC()
		grid[int(ts.Weekday())][ts.Hour()]++
	}

	distinctVideos := 0
	for _, vids := range videosByStudent {
		distinctVideos += len(vids)
	}
	avg := 0.0
	if len(videosByStudent) > 0 {
		avg = round1(float64(distinctVideos) / float64(len(videosByStudent)))
	}

	cells := []models.ActivityCell{}
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			if grid[d][h] > 0 {
				cells = append(cells, models.ActivityCell{Weekday: d, Hour: h, Events: grid[d][h]})
			}
		}
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Events != cells[j].Events {
			return cells[i].Events > cells[j].Events
		}
		if cells[i].Weekday != cells[j].Weekday {
			return cells[i].Weekday < cells[j].Weekday
		}
		return cells[i].Hour < cells[j].Hour
	})

	return models.EngagementSummary{
		ActiveStudents:      len(videosByStudent),
		AvgVideosPerStudent: avg,
		PeakActivity:        cells,
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
