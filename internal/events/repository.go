package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Agentic-Person/whop-chronos-sub010/internal/models"
)

// StudentActivityRow is one student-attributed event inside a window.
type StudentActivityRow struct {
	StudentID uuid.UUID
	VideoID   *uuid.UUID
	Timestamp time.Time
}

// Repository is the analytics event store plus the read models hanging
// off it (videos, students, watch sessions).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event store repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append stores one event.
func (r *Repository) Append(ctx context.Context, e *models.AnalyticsEvent) error {
	const q = `
INSERT INTO analytics_events (id, event_type, creator_id, video_id, student_id, course_id, module_id, metadata, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	meta := e.Metadata
	if meta == nil {
		meta = models.Metadata{}
	}
	_, err := r.pool.Exec(ctx, q,
		e.ID, e.EventType, e.CreatorID, e.VideoID, e.StudentID, e.CourseID, e.ModuleID, meta, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CountByType counts the creator's events of one type inside the window.
func (r *Repository) CountByType(ctx context.Context, creatorID uuid.UUID, eventType models.EventType, window models.DateRange) (int, error) {
	const q = `
SELECT COUNT(*) FROM analytics_events
WHERE creator_id = $1 AND event_type = $2 AND timestamp >= $3 AND timestamp < $4`
	var n int
	if err := r.pool.QueryRow(ctx, q, creatorID, eventType, window.Start, window.End).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s events: %w", eventType, err)
	}
	return n, nil
}

// SumWatchTime totals watch_time_seconds over the creator's completed
// views inside the window. Events without the field contribute nothing.
func (r *Repository) SumWatchTime(ctx context.Context, creatorID uuid.UUID, window models.DateRange) (int64, error) {
	const q = `
SELECT COALESCE(SUM((metadata->>'watch_time_seconds')::BIGINT), 0)
FROM analytics_events
WHERE creator_id = $1 AND event_type = 'video_completed'
  AND timestamp >= $2 AND timestamp < $3`
	var total int64
	if err := r.pool.QueryRow(ctx, q, creatorID, window.Start, window.End).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum watch time: %w", err)
	}
	return total, nil
}

// CountVideoEvents counts one video's events of one type in the window.
func (r *Repository) CountVideoEvents(ctx context.Context, videoID uuid.UUID, eventType models.EventType, window models.DateRange) (int, error) {
	const q = `
SELECT COUNT(*) FROM analytics_events
WHERE video_id = $1 AND event_type = $2 AND timestamp >= $3 AND timestamp < $4`
	var n int
	if err := r.pool.QueryRow(ctx, q, videoID, eventType, window.Start, window.End).Scan(&n); err != nil {
		return 0, fmt.Errorf("count video %s events: %w", eventType, err)
	}
	return n, nil
}

// AvgVideoWatchTime averages watch_time_seconds over one video's
// completed views in the window.
func (r *Repository) AvgVideoWatchTime(ctx context.Context, videoID uuid.UUID, window models.DateRange) (float64, error) {
	const q = `
SELECT COALESCE(AVG((metadata->>'watch_time_seconds')::BIGINT), 0)
FROM analytics_events
WHERE video_id = $1 AND event_type = 'video_completed'
  AND timestamp >= $2 AND timestamp < $3`
	var avg float64
	if err := r.pool.QueryRow(ctx, q, videoID, window.Start, window.End).Scan(&avg); err != nil {
		return 0, fmt.Errorf("avg watch time: %w", err)
	}
	return avg, nil
}

// ListVideos returns the creator's non-deleted videos, oldest first.
func (r *Repository) ListVideos(ctx context.Context, creatorID uuid.UUID) ([]models.Video, error) {
	const q = `
SELECT id, creator_id, course_id, title, duration_seconds, file_size_mb,
       COALESCE(transcription_method, ''), deleted_at, created_at, updated_at
FROM videos
WHERE creator_id = $1 AND deleted_at IS NULL
ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()
	var list []models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.CreatorID, &v.CourseID, &v.Title, &v.DurationSeconds,
			&v.FileSizeMB, &v.TranscriptionMethod, &v.DeletedAt, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// DailyViewCounts returns per-day started-view counts inside the window,
// keyed by UTC date (YYYY-MM-DD). Days without views are absent.
func (r *Repository) DailyViewCounts(ctx context.Context, creatorID uuid.UUID, window models.DateRange) (map[string]int, error) {
	const q = `
SELECT to_char(date_trunc('day', timestamp AT TIME ZONE 'UTC'), 'YYYY-MM-DD'), COUNT(*)
FROM analytics_events
WHERE creator_id = $1 AND event_type = 'video_started'
  AND timestamp >= $2 AND timestamp < $3
GROUP BY 1`
	rows, err := r.pool.Query(ctx, q, creatorID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("daily views: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[day] = n
	}
	return counts, rows.Err()
}

// CostByMethod groups transcription spend inside the window by
// processing method.
func (r *Repository) CostByMethod(ctx context.Context, creatorID uuid.UUID, window models.DateRange) ([]models.CostBreakdownRow, error) {
	const q = `
SELECT COALESCE(metadata->>'method', 'unknown'),
       COALESCE(SUM((metadata->>'cost')::DOUBLE PRECISION), 0),
       COUNT(*)
FROM analytics_events
WHERE creator_id = $1 AND event_type = 'video_transcribed'
  AND timestamp >= $2 AND timestamp < $3
GROUP BY 1
ORDER BY 1`
	rows, err := r.pool.Query(ctx, q, creatorID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("cost breakdown: %w", err)
	}
	defer rows.Close()
	var list []models.CostBreakdownRow
	for rows.Next() {
		var row models.CostBreakdownRow
		if err := rows.Scan(&row.Method, &row.TotalCost, &row.Events); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

// DailyStorageDeltas sums imported file sizes (MB) per UTC day inside
// the window. Days without imports are absent.
func (r *Repository) DailyStorageDeltas(ctx context.Context, creatorID uuid.UUID, window models.DateRange) (map[string]float64, error) {
	const q = `
SELECT to_char(date_trunc('day', timestamp AT TIME ZONE 'UTC'), 'YYYY-MM-DD'),
       COALESCE(SUM((metadata->>'file_size_mb')::DOUBLE PRECISION), 0)
FROM analytics_events
WHERE creator_id = $1 AND event_type = 'video_imported'
  AND timestamp >= $2 AND timestamp < $3
GROUP BY 1`
	rows, err := r.pool.Query(ctx, q, creatorID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("storage deltas: %w", err)
	}
	defer rows.Close()
	deltas := make(map[string]float64)
	for rows.Next() {
		var day string
		var mb float64
		if err := rows.Scan(&day, &mb); err != nil {
			return nil, err
		}
		deltas[day] = mb
	}
	return deltas, rows.Err()
}

// StudentActivity lists the creator's student-attributed events inside
// the window, oldest first.
func (r *Repository) StudentActivity(ctx context.Context, creatorID uuid.UUID, window models.DateRange) ([]StudentActivityRow, error) {
	const q = `
SELECT student_id, video_id, timestamp
FROM analytics_events
WHERE creator_id = $1 AND student_id IS NOT NULL
  AND timestamp >= $2 AND timestamp < $3
ORDER BY timestamp`
	rows, err := r.pool.Query(ctx, q, creatorID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("student activity: %w", err)
	}
	defer rows.Close()
	var list []StudentActivityRow
	for rows.Next() {
		var row StudentActivityRow
		if err := rows.Scan(&row.StudentID, &row.VideoID, &row.Timestamp); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

// EarliestEventTime returns when the creator's history starts, or nil
// for an account with no events yet.
func (r *Repository) EarliestEventTime(ctx context.Context, creatorID uuid.UUID) (*time.Time, error) {
	const q = `SELECT MIN(timestamp) FROM analytics_events WHERE creator_id = $1`
	var ts *time.Time
	if err := r.pool.QueryRow(ctx, q, creatorID).Scan(&ts); err != nil {
		return nil, fmt.Errorf("earliest event: %w", err)
	}
	return ts, nil
}

// ListStudents returns the creator's students, oldest join first.
func (r *Repository) ListStudents(ctx context.Context, creatorID uuid.UUID) ([]models.Student, error) {
	const q = `
SELECT id, creator_id, COALESCE(display_name, ''), joined_at, created_at
FROM students
WHERE creator_id = $1
ORDER BY joined_at`
	rows, err := r.pool.Query(ctx, q, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()
	var list []models.Student
	for rows.Next() {
		var s models.Student
		if err := rows.Scan(&s.ID, &s.CreatorID, &s.DisplayName, &s.JoinedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// SessionDurations returns watch session lengths in minutes for sessions
// started inside the window.
func (r *Repository) SessionDurations(ctx context.Context, creatorID uuid.UUID, window models.DateRange) ([]float64, error) {
	const q = `
SELECT ws.watch_time_seconds / 60.0
FROM watch_sessions ws
JOIN videos v ON v.id = ws.video_id
WHERE v.creator_id = $1 AND ws.session_start >= $2 AND ws.session_start < $3`
	rows, err := r.pool.Query(ctx, q, creatorID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("session durations: %w", err)
	}
	defer rows.Close()
	var list []float64
	for rows.Next() {
		var minutes float64
		if err := rows.Scan(&minutes); err != nil {
			return nil, err
		}
		list = append(list, minutes)
	}
	return list, rows.Err()
}

// AvgCourseProgress averages percent_complete across the creator's watch
// sessions touched inside the window.
func (r *Repository) AvgCourseProgress(ctx context.Context, creatorID uuid.UUID, window models.DateRange) (float64, error) {
	const q = `
SELECT COALESCE(AVG(ws.percent_complete), 0)
FROM watch_sessions ws
JOIN videos v ON v.id = ws.video_id
WHERE v.creator_id = $1 AND ws.updated_at >= $2 AND ws.updated_at < $3`
	var avg float64
	if err := r.pool.QueryRow(ctx, q, creatorID, window.Start, window.End).Scan(&avg); err != nil {
		return 0, fmt.Errorf("avg course progress: %w", err)
	}
	return avg, nil
}

// UpsertWatchSession inserts a session on first telemetry and advances
// it in place afterwards. Progress only moves forward so late or
// duplicated packets cannot regress a session.
func (r *Repository) UpsertWatchSession(ctx context.Context, s *models.WatchSession) error {
	const q = `
INSERT INTO watch_sessions (id, session_id, video_id, student_id, session_start, session_end,
                            watch_time_seconds, percent_complete, completed, device_type, referrer_type)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''))
ON CONFLICT (session_id) DO UPDATE SET
  watch_time_seconds = GREATEST(watch_sessions.watch_time_seconds, EXCLUDED.watch_time_seconds),
  percent_complete   = GREATEST(watch_sessions.percent_complete, EXCLUDED.percent_complete),
  completed          = watch_sessions.completed OR EXCLUDED.completed,
  session_end        = COALESCE(EXCLUDED.session_end, watch_sessions.session_end),
  updated_at         = NOW()`
	_, err := r.pool.Exec(ctx, q,
		s.ID, s.SessionID, s.VideoID, s.StudentID, s.SessionStart, s.SessionEnd,
		s.WatchTimeSeconds, s.PercentComplete, s.Completed, s.DeviceType, s.ReferrerType)
	if err != nil {
		return fmt.Errorf("upsert watch session: %w", err)
	}
	return nil
}
