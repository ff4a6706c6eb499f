package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads live resource totals from Postgres.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a usage repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Counts returns the creator's current totals for every quota resource.
// Storage sums live video file sizes converted to GB; AI messages count
// chat events over the account's lifetime.
func (r *Repository) Counts(ctx context.Context, creatorID uuid.UUID) (map[Resource]float64, error) {
	const q = `
SELECT
  (SELECT COUNT(*) FROM videos WHERE creator_id = $1 AND deleted_at IS NULL),
  (SELECT COALESCE(SUM(file_size_mb), 0) / 1024.0 FROM videos WHERE creator_id = $1 AND deleted_at IS NULL),
  (SELECT COUNT(*) FROM analytics_events WHERE creator_id = $1 AND event_type = 'chat_message'),
  (SELECT COUNT(*) FROM students WHERE creator_id = $1),
  (SELECT COUNT(*) FROM courses WHERE creator_id = $1)`

	var videos, aiMessages, students, courses int64
	var storageGB float64
	if err := r.db.QueryRow(ctx, q, creatorID).Scan(&videos, &storageGB, &aiMessages, &students, &courses); err != nil {
		return nil, fmt.Errorf("count usage: %w", err)
	}
	return map[Resource]float64{
		ResourceVideos:     float64(videos),
		ResourceStorageGB:  storageGB,
		ResourceAIMessages: float64(aiMessages),
		ResourceStudents:   float64(students),
		ResourceCourses:    float64(courses),
	}, nil
}
