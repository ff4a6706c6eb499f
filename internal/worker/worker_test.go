package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agentic-Person/whop-chronos-sub010/internal/models"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/queue"
)

type fakeEventStore struct {
	events    []*models.AnalyticsEvent
	sessions  []*models.WatchSession
	appendErr error
	upsertErr error
}

func (f *fakeEventStore) Append(_ context.Context, e *models.AnalyticsEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEventStore) UpsertWatchSession(_ context.Context, s *models.WatchSession) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.sessions = append(f.sessions, s)
	return nil
}

type fakeInvalidator struct {
	creators []uuid.UUID
}

func (f *fakeInvalidator) InvalidateCreator(_ context.Context, creatorID uuid.UUID) int {
	f.creators = append(f.creators, creatorID)
	return 1
}

func ingestJob(t *testing.T, event models.AnalyticsEvent) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeEventIngest, Payload: payload, CreatedAt: time.Now()}
}

func TestProcessPersistsEventAndInvalidatesCache(t *testing.T) {
	store := &fakeEventStore{}
	invalidator := &fakeInvalidator{}
	p := NewIngestProcessor(store, invalidator, nil, nil)

	creatorID := uuid.New()
	videoID := uuid.New()
	event := models.AnalyticsEvent{
		ID:        uuid.New(),
		EventType: models.EventVideoStarted,
		CreatorID: creatorID,
		VideoID:   &videoID,
		Timestamp: time.Now().UTC(),
	}

	require.NoError(t, p.Process(context.Background(), ingestJob(t, event)))

	require.Len(t, store.events, 1)
	assert.Equal(t, event.ID, store.events[0].ID)
	assert.Equal(t, models.EventVideoStarted, store.events[0].EventType)
	assert.Empty(t, store.sessions, "start events do not touch watch sessions")

	require.Len(t, invalidator.creators, 1)
	assert.Equal(t, creatorID, invalidator.creators[0])
}

func TestProcessProgressUpsertsWatchSession(t *testing.T) {
	store := &fakeEventStore{}
	p := NewIngestProcessor(store, &fakeInvalidator{}, nil, nil)

	videoID := uuid.New()
	studentID := uuid.New()
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	event := models.AnalyticsEvent{
		ID:        uuid.New(),
		EventType: models.EventVideoProgress,
		CreatorID: uuid.New(),
		VideoID:   &videoID,
		StudentID: &studentID,
		Metadata: models.Metadata{
			"session_id":         "s-1",
			"percent_complete":   45.5,
			"watch_time_seconds": 300,
			"device_type":        "mobile",
			"referrer_type":      "course_page",
		},
		Timestamp: ts,
	}

	require.NoError(t, p.Process(context.Background(), ingestJob(t, event)))

	require.Len(t, store.sessions, 1)
	session := store.sessions[0]
	assert.Equal(t, "s-1", session.SessionID)
	assert.Equal(t, videoID, session.VideoID)
	assert.Equal(t, studentID, session.StudentID)
	assert.Equal(t, ts, session.SessionStart)
	assert.Equal(t, int64(300), session.WatchTimeSeconds)
	assert.Equal(t, 45.5, session.PercentComplete)
	assert.Equal(t, "mobile", session.DeviceType)
	assert.Equal(t, "course_page", session.ReferrerType)
	assert.False(t, session.Completed)
	assert.Nil(t, session.SessionEnd)
}

func TestProcessProgressPastThresholdCompletes(t *testing.T) {
	store := &fakeEventStore{}
	p := NewIngestProcessor(store, &fakeInvalidator{}, nil, nil)

	videoID := uuid.New()
	studentID := uuid.New()
	event := models.AnalyticsEvent{
		ID:        uuid.New(),
		EventType: models.EventVideoProgress,
		CreatorID: uuid.New(),
		VideoID:   &videoID,
		StudentID: &studentID,
		Metadata:  models.Metadata{"session_id": "s-2", "percent_complete": 92.0},
		Timestamp: time.Now().UTC(),
	}

	require.NoError(t, p.Process(context.Background(), ingestJob(t, event)))

	require.Len(t, store.sessions, 1)
	assert.True(t, store.sessions[0].Completed)
}

func TestProcessCompletionDefaultsPercent(t *testing.T) {
	store := &fakeEventStore{}
	p := NewIngestProcessor(store, &fakeInvalidator{}, nil, nil)

	videoID := uuid.New()
	studentID := uuid.New()
	ts := time.Date(2026, 8, 20, 11, 30, 0, 0, time.UTC)
	event := models.AnalyticsEvent{
		ID:        uuid.New(),
		EventType: models.EventVideoCompleted,
		CreatorID: uuid.New(),
		VideoID:   &videoID,
		StudentID: &studentID,
		Metadata:  models.Metadata{"session_id": "s-3", "watch_time_seconds": 840},
		Timestamp: ts,
	}

	require.NoError(t, p.Process(context.Background(), ingestJob(t, event)))

	require.Len(t, store.sessions, 1)
	session := store.sessions[0]
	assert.True(t, session.Completed)
	assert.Equal(t, float64(100), session.PercentComplete)
	require.NotNil(t, session.SessionEnd)
	assert.Equal(t, ts, *session.SessionEnd)
}

func TestProcessSkipsSessionWithoutAttribution(t *testing.T) {
	store := &fakeEventStore{}
	p := NewIngestProcessor(store, &fakeInvalidator{}, nil, nil)

	videoID := uuid.New()
	event := models.AnalyticsEvent{
		ID:        uuid.New(),
		EventType: models.EventVideoProgress,
		CreatorID: uuid.New(),
		VideoID:   &videoID,
		Metadata:  models.Metadata{"session_id": "s-4", "percent_complete": 50.0},
		Timestamp: time.Now().UTC(),
	}

	require.NoError(t, p.Process(context.Background(), ingestJob(t, event)))

	assert.Len(t, store.events, 1, "the event itself still persists")
	assert.Empty(t, store.sessions)
}

func TestProcessFillsMissingIDAndTimestamp(t *testing.T) {
	store := &fakeEventStore{}
	p := NewIngestProcessor(store, &fakeInvalidator{}, nil, nil)

	event := models.AnalyticsEvent{EventType: models.EventLogin, CreatorID: uuid.New()}

	require.NoError(t, p.Process(context.Background(), ingestJob(t, event)))

	require.Len(t, store.events, 1)
	assert.NotEqual(t, uuid.Nil, store.events[0].ID)
	assert.WithinDuration(t, time.Now(), store.events[0].Timestamp, time.Minute)
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := NewIngestProcessor(&fakeEventStore{}, &fakeInvalidator{}, nil, nil)

	err := p.Process(context.Background(), &queue.Job{ID: "j-1", Type: "email", Payload: []byte(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job type")
}

func TestProcessRejectsInvalidEventType(t *testing.T) {
	store := &fakeEventStore{}
	p := NewIngestProcessor(store, &fakeInvalidator{}, nil, nil)

	event := models.AnalyticsEvent{ID: uuid.New(), EventType: "page_viewed", CreatorID: uuid.New()}

	err := p.Process(context.Background(), ingestJob(t, event))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid event type")
	assert.Empty(t, store.events)
}

func TestProcessPropagatesStoreError(t *testing.T) {
	store := &fakeEventStore{appendErr: errors.New("connection refused")}
	p := NewIngestProcessor(store, &fakeInvalidator{}, nil, nil)

	event := models.AnalyticsEvent{ID: uuid.New(), EventType: models.EventLogin, CreatorID: uuid.New(), Timestamp: time.Now()}

	err := p.Process(context.Background(), ingestJob(t, event))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append event")
}
