package analytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agentic-Person/whop-chronos-sub010/internal/models"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/cache"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/response"
)

// countingStore tracks how often the aggregator reaches the store, which
// is how the tests tell a cache hit from a rebuild.
type countingStore struct {
	*fakeStore
	listVideoCalls atomic.Int32
}

func (c *countingStore) ListVideos(ctx context.Context, creatorID uuid.UUID) ([]models.Video, error) {
	c.listVideoCalls.Add(1)
	return c.fakeStore.ListVideos(ctx, creatorID)
}

type fakeExportStore struct {
	key  string
	body []byte
}

func (f *fakeExportStore) UploadExport(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.key = key
	f.body = b
	return "https://bucket.s3.amazonaws.com/" + key, nil
}

func (f *fakeExportStore) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func newHandlerRouter(t *testing.T, store Store, exports ExportStore) (*gin.Engine, *cache.Cache) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	reportCache := cache.New(client, "chronos", time.Minute, nil)

	h := NewHandler(NewAggregator(store, nil), reportCache, exports, nil)
	router := gin.New()
	router.GET("/creators/:id/analytics", h.GetByCreator)
	router.GET("/creators/:id/analytics/export", h.Export)
	return router, reportCache
}

func seededStore(creatorID uuid.UUID) *fakeStore {
	videoID := uuid.New()
	recent := time.Now().UTC().Add(-24 * time.Hour)
	return &fakeStore{
		videos: []models.Video{{ID: videoID, CreatorID: creatorID, Title: "Welcome"}},
		events: []models.AnalyticsEvent{
			{ID: uuid.New(), EventType: models.EventVideoStarted, CreatorID: creatorID, VideoID: &videoID, Timestamp: recent},
			{ID: uuid.New(), EventType: models.EventVideoStarted, CreatorID: creatorID, VideoID: &videoID, Timestamp: recent.Add(time.Hour)},
		},
	}
}

func decodeReport(t *testing.T, body []byte) models.AnalyticsReport {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.True(t, envelope.Success)
	var report models.AnalyticsReport
	require.NoError(t, json.Unmarshal(envelope.Data, &report))
	return report
}

func TestGetByCreatorReturnsReport(t *testing.T) {
	creatorID := uuid.New()
	router, _ := newHandlerRouter(t, seededStore(creatorID), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/creators/"+creatorID.String()+"/analytics?range=last_7_days", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	report := decodeReport(t, w.Body.Bytes())
	assert.Equal(t, creatorID, report.CreatorID)
	assert.Equal(t, models.RangeLast7Days, report.Range)
	assert.Equal(t, 2, report.Summary.TotalViews)
	require.Len(t, report.TopVideos, 1)
	assert.Equal(t, "Welcome", report.TopVideos[0].Title)
}

func TestGetByCreatorDefaultsToLast30Days(t *testing.T) {
	creatorID := uuid.New()
	router, _ := newHandlerRouter(t, seededStore(creatorID), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/creators/"+creatorID.String()+"/analytics", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	report := decodeReport(t, w.Body.Bytes())
	assert.Equal(t, models.RangeLast30Days, report.Range)
}

func TestGetByCreatorServesSecondRequestFromCache(t *testing.T) {
	creatorID := uuid.New()
	store := &countingStore{fakeStore: seededStore(creatorID)}
	router, _ := newHandlerRouter(t, store, nil)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/creators/"+creatorID.String()+"/analytics?range=last_30_days", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, int32(1), store.listVideoCalls.Load(), "second request must not rebuild the report")
}

func TestGetByCreatorRebuildsAfterInvalidation(t *testing.T) {
	creatorID := uuid.New()
	store := &countingStore{fakeStore: seededStore(creatorID)}
	router, reportCache := newHandlerRouter(t, store, nil)

	get := func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/creators/"+creatorID.String()+"/analytics?range=last_30_days", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	get()
	reportCache.InvalidateCreator(context.Background(), creatorID)
	get()

	assert.Equal(t, int32(2), store.listVideoCalls.Load())
}

func TestGetByCreatorRejectsBadInput(t *testing.T) {
	creatorID := uuid.New()
	router, _ := newHandlerRouter(t, seededStore(creatorID), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/creators/not-a-uuid/analytics", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/creators/"+creatorID.String()+"/analytics?range=weekly", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetByCreatorStoreFailure(t *testing.T) {
	creatorID := uuid.New()
	store := seededStore(creatorID)
	store.err = assert.AnError
	router, _ := newHandlerRouter(t, store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/creators/"+creatorID.String()+"/analytics", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var envelope response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
}

func TestExportStreamsInlineWithoutStore(t *testing.T) {
	creatorID := uuid.New()
	router, _ := newHandlerRouter(t, seededStore(creatorID), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/creators/"+creatorID.String()+"/analytics/export?range=last_7_days", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "analytics-last_7_days.csv")
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "SUMMARY METRICS"))
	assert.Contains(t, body, "Total Views,2")
}

func TestExportUploadsAndSignsURL(t *testing.T) {
	creatorID := uuid.New()
	exports := &fakeExportStore{}
	router, _ := newHandlerRouter(t, seededStore(creatorID), exports)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/creators/"+creatorID.String()+"/analytics/export", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool           `json:"success"`
		Data    ExportResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	assert.Equal(t, "https://signed.example/"+exports.key, envelope.Data.DownloadURL)
	assert.True(t, strings.HasPrefix(exports.key, "exports/"+creatorID.String()+"/"))
	assert.Contains(t, string(exports.body), "SUMMARY METRICS")
}
