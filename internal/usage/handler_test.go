package usage

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsageRouter(t *testing.T, source CountSource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(source, nil), nil)
	router := gin.New()
	router.GET("/creators/:id/usage", h.GetByCreator)
	router.GET("/creators/:id/usage/check", h.CheckQuota)
	return router
}

func TestGetByCreatorReturnsSnapshot(t *testing.T) {
	source := &mockCounts{counts: map[Resource]float64{
		ResourceVideos:    9,
		ResourceStorageGB: 2,
	}}
	router := newUsageRouter(t, source)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/creators/"+uuid.NewString()+"/usage?tier=free", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool     `json:"success"`
		Data    Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)

	snapshot := envelope.Data
	assert.Equal(t, TierFree, snapshot.Tier)
	assert.Equal(t, 90.0, snapshot.Resources[ResourceVideos].Percentage)
	assert.Equal(t, []Resource{ResourceVideos}, snapshot.Warnings)
	assert.Equal(t, TierBasic, snapshot.SuggestedTier)
}

func TestGetByCreatorDefaultsToFreeTier(t *testing.T) {
	source := &mockCounts{counts: map[Resource]float64{}}
	router := newUsageRouter(t, source)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/creators/"+uuid.NewString()+"/usage", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, TierFree, envelope.Data.Tier)
}

func TestGetByCreatorRejectsBadInput(t *testing.T) {
	router := newUsageRouter(t, &mockCounts{counts: map[Resource]float64{}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/creators/not-a-uuid/usage", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/creators/"+uuid.NewString()+"/usage?tier=platinum", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetByCreatorSourceFailure(t *testing.T) {
	router := newUsageRouter(t, &mockCounts{err: assert.AnError})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/creators/"+uuid.NewString()+"/usage", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCheckQuotaAllowed(t *testing.T) {
	source := &mockCounts{counts: map[Resource]float64{ResourceVideos: 3}}
	router := newUsageRouter(t, source)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/creators/"+uuid.NewString()+"/usage/check?resource=videos&tier=free", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool       `json:"success"`
		Data    QuotaCheck `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Allowed)
	assert.Empty(t, envelope.Data.Reason)
}

func TestCheckQuotaDeniedAtLimit(t *testing.T) {
	source := &mockCounts{counts: map[Resource]float64{ResourceVideos: 10}}
	router := newUsageRouter(t, source)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/creators/"+uuid.NewString()+"/usage/check?resource=videos&tier=free", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "videos limit (10) reached", envelope.Error)
}

func TestCheckQuotaUnlimitedTier(t *testing.T) {
	source := &mockCounts{counts: map[Resource]float64{ResourceVideos: 100000}}
	router := newUsageRouter(t, source)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/creators/"+uuid.NewString()+"/usage/check?resource=videos&tier=enterprise", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckQuotaRejectsUnknownResource(t *testing.T) {
	router := newUsageRouter(t, &mockCounts{counts: map[Resource]float64{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/creators/"+uuid.NewString()+"/usage/check?resource=webinars", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
