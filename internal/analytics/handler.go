package analytics

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Agentic-Person/whop-chronos-sub010/internal/models"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/cache"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/response"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/storage"
)

// reportCacheTTL bounds how stale a cached dashboard can get when an
// invalidation is missed.
const reportCacheTTL = 5 * time.Minute

// ExportStore uploads rendered exports and hands back a download URL.
type ExportStore interface {
	UploadExport(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// Handler handles GET /creators/:id/analytics and its CSV export.
type Handler struct {
	aggregator *Aggregator
	cache      *cache.Cache
	exports    ExportStore
	logger     *zap.Logger
}

// NewHandler creates an analytics handler. reportCache and exports may be
// nil: reports are then built on every request and exports served inline.
func NewHandler(aggregator *Aggregator, reportCache *cache.Cache, exports ExportStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{aggregator: aggregator, cache: reportCache, exports: exports, logger: logger}
}

// ExportResponse is the JSON shape returned for S3-backed exports.
type ExportResponse struct {
	DownloadURL string `json:"download_url"`
	Key         string `json:"key"`
}

// GetByCreator handles GET /creators/:id/analytics.
func (h *Handler) GetByCreator(c *gin.Context) {
	creatorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid creator id")
		return
	}
	rangeType, ok := rangeParam(c)
	if !ok {
		response.BadRequest(c, "invalid range")
		return
	}

	report, err := h.report(c.Request.Context(), creatorID, rangeType)
	if err != nil {
		h.logger.Error("analytics report failed",
			zap.String("creator_id", creatorID.String()),
			zap.String("range", string(rangeType)),
			zap.Error(err))
		response.Internal(c, "failed to build analytics report")
		return
	}

	response.OK(c, report)
}

// Export handles GET /creators/:id/analytics/export. With an export store
// configured the CSV lands on S3 and the response carries a presigned
// download URL; without one the CSV streams inline.
func (h *Handler) Export(c *gin.Context) {
	creatorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid creator id")
		return
	}
	rangeType, ok := rangeParam(c)
	if !ok {
		response.BadRequest(c, "invalid range")
		return
	}

	ctx := c.Request.Context()
	report, err := h.report(ctx, creatorID, rangeType)
	if err != nil {
		h.logger.Error("analytics export failed",
			zap.String("creator_id", creatorID.String()),
			zap.String("range", string(rangeType)),
			zap.Error(err))
		response.Internal(c, "failed to build analytics report")
		return
	}
	body := RenderCSV(report)

	if h.exports == nil {
		c.Header("Content-Disposition", `attachment; filename="analytics-`+string(rangeType)+`.csv"`)
		c.Data(http.StatusOK, "text/csv", body)
		return
	}

	key := storage.ExportKey(creatorID.String(), string(rangeType), time.Now().UTC())
	if _, err := h.exports.UploadExport(ctx, key, "text/csv", bytes.NewReader(body), int64(len(body))); err != nil {
		h.logger.Error("export upload failed", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to store export")
		return
	}
	url, err := h.exports.PresignDownload(ctx, key)
	if err != nil {
		h.logger.Error("export presign failed", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to sign export download")
		return
	}

	response.OK(c, ExportResponse{DownloadURL: url, Key: key})
}

// report serves the cached dashboard, building and caching it on a miss.
func (h *Handler) report(ctx context.Context, creatorID uuid.UUID, rangeType models.RangeType) (*models.AnalyticsReport, error) {
	if h.cache == nil {
		return h.aggregator.Aggregate(ctx, creatorID, rangeType)
	}
	key := h.cache.Key("analytics", creatorID, string(rangeType))
	return cache.GetOrSet(ctx, h.cache, key, reportCacheTTL, func(ctx context.Context) (*models.AnalyticsReport, error) {
		return h.aggregator.Aggregate(ctx, creatorID, rangeType)
	})
}

// rangeParam parses ?range=, defaulting to the 30 day window.
func rangeParam(c *gin.Context) (models.RangeType, bool) {
	rangeType := models.RangeType(c.DefaultQuery("range", string(models.RangeLast30Days)))
	if !rangeType.Valid() {
		return "", false
	}
	return rangeType, true
}
