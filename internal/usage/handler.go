package usage

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Agentic-Person/whop-chronos-sub010/pkg/response"
)

// Handler handles GET /creators/:id/usage and the quota admission check.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a usage handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// GetByCreator handles GET /creators/:id/usage?tier=pro.
func (h *Handler) GetByCreator(c *gin.Context) {
	creatorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid creator id")
		return
	}
	tier, ok := tierParam(c)
	if !ok {
		response.BadRequest(c, "invalid tier")
		return
	}

	snapshot, err := h.service.CurrentUsage(c.Request.Context(), creatorID, tier)
	if err != nil {
		h.logger.Error("usage snapshot failed",
			zap.String("creator_id", creatorID.String()),
			zap.String("tier", string(tier)),
			zap.Error(err))
		response.Internal(c, "failed to load usage")
		return
	}

	response.OK(c, snapshot)
}

// CheckQuota handles GET /creators/:id/usage/check?resource=videos&tier=free.
// A denial returns 403 with the denial reason.
func (h *Handler) CheckQuota(c *gin.Context) {
	creatorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid creator id")
		return
	}
	tier, ok := tierParam(c)
	if !ok {
		response.BadRequest(c, "invalid tier")
		return
	}
	resource := Resource(c.Query("resource"))
	if !resource.Valid() {
		response.BadRequest(c, "invalid resource")
		return
	}

	check, err := h.service.CheckQuota(c.Request.Context(), creatorID, tier, resource)
	if err != nil {
		h.logger.Error("quota check failed",
			zap.String("creator_id", creatorID.String()),
			zap.String("resource", string(resource)),
			zap.Error(err))
		response.Internal(c, "failed to check quota")
		return
	}
	if !check.Allowed {
		response.Forbidden(c, check.Reason)
		return
	}

	response.OK(c, check)
}

// tierParam parses ?tier=, defaulting to free. The default keeps a
// missing billing lookup from ever unlocking higher limits.
func tierParam(c *gin.Context) (Tier, bool) {
	tier := Tier(c.DefaultQuery("tier", string(TierFree)))
	if !tier.Valid() {
		return "", false
	}
	return tier, true
}
