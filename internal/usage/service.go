package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CountSource provides live resource totals for a creator.
type CountSource interface {
	Counts(ctx context.Context, creatorID uuid.UUID) (map[Resource]float64, error)
}

// Service computes usage snapshots and enforces quota checks.
type Service struct {
	counts CountSource
	logger *zap.Logger
}

// NewService creates a usage service over a count source.
func NewService(counts CountSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{counts: counts, logger: logger}
}

// CurrentUsage returns the creator's usage snapshot for their tier.
func (s *Service) CurrentUsage(ctx context.Context, creatorID uuid.UUID, tier Tier) (Snapshot, error) {
	counts, err := s.counts.Counts(ctx, creatorID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("usage counts: %w", err)
	}
	return BuildSnapshot(tier, counts), nil
}

// CheckQuota decides whether the creator may consume one more unit of
// resource on their tier.
func (s *Service) CheckQuota(ctx context.Context, creatorID uuid.UUID, tier Tier, resource Resource) (QuotaCheck, error) {
	counts, err := s.counts.Counts(ctx, creatorID)
	if err != nil {
		return QuotaCheck{}, fmt.Errorf("usage counts: %w", err)
	}
	check := Check(tier, resource, counts[resource])
	if !check.Allowed {
		s.logger.Info("quota denied",
			zap.String("creator_id", creatorID.String()),
			zap.String("tier", string(tier)),
			zap.String("resource", string(resource)),
		)
	}
	return check, nil
}
