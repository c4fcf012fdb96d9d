package fee

import (
	"context"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GroupRollupService builds the group overview for a tax year
type GroupRollupService struct {
	serviceBase
	reads        fee.RollupReadRepository
	compareNames fee.NameComparer
}

// NewGroupRollupService creates a new GroupRollupService sorting names by locale
func NewGroupRollupService(reads fee.RollupReadRepository, locale string, logger *zap.Logger) *GroupRollupService {
	if locale == "" {
		locale = "he"
	}
	return &GroupRollupService{
		serviceBase:  newServiceBase(nil, logger),
		reads:        reads,
		compareNames: NewNameComparer(locale),
	}
}

// Rollup returns group summaries and standalone clients for the year, sorted by name
func (s *GroupRollupService) Rollup(ctx context.Context, tenantID uuid.UUID, taxYear int) ([]fee.RollupRow, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "group_rollup")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrTaxYear, taxYear,
	)
	start := time.Now()

	clients, err := s.reads.ListClientStatuses(ctx, tenantID, taxYear)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load client statuses: %w", err)
	}
	groups, err := s.reads.ListGroups(ctx, tenantID, taxYear)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	rows := fee.Rollup(clients, groups, s.compareNames)
	s.metrics.RecordRollupDuration(ctx, time.Since(start))
	return rows, nil
}
