package fee

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/export"
	"github.com/feeledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CollectionService answers the collections dashboard: portfolio KPIs,
// filtered rows and the spreadsheet export
type CollectionService struct {
	serviceBase
	reads        fee.CollectionReadRepository
	thresholds   fee.AlertThresholds
	cacheTTL     time.Duration
	compareNames fee.NameComparer
	rightToLeft  bool
}

// CollectionOptions configure the CollectionService
type CollectionOptions struct {
	Thresholds fee.AlertThresholds
	CacheTTL   time.Duration
	Locale     string
}

// NewCollectionService creates a new CollectionService
func NewCollectionService(reads fee.CollectionReadRepository, cache shared.Cache, opts CollectionOptions, logger *zap.Logger) *CollectionService {
	th := opts.Thresholds
	defaults := fee.DefaultAlertThresholds()
	if th.UnopenedAfter <= 0 {
		th.UnopenedAfter = defaults.UnopenedAfter
	}
	if th.NoSelectionAfter <= 0 {
		th.NoSelectionAfter = defaults.NoSelectionAfter
	}
	if th.AbandonedAfter <= 0 {
		th.AbandonedAfter = defaults.AbandonedAfter
	}
	if opts.Locale == "" {
		opts.Locale = "he"
	}
	return &CollectionService{
		serviceBase:  newServiceBase(cache, logger),
		reads:        reads,
		thresholds:   th,
		cacheTTL:     opts.CacheTTL,
		compareNames: NewNameComparer(opts.Locale),
		rightToLeft:  isRightToLeft(opts.Locale),
	}
}

// GetKPIs returns the collection KPIs for a tenant, optionally limited to a window
// on the send date. Results are cached per tenant and window.
func (s *CollectionService) GetKPIs(ctx context.Context, tenantID uuid.UUID, window *shared.DateRange) (*fee.CollectionKPIs, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "get_kpis")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	var w shared.DateRange
	if window != nil {
		w = *window
	}
	if !w.From.IsZero() && !w.To.IsZero() && w.To.Before(w.From) {
		return nil, fee.NewValidationError(fee.CodeValidation, "to", "date range end is before its start")
	}

	key := kpiCacheKey(tenantID, w)
	if s.cache != nil {
		var cached fee.CollectionKPIs
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Failed to read cached KPIs", zap.String("key", key), zap.Error(err))
		}
		if found {
			s.metrics.RecordKPICache(ctx, true)
			return &cached, nil
		}
		s.metrics.RecordKPICache(ctx, false)
	}

	now := s.now()
	var (
		totals fee.CollectionTotals
		alerts fee.AlertCounts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.reads.Totals(gctx, tenantID, w)
		return err
	})
	g.Go(func() (err error) {
		alerts.Unopened, err = s.reads.CountUnopened(gctx, tenantID, now.Add(-s.thresholds.UnopenedAfter), w)
		return err
	})
	g.Go(func() (err error) {
		alerts.NoSelection, err = s.reads.CountNoSelection(gctx, tenantID, now.Add(-s.thresholds.NoSelectionAfter), w)
		return err
	})
	g.Go(func() (err error) {
		alerts.Abandoned, err = s.reads.CountAbandoned(gctx, tenantID, now.Add(-s.thresholds.AbandonedAfter), w)
		return err
	})
	g.Go(func() (err error) {
		alerts.Disputes, err = s.reads.CountOpenDisputes(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to compute collection KPIs: %w", err)
	}

	kpis := fee.BuildKPIs(totals, alerts, now)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, kpis, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache KPIs", zap.String("key", key), zap.Error(err))
		}
	}
	return &kpis, nil
}

// GetDashboardRows returns one page of dashboard rows
func (s *CollectionService) GetDashboardRows(
	ctx context.Context,
	tenantID uuid.UUID,
	filter fee.DashboardFilter,
	order fee.DashboardSort,
	page shared.Filter,
) (shared.Paginated[fee.CollectionRow], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "get_dashboard_rows")
	defer span.End()

	records, err := s.reads.ListRecords(ctx, tenantID, filter.TaxYear)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[fee.CollectionRow]{}, fmt.Errorf("failed to load collection records: %w", err)
	}
	return fee.BuildDashboard(records, filter, order, page, s.now(), s.thresholds, s.compareNames), nil
}

// ExportDashboard writes every row matching the filter as an XLSX workbook
func (s *CollectionService) ExportDashboard(
	ctx context.Context,
	tenantID uuid.UUID,
	filter fee.DashboardFilter,
	order fee.DashboardSort,
	w io.Writer,
) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "export_dashboard")
	defer span.End()

	records, err := s.reads.ListRecords(ctx, tenantID, filter.TaxYear)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("failed to load collection records: %w", err)
	}
	rows := fee.SelectRows(records, filter, order, s.now(), s.thresholds, s.compareNames)
	if err := export.WriteDashboard(w, rows, export.Options{RightToLeft: s.rightToLeft}); err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("failed to write dashboard export: %w", err)
	}
	return len(rows), nil
}

func isRightToLeft(locale string) bool {
	switch locale {
	case "he", "he-IL", "ar", "fa", "ur":
		return true
	}
	return false
}
