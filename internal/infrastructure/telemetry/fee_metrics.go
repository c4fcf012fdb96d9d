package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when FeeMetrics is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome labels
const (
	OutcomeCreated     = "created"
	OutcomeUpdated     = "updated"
	OutcomeUnchanged   = "unchanged"
	OutcomeFailed      = "failed"
	OutcomeCompensated = "compensated"
)

// FeeMetrics records fee engine activity. All methods are safe on a nil receiver
// so services can run without metrics.
type FeeMetrics struct {
	logger *zap.Logger

	calculations           *Counter
	payments               *Counter
	deviations             *Counter
	classificationFailures *Counter
	compensations          *Counter
	kpiCache               *Counter
	rollupDuration         *Histogram
}

// NewFeeMetrics registers the fee instruments on the meter
func NewFeeMetrics(meter metric.Meter, logger *zap.Logger) (*FeeMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &FeeMetrics{logger: logger}
	var err error

	if m.calculations, err = NewCounter(meter, "feeledger_fee_calculations_total",
		"Fee calculations saved, by outcome", "{calculations}"); err != nil {
		return nil, err
	}
	if m.payments, err = NewCounter(meter, "feeledger_payments_total",
		"Payment operations, by operation, method and outcome", "{payments}"); err != nil {
		return nil, err
	}
	if m.deviations, err = NewCounter(meter, "feeledger_payment_deviations_total",
		"Payment deviations classified, by alert level", "{deviations}"); err != nil {
		return nil, err
	}
	if m.classificationFailures, err = NewCounter(meter, "feeledger_classification_failures_total",
		"Deviation classifications that could not be obtained", "{failures}"); err != nil {
		return nil, err
	}
	if m.compensations, err = NewCounter(meter, "feeledger_payment_compensations_total",
		"Payment writes rolled back after a later step failed", "{compensations}"); err != nil {
		return nil, err
	}
	if m.kpiCache, err = NewCounter(meter, "feeledger_kpi_cache_lookups_total",
		"Collection KPI cache lookups, by result", "{lookups}"); err != nil {
		return nil, err
	}
	if m.rollupDuration, err = NewHistogram(meter, "feeledger_group_rollup_duration_seconds",
		"Time spent building the group rollup", "s", FastOperationBuckets...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordCalculation counts a fee calculation save
func (m *FeeMetrics) RecordCalculation(ctx context.Context, tenantID uuid.UUID, outcome string) {
	if m == nil {
		return
	}
	m.calculations.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrOutcome.String(outcome))
}

// RecordPayment counts a payment operation
func (m *FeeMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, operation, method, outcome string) {
	if m == nil {
		return
	}
	m.payments.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrOperation.String(operation),
		AttrPaymentMethod.String(method),
		AttrOutcome.String(outcome),
	)
}

// RecordDeviation counts a classified deviation
func (m *FeeMetrics) RecordDeviation(ctx context.Context, tenantID uuid.UUID, level string) {
	if m == nil {
		return
	}
	m.deviations.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrAlertLevel.String(level))
}

// RecordClassificationFailure counts an unavailable classification
func (m *FeeMetrics) RecordClassificationFailure(ctx context.Context, tenantID uuid.UUID) {
	if m == nil {
		return
	}
	m.classificationFailures.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordCompensation counts a rolled back payment write
func (m *FeeMetrics) RecordCompensation(ctx context.Context, tenantID uuid.UUID, operation string) {
	if m == nil {
		return
	}
	m.compensations.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrOperation.String(operation))
	m.logger.Warn("Payment write compensated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("operation", operation),
	)
}

// RecordKPICache counts a KPI cache hit or miss
func (m *FeeMetrics) RecordKPICache(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.kpiCache.Inc(ctx, AttrCacheResult.String(result))
}

// RecordRollupDuration records how long a rollup took
func (m *FeeMetrics) RecordRollupDuration(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.rollupDuration.RecordDuration(ctx, d)
}
