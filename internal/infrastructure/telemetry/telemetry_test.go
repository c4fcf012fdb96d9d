package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/feeledger/backend/internal/infrastructure/config"
	"github.com/feeledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

// ==================== Providers ====================

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := config.TelemetryConfig{ServiceName: "feeledger-test"}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	tp.EnableSpanProfiles()
	assert.False(t, tp.SpanProfilesEnabled())
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := telemetry.NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := telemetry.NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.False(t, lp.ZapCore().Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(ctx))

	p, err := telemetry.NewProfiler(cfg, logger)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresEndpoint(t *testing.T) {
	_, err := telemetry.NewProfiler(config.TelemetryConfig{ProfilingEnabled: true}, zap.NewNop())
	assert.Error(t, err)
}

func TestSampler(t *testing.T) {
	assert.Contains(t, telemetry.Sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, telemetry.Sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, telemetry.Sampler(0.25).Description(), "TraceIDRatioBased")
}

// ==================== Service spans ====================

func TestStartServiceSpan(t *testing.T) {
	exporter := installRecorder(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "fee", "record_payment",
		telemetry.WithAttribute(telemetry.SpanAttrTaxYear, 2025),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentID, uuid.MustParse("6f1c2a9e-2c1d-4d8e-9b7a-0c4b1e5f3a21")),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	telemetry.SetAttributes(span, telemetry.SpanAttrAlertLevel, "warning", 42, "ignored")
	telemetry.AddEvent(span, "classification_unavailable", "reason", "timeout")
	telemetry.RecordError(span, errors.New("boom"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "fee.record_payment", s.Name)
	assert.Equal(t, codes.Error, s.Status.Code)
	assert.Len(t, s.Attributes, 3)
	assert.Len(t, s.Events, 2)
}

func TestStartSpan(t *testing.T) {
	exporter := installRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "saga.record_payment.rollback",
		telemetry.WithAttribute("steps", 2))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "saga.record_payment.rollback", spans[0].Name)
	require.Len(t, spans[0].Attributes, 1)
	assert.Equal(t, int64(2), spans[0].Attributes[0].Value.AsInt64())
}

func TestGetTraceID_WithoutSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

// ==================== Fee metrics ====================

func TestFeeMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	m, err := telemetry.NewFeeMetrics(provider.Meter("test"), nil)
	require.NoError(t, err)

	tenant := uuid.New()
	m.RecordCalculation(ctx, tenant, telemetry.OutcomeCreated)
	m.RecordCalculation(ctx, tenant, telemetry.OutcomeUpdated)
	m.RecordPayment(ctx, tenant, "record", "bank_transfer", telemetry.OutcomeCreated)
	m.RecordDeviation(ctx, tenant, "critical")
	m.RecordClassificationFailure(ctx, tenant)
	m.RecordCompensation(ctx, tenant, "record")
	m.RecordKPICache(ctx, true)
	m.RecordRollupDuration(ctx, 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		byName[metric.Name] = metric
	}
	assert.Len(t, byName, 7)

	calcs := byName["feeledger_fee_calculations_total"].Data.(metricdata.Sum[int64])
	assert.Len(t, calcs.DataPoints, 2)
}

func TestFeeMetrics_NilSafe(t *testing.T) {
	var m *telemetry.FeeMetrics
	assert.NotPanics(t, func() {
		m.RecordCalculation(context.Background(), uuid.New(), telemetry.OutcomeFailed)
		m.RecordKPICache(context.Background(), false)
		m.RecordCompensation(context.Background(), uuid.New(), "delete")
	})
}

func TestNewFeeMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewFeeMetrics(nil, nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

// ==================== Database tracing ====================

func TestRegisterDBTracing(t *testing.T) {
	exporter := installRecorder(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := config.TelemetryConfig{Enabled: true, DBTraceEnabled: true}
	require.NoError(t, telemetry.RegisterDBTracing(db, cfg, zap.NewNop()))

	var one int
	require.NoError(t, db.WithContext(context.Background()).Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
	assert.NotEmpty(t, exporter.GetSpans())
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	assert.NoError(t, telemetry.RegisterDBTracing(db, config.TelemetryConfig{}, zap.NewNop()))
}
