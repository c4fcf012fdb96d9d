package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/feeledger/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

type queryStartKey struct{}

// RegisterDBTracing installs the otelgorm plugin plus callbacks that tag spans with
// the table, affected rows, errors and a slow-query marker. It does nothing when
// database tracing is off.
func RegisterDBTracing(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger) error {
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	threshold := cfg.DBSlowQueryThresh
	if threshold <= 0 {
		threshold = defaultSlowQueryThreshold
	}
	if err := registerSpanCallbacks(db, threshold); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.DBLogFullSQL),
		zap.Duration("slow_query_threshold", threshold),
	)
	return nil
}

func registerSpanCallbacks(db *gorm.DB, threshold time.Duration) error {
	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { annotateSpan(tx, threshold) }

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("feeledger:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("feeledger:after_create", after); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("feeledger:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("feeledger:after_query", after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("feeledger:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("feeledger:after_update", after); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("feeledger:before_delete", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("feeledger:after_delete", after); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("feeledger:before_raw", before); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("feeledger:after_raw", after); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("feeledger:before_row", before); err != nil {
		return err
	}
	return cb.Row().After("gorm:row").Register("feeledger:after_row", after)
}

func annotateSpan(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if tx.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	}
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.RecordError(tx.Error)
		span.SetStatus(codes.Error, tx.Error.Error())
	}
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
