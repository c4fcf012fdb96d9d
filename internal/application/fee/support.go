// Package fee holds the application services of the fee ledger: calculation,
// payment recording, collection figures, group rollups, disputes and letter tracking.
package fee

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	spanService = "fee"

	kpiCacheKeyPrefix = "kpis:"
)

// kpiTenantPrefix is the cache prefix of every KPI entry of a tenant
func kpiTenantPrefix(tenantID uuid.UUID) string {
	return kpiCacheKeyPrefix + tenantID.String() + ":"
}

// kpiCacheKey is the cache key of the KPIs for a tenant and date window
func kpiCacheKey(tenantID uuid.UUID, window shared.DateRange) string {
	return fmt.Sprintf("%s%s:%s", kpiTenantPrefix(tenantID), formatBound(window.From), formatBound(window.To))
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.UTC().Format(time.RFC3339)
}

// serviceBase carries what every fee service shares. The publisher, cache and
// metrics are optional.
type serviceBase struct {
	publisher shared.EventPublisher
	cache     shared.Cache
	metrics   *telemetry.FeeMetrics
	logger    *zap.Logger
	now       func() time.Time
}

func newServiceBase(cache shared.Cache, logger *zap.Logger) serviceBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return serviceBase{cache: cache, logger: logger, now: time.Now}
}

// SetEventPublisher sets the publisher for domain events
func (b *serviceBase) SetEventPublisher(publisher shared.EventPublisher) {
	b.publisher = publisher
}

// SetMetrics sets the fee metrics recorder
func (b *serviceBase) SetMetrics(metrics *telemetry.FeeMetrics) {
	b.metrics = metrics
}

// SetClock replaces the time source
func (b *serviceBase) SetClock(now func() time.Time) {
	if now != nil {
		b.now = now
	}
}

// publish delivers events; failures are logged and never fail the operation
func (b *serviceBase) publish(ctx context.Context, events ...shared.DomainEvent) {
	if b.publisher == nil || len(events) == 0 {
		return
	}
	if err := b.publisher.Publish(ctx, events...); err != nil {
		b.logger.Warn("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.String("event_type", events[0].EventType()),
			zap.Error(err),
		)
	}
}

// publishEvents delivers the events an aggregate raised and clears them
func (b *serviceBase) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	events := aggregate.GetDomainEvents()
	b.publish(ctx, events...)
	aggregate.ClearDomainEvents()
}

// invalidateKPIs drops the tenant's cached KPIs after a mutation
func (b *serviceBase) invalidateKPIs(ctx context.Context, tenantID uuid.UUID) {
	if b.cache == nil {
		return
	}
	if err := b.cache.InvalidatePrefix(ctx, kpiTenantPrefix(tenantID)); err != nil {
		b.logger.Warn("Failed to invalidate KPI cache",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}

func requireTenant(tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return fee.NewValidationError(fee.CodeValidation, "tenant_id", "tenant ID is required")
	}
	return nil
}

// NewNameComparer returns a locale-aware, case-insensitive name comparison.
// An unparseable locale falls back to Hebrew.
func NewNameComparer(locale string) fee.NameComparer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Hebrew
	}
	// collate.Collator keeps internal buffers and is not safe for concurrent use
	var mu sync.Mutex
	collator := collate.New(tag, collate.IgnoreCase)
	return func(a, b string) int {
		mu.Lock()
		defer mu.Unlock()
		return collator.CompareString(a, b)
	}
}
