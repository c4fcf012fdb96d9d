package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormAuditLogRepository(t *testing.T) {
	db := setupFeeTestDB(t)
	repo := NewGormAuditLogRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	entityID := uuid.New()
	actor := uuid.New()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, action := range []string{fee.AuditCreateFeeCalculation, fee.AuditMarkFeePaid} {
		require.NoError(t, repo.Append(ctx, &audit.Entry{
			ID:         uuid.New(),
			TenantID:   tenantID,
			Action:     action,
			EntityType: fee.AggregateTypeFeeCalculation,
			EntityID:   entityID,
			UserID:     &actor,
			EventID:    uuid.New(),
			Payload:    map[string]any{"tax_year": float64(2025)},
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.Append(ctx, &audit.Entry{
		ID: uuid.New(), TenantID: uuid.New(), Action: fee.AuditMarkFeePaid,
		EntityType: fee.AggregateTypeFeeCalculation, EntityID: entityID, EventID: uuid.New(),
		OccurredAt: base,
	}))

	entries, err := repo.FindByEntity(ctx, tenantID, fee.AggregateTypeFeeCalculation, entityID, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, fee.AuditMarkFeePaid, entries[0].Action)
	assert.Equal(t, fee.AuditCreateFeeCalculation, entries[1].Action)
	assert.Equal(t, float64(2025), entries[0].Payload["tax_year"])
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, actor, *entries[0].UserID)
}
