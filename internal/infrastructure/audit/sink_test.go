package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Append(ctx context.Context, entry *Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func createTestFee(t *testing.T) *fee.FeeCalculation {
	t.Helper()
	f, err := fee.NewFeeCalculation(uuid.New(), uuid.New(), 2025, uuid.New())
	require.NoError(t, err)
	f.TotalWithVAT = decimal.NewFromInt(11800)
	return f
}

func TestSink_WritesAuditableEvents(t *testing.T) {
	store := new(mockStore)
	sink := NewSink(store, zap.NewNop())
	f := createTestFee(t)
	actor := uuid.New()
	paidAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	store.On("Append", mock.Anything, mock.MatchedBy(func(e *Entry) bool {
		return e.Action == fee.AuditMarkFeePaid &&
			e.EntityType == fee.AggregateTypeFeeCalculation &&
			e.EntityID == f.ID &&
			e.TenantID == f.TenantID &&
			e.UserID != nil && *e.UserID == actor
	})).Return(nil).Once()

	err := sink.Handle(context.Background(), fee.NewFeeMarkedPaidEvent(f, actor, paidAt))

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestSink_IgnoresNonAuditableEvents(t *testing.T) {
	store := new(mockStore)
	sink := NewSink(store, zap.NewNop())

	plain := shared.NewBaseDomainEvent("Heartbeat", "System", uuid.New(), uuid.New(), uuid.Nil)
	require.NoError(t, sink.Handle(context.Background(), &plain))

	store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSink_SwallowsStoreFailures(t *testing.T) {
	store := new(mockStore)
	core, recorded := observer.New(zapcore.WarnLevel)
	sink := NewSink(store, zap.New(core))

	store.On("Append", mock.Anything, mock.Anything).Return(errors.New("audit_logs missing"))

	err := sink.Handle(context.Background(), fee.NewFeeMarkedSentEvent(createTestFee(t), uuid.New(), time.Now()))

	assert.NoError(t, err)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to write audit log").Len())
}

func TestSink_SubscribesToEverything(t *testing.T) {
	assert.Nil(t, NewSink(new(mockStore), nil).EventTypes())
}

func TestEntryFromEvent(t *testing.T) {
	f := createTestFee(t)

	t.Run("system actor leaves user empty", func(t *testing.T) {
		entry := EntryFromEvent(fee.NewFeeCalculationCreatedEvent(f, uuid.Nil))
		assert.Nil(t, entry.UserID)
		assert.Equal(t, fee.AuditCreateFeeCalculation, entry.Action)
		assert.Equal(t, "11800", entry.Payload["total_with_vat"])
		assert.NotEqual(t, uuid.Nil, entry.ID)
	})

	t.Run("changed fields flow into the payload", func(t *testing.T) {
		entry := EntryFromEvent(fee.NewFeeCalculationUpdatedEvent(f, uuid.New(), true, map[string]any{"notes": "updated"}))
		assert.Equal(t, fee.AuditUpdateFeeCalculation, entry.Action)
		assert.Equal(t, "updated", entry.Payload["notes"])
		assert.Equal(t, true, entry.Payload["recalculated"])
	})
}
