package fee

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newFeeService(t *testing.T) (*FeeCalculationService, *MockFeeCalculationRepository, *recordingPublisher, *cache.InMemoryCache) {
	t.Helper()
	repo := new(MockFeeCalculationRepository)
	c := cache.NewInMemoryCache(shared.CacheConfig{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })
	svc := NewFeeCalculationService(repo, fee.NewCalculator(fee.DefaultVATRate), c, nil)
	pub := &recordingPublisher{}
	svc.SetEventPublisher(pub)
	svc.SetClock(fixedClock)
	return svc, repo, pub, c
}

func TestFeeCalculationService_CreateOrUpdate_Create(t *testing.T) {
	svc, repo, pub, c := newFeeService(t)
	ctx := context.Background()
	clientID := uuid.New()

	kpiKey := kpiCacheKey(testTenantID, shared.DateRange{})
	require.NoError(t, c.Set(ctx, kpiKey, "stale", 0))

	repo.On("FindByClientYear", mock.Anything, testTenantID, clientID, 2025).Return(nil, nil)
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*fee.FeeCalculation")).Return(nil)

	result, err := svc.CreateOrUpdate(ctx, CreateOrUpdateFeeRequest{
		TenantID: testTenantID,
		UserID:   testUserID,
		ClientID: clientID,
		TaxYear:  2025,
		Params:   baseParams("10000"),
	})

	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.True(t, result.Recalculated)
	assert.True(t, result.Calculation.InflationAdjustment.Equal(dec("300")))
	assert.True(t, result.Calculation.FinalAmountBeforeVAT.Equal(dec("10300")))
	assert.True(t, result.Calculation.VATAmount.Equal(dec("1854")))
	assert.True(t, result.Calculation.TotalWithVAT.Equal(dec("12154")))
	assert.Equal(t, fee.FeeStatusDraft, result.Calculation.Status)
	assert.Equal(t, []string{fee.EventTypeFeeCalculationCreated}, pub.types())

	var cached string
	found, err := c.Get(ctx, kpiKey, &cached)
	require.NoError(t, err)
	assert.False(t, found, "KPI cache should be invalidated")
	repo.AssertExpectations(t)
}

func TestFeeCalculationService_CreateOrUpdate_RecalculatesOnAmountChange(t *testing.T) {
	svc, repo, pub, _ := newFeeService(t)
	existing := storedFee("10000", fee.FeeStatusSent)

	repo.On("FindByClientYear", mock.Anything, testTenantID, existing.ClientID, 2025).Return(existing, nil)
	repo.On("Upsert", mock.Anything, existing).Run(func(args mock.Arguments) {
		calc := args.Get(1).(*fee.FeeCalculation)
		calc.UpdatedAt = calc.CreatedAt.Add(time.Hour)
	}).Return(nil)

	result, err := svc.CreateOrUpdate(context.Background(), CreateOrUpdateFeeRequest{
		TenantID: testTenantID,
		UserID:   testUserID,
		ClientID: existing.ClientID,
		TaxYear:  2025,
		Params:   baseParams("20000"),
	})

	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.True(t, result.Recalculated)
	assert.True(t, result.Calculation.FinalAmountBeforeVAT.Equal(dec("20600")))
	assert.Equal(t, fee.FeeStatusSent, result.Calculation.Status, "status survives recalculation")

	updated, ok := pub.last().(*fee.FeeCalculationUpdatedEvent)
	require.True(t, ok)
	assert.True(t, updated.Recalculated)
	assert.Contains(t, updated.ChangedFields, "base_amount")
	assert.Contains(t, updated.ChangedFields, "total_with_vat")
	repo.AssertExpectations(t)
}

func TestFeeCalculationService_CreateOrUpdate_DetailsOnlyKeepsAmounts(t *testing.T) {
	svc, repo, pub, _ := newFeeService(t)
	existing := storedFee("10000", fee.FeeStatusDraft)
	// a stored total the calculator would never produce proves nothing was recomputed
	existing.TotalWithVAT = dec("99999")

	repo.On("FindByClientYear", mock.Anything, testTenantID, existing.ClientID, 2025).Return(existing, nil)
	repo.On("Upsert", mock.Anything, existing).Run(func(args mock.Arguments) {
		calc := args.Get(1).(*fee.FeeCalculation)
		calc.UpdatedAt = calc.CreatedAt.Add(time.Minute)
	}).Return(nil)

	params := baseParams("10000")
	params.Notes = "called the client"

	result, err := svc.CreateOrUpdate(context.Background(), CreateOrUpdateFeeRequest{
		TenantID: testTenantID,
		UserID:   testUserID,
		ClientID: existing.ClientID,
		TaxYear:  2025,
		Params:   params,
	})

	require.NoError(t, err)
	assert.False(t, result.Recalculated)
	assert.True(t, result.Calculation.TotalWithVAT.Equal(dec("99999")))
	assert.Equal(t, "called the client", result.Calculation.Notes)
	assert.False(t, result.Calculation.Metadata.Recalculated)

	updated, ok := pub.last().(*fee.FeeCalculationUpdatedEvent)
	require.True(t, ok)
	assert.False(t, updated.Recalculated)
	assert.Equal(t, "called the client", updated.ChangedFields["notes"])
	assert.NotContains(t, updated.ChangedFields, "base_amount")
}

func TestFeeCalculationService_CreateOrUpdate_RejectsPositiveClientAdjustment(t *testing.T) {
	svc, repo, pub, _ := newFeeService(t)
	params := baseParams("10000")
	params.ClientRequestedAdjustment = dec("500")

	_, err := svc.CreateOrUpdate(context.Background(), CreateOrUpdateFeeRequest{
		TenantID: testTenantID,
		UserID:   testUserID,
		ClientID: uuid.New(),
		TaxYear:  2025,
		Params:   params,
	})

	require.Error(t, err)
	assert.True(t, fee.IsValidationError(err))
	repo.AssertNotCalled(t, "FindByClientYear", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	assert.Empty(t, pub.types())
}

func TestFeeCalculationService_CreateOrUpdate_RequiresTenant(t *testing.T) {
	svc, _, _, _ := newFeeService(t)

	_, err := svc.CreateOrUpdate(context.Background(), CreateOrUpdateFeeRequest{
		ClientID: uuid.New(),
		TaxYear:  2025,
		Params:   baseParams("100"),
	})

	assert.True(t, fee.IsValidationError(err))
}

func TestFeeCalculationService_CreateOrUpdate_UpsertFailure(t *testing.T) {
	svc, repo, pub, _ := newFeeService(t)
	clientID := uuid.New()
	dbErr := fee.NewPersistenceError("upsert fee calculation", errors.New("connection reset"))

	repo.On("FindByClientYear", mock.Anything, testTenantID, clientID, 2025).Return(nil, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(dbErr)

	_, err := svc.CreateOrUpdate(context.Background(), CreateOrUpdateFeeRequest{
		TenantID: testTenantID,
		UserID:   testUserID,
		ClientID: clientID,
		TaxYear:  2025,
		Params:   baseParams("100"),
	})

	require.Error(t, err)
	assert.True(t, fee.IsPersistenceError(err))
	assert.Empty(t, pub.types())
}

func TestFeeCalculationService_Preview(t *testing.T) {
	svc, repo, _, _ := newFeeService(t)

	resp, err := svc.Preview(context.Background(), testTenantID, baseParams("10000"))

	require.NoError(t, err)
	assert.True(t, resp.TotalWithVAT.Equal(dec("12154")))
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestFeeCalculationService_MarkPaid(t *testing.T) {
	svc, repo, pub, _ := newFeeService(t)
	calc := storedFee("10000", fee.FeeStatusSent)
	version := calc.Version

	repo.On("FindByIDForTenant", mock.Anything, testTenantID, calc.ID).Return(calc, nil)
	repo.On("SaveWithLock", mock.Anything, calc).Return(nil)

	resp, err := svc.MarkPaid(context.Background(), testTenantID, testUserID, calc.ID, nil)

	require.NoError(t, err)
	assert.Equal(t, fee.FeeStatusPaid, resp.Status)
	require.NotNil(t, resp.PaymentDate)
	assert.True(t, resp.PaymentDate.Equal(testNow))
	assert.Equal(t, version+1, resp.Version)
	assert.Equal(t, []string{fee.EventTypeFeeMarkedPaid}, pub.types())
}

func TestFeeCalculationService_MarkPaid_NotFound(t *testing.T) {
	svc, repo, _, _ := newFeeService(t)
	id := uuid.New()
	repo.On("FindByIDForTenant", mock.Anything, testTenantID, id).Return(nil, nil)

	_, err := svc.MarkPaid(context.Background(), testTenantID, testUserID, id, nil)

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFeeCalculationService_MarkPartialPayment_ExceedsTotal(t *testing.T) {
	svc, repo, pub, _ := newFeeService(t)
	calc := storedFee("10000", fee.FeeStatusSent)
	repo.On("FindByIDForTenant", mock.Anything, testTenantID, calc.ID).Return(calc, nil)

	_, err := svc.MarkPartialPayment(context.Background(), testTenantID, testUserID, calc.ID, dec("20000"), nil)

	var verr *fee.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, fee.CodePartialPaymentExceeds, verr.Code)
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	assert.Empty(t, pub.types())
}

func TestFeeCalculationService_MarkPartialPayment(t *testing.T) {
	svc, repo, pub, _ := newFeeService(t)
	calc := storedFee("10000", fee.FeeStatusSent)
	paidOn := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	repo.On("FindByIDForTenant", mock.Anything, testTenantID, calc.ID).Return(calc, nil)
	repo.On("SaveWithLock", mock.Anything, calc).Return(nil)

	resp, err := svc.MarkPartialPayment(context.Background(), testTenantID, testUserID, calc.ID, dec("5000"), &paidOn)

	require.NoError(t, err)
	assert.Equal(t, fee.FeeStatusPartialPaid, resp.Status)
	assert.True(t, resp.PartialPaidAmount.Equal(dec("5000")))
	assert.Equal(t, []string{fee.EventTypeFeePartialPayment}, pub.types())
}

func TestFeeCalculationService_MarkSent_ConcurrencyConflict(t *testing.T) {
	svc, repo, pub, _ := newFeeService(t)
	calc := storedFee("10000", fee.FeeStatusDraft)

	repo.On("FindByIDForTenant", mock.Anything, testTenantID, calc.ID).Return(calc, nil)
	repo.On("SaveWithLock", mock.Anything, calc).Return(shared.ErrConcurrencyConflict)

	_, err := svc.MarkSent(context.Background(), testTenantID, testUserID, calc.ID, nil)

	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Empty(t, pub.types())
}

func TestFeeCalculationService_List(t *testing.T) {
	svc, repo, _, _ := newFeeService(t)
	calcs := []fee.FeeCalculation{*storedFee("100", fee.FeeStatusDraft), *storedFee("200", fee.FeeStatusSent)}

	repo.On("FindAllForTenant", mock.Anything, testTenantID, mock.MatchedBy(func(f fee.FeeCalculationFilter) bool {
		return f.Page == 1 && f.PageSize > 0
	})).Return(calcs, int64(2), nil)

	page, err := svc.List(context.Background(), testTenantID, fee.FeeCalculationFilter{})

	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
}
