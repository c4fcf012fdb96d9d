package fee

import (
	"context"
	"sync"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/audit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockFeeCalculationRepository is a mock implementation of fee.FeeCalculationRepository
type MockFeeCalculationRepository struct {
	mock.Mock
}

func (m *MockFeeCalculationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.FeeCalculation, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.FeeCalculation), args.Error(1)
}

func (m *MockFeeCalculationRepository) FindByClientYear(ctx context.Context, tenantID, clientID uuid.UUID, taxYear int) (*fee.FeeCalculation, error) {
	args := m.Called(ctx, tenantID, clientID, taxYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.FeeCalculation), args.Error(1)
}

func (m *MockFeeCalculationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter fee.FeeCalculationFilter) ([]fee.FeeCalculation, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]fee.FeeCalculation), args.Get(1).(int64), args.Error(2)
}

func (m *MockFeeCalculationRepository) Upsert(ctx context.Context, calc *fee.FeeCalculation) error {
	args := m.Called(ctx, calc)
	return args.Error(0)
}

func (m *MockFeeCalculationRepository) SaveWithLock(ctx context.Context, calc *fee.FeeCalculation) error {
	args := m.Called(ctx, calc)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of fee.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.ActualPayment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.ActualPayment), args.Error(1)
}

func (m *MockPaymentRepository) FindByFeeCalculation(ctx context.Context, tenantID, feeCalculationID uuid.UUID) (*fee.ActualPayment, error) {
	args := m.Called(ctx, tenantID, feeCalculationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.ActualPayment), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *fee.ActualPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *fee.ActualPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockPaymentRepository) CreateInstallments(ctx context.Context, installments []fee.PaymentInstallment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

// MockDeviationRepository is a mock implementation of fee.DeviationRepository
type MockDeviationRepository struct {
	mock.Mock
}

func (m *MockDeviationRepository) FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*fee.PaymentDeviation, error) {
	args := m.Called(ctx, tenantID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.PaymentDeviation), args.Error(1)
}

func (m *MockDeviationRepository) Create(ctx context.Context, deviation *fee.PaymentDeviation) error {
	args := m.Called(ctx, deviation)
	return args.Error(0)
}

func (m *MockDeviationRepository) DeleteByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) error {
	args := m.Called(ctx, tenantID, paymentID)
	return args.Error(0)
}

// MockDeviationClassifier is a mock implementation of fee.DeviationClassifier
type MockDeviationClassifier struct {
	mock.Mock
}

func (m *MockDeviationClassifier) Classify(ctx context.Context, tenantID, feeCalculationID uuid.UUID, actualAmount decimal.Decimal) (*fee.DeviationClassification, error) {
	args := m.Called(ctx, tenantID, feeCalculationID, actualAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.DeviationClassification), args.Error(1)
}

// MockDisputeRepository is a mock implementation of fee.DisputeRepository
type MockDisputeRepository struct {
	mock.Mock
}

func (m *MockDisputeRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.PaymentDispute, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.PaymentDispute), args.Error(1)
}

func (m *MockDisputeRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter fee.DisputeFilter) ([]fee.PaymentDispute, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]fee.PaymentDispute), args.Get(1).(int64), args.Error(2)
}

func (m *MockDisputeRepository) Save(ctx context.Context, dispute *fee.PaymentDispute) error {
	args := m.Called(ctx, dispute)
	return args.Error(0)
}

// MockLetterTrackingRepository is a mock implementation of fee.LetterTrackingRepository
type MockLetterTrackingRepository struct {
	mock.Mock
}

func (m *MockLetterTrackingRepository) FindByFeeCalculation(ctx context.Context, tenantID, feeCalculationID uuid.UUID) (*fee.LetterTracking, error) {
	args := m.Called(ctx, tenantID, feeCalculationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.LetterTracking), args.Error(1)
}

func (m *MockLetterTrackingRepository) Save(ctx context.Context, tracking *fee.LetterTracking) error {
	args := m.Called(ctx, tracking)
	return args.Error(0)
}

// MockCollectionReadRepository is a mock implementation of fee.CollectionReadRepository
type MockCollectionReadRepository struct {
	mock.Mock
}

func (m *MockCollectionReadRepository) Totals(ctx context.Context, tenantID uuid.UUID, window shared.DateRange) (fee.CollectionTotals, error) {
	args := m.Called(ctx, tenantID, window)
	return args.Get(0).(fee.CollectionTotals), args.Error(1)
}

func (m *MockCollectionReadRepository) CountUnopened(ctx context.Context, tenantID uuid.UUID, sentBefore time.Time, window shared.DateRange) (int64, error) {
	args := m.Called(ctx, tenantID, sentBefore, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCollectionReadRepository) CountNoSelection(ctx context.Context, tenantID uuid.UUID, sentBefore time.Time, window shared.DateRange) (int64, error) {
	args := m.Called(ctx, tenantID, sentBefore, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCollectionReadRepository) CountAbandoned(ctx context.Context, tenantID uuid.UUID, selectedBefore time.Time, window shared.DateRange) (int64, error) {
	args := m.Called(ctx, tenantID, selectedBefore, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCollectionReadRepository) CountOpenDisputes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCollectionReadRepository) ListRecords(ctx context.Context, tenantID uuid.UUID, taxYear int) ([]fee.CollectionRecord, error) {
	args := m.Called(ctx, tenantID, taxYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.CollectionRecord), args.Error(1)
}

// MockRollupReadRepository is a mock implementation of fee.RollupReadRepository
type MockRollupReadRepository struct {
	mock.Mock
}

func (m *MockRollupReadRepository) ListClientStatuses(ctx context.Context, tenantID uuid.UUID, taxYear int) ([]fee.ClientStatusRow, error) {
	args := m.Called(ctx, tenantID, taxYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.ClientStatusRow), args.Error(1)
}

func (m *MockRollupReadRepository) ListGroups(ctx context.Context, tenantID uuid.UUID, taxYear int) (map[uuid.UUID]fee.GroupInfo, error) {
	args := m.Called(ctx, tenantID, taxYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]fee.GroupInfo), args.Error(1)
}

// MockAttachmentURLSigner is a mock implementation of AttachmentURLSigner
type MockAttachmentURLSigner struct {
	mock.Mock
}

func (m *MockAttachmentURLSigner) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// MockAuditTrailReader is a mock implementation of AuditTrailReader
type MockAuditTrailReader struct {
	mock.Mock
}

func (m *MockAuditTrailReader) FindByEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, filter shared.Filter) ([]audit.Entry, error) {
	args := m.Called(ctx, tenantID, entityType, entityID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func (p *recordingPublisher) last() shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

var (
	testTenantID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testUserID   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testNow      = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return testNow }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// storedFee builds a persisted fee calculation computed from base at 3% inflation
func storedFee(base string, status fee.FeeStatus) *fee.FeeCalculation {
	calc, err := fee.NewFeeCalculation(testTenantID, uuid.New(), 2025, testUserID)
	if err != nil {
		panic(err)
	}
	if err := calc.Recalculate(fee.NewCalculator(fee.DefaultVATRate), baseParams(base), testNow); err != nil {
		panic(err)
	}
	calc.Status = status
	return calc
}

func baseParams(base string) fee.FeeParams {
	return fee.FeeParams{
		BaseAmount:           dec(base),
		ApplyInflationIndex:  true,
		InflationRatePercent: dec("3"),
	}
}
