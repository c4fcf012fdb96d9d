package handler

import (
	"context"
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

// MockAttachmentURLSigner is a mock implementation of feeapp.AttachmentURLSigner
type MockAttachmentURLSigner struct {
	mock.Mock
}

func (m *MockAttachmentURLSigner) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// MockAuditTrailReader is a mock implementation of feeapp.AuditTrailReader
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

// MockClientResolver is a mock implementation of fee.ClientResolver
type MockClientResolver struct {
	mock.Mock
}

func (m *MockClientResolver) Resolve(ctx context.Context, tenantID uuid.UUID, ref string) (uuid.UUID, error) {
	args := m.Called(ctx, tenantID, ref)
	return args.Get(0).(uuid.UUID), args.Error(1)
}
