package fee

import (
	"context"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FeeCalculationFilter narrows fee calculation listings
type FeeCalculationFilter struct {
	shared.Filter
	TaxYear  int
	Status   FeeStatus
	ClientID *uuid.UUID
}

// FeeCalculationRepository persists fee calculations.
// Find methods return (nil, nil) when nothing matches.
type FeeCalculationRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*FeeCalculation, error)
	FindByClientYear(ctx context.Context, tenantID, clientID uuid.UUID, taxYear int) (*FeeCalculation, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter FeeCalculationFilter) ([]FeeCalculation, int64, error)
	// Upsert inserts or updates the row keyed on (tenant, client, tax year) in one
	// statement and refreshes ID, CreatedAt, UpdatedAt and Version from the stored row.
	Upsert(ctx context.Context, calc *FeeCalculation) error
	// SaveWithLock updates an existing row, failing with shared.ErrConcurrencyConflict
	// when the stored version moved on.
	SaveWithLock(ctx context.Context, calc *FeeCalculation) error
}

// PaymentRepository persists actual payments and their installments
type PaymentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ActualPayment, error)
	FindByFeeCalculation(ctx context.Context, tenantID, feeCalculationID uuid.UUID) (*ActualPayment, error)
	Create(ctx context.Context, payment *ActualPayment) error
	Update(ctx context.Context, payment *ActualPayment) error
	// DeleteForTenant removes the payment; its installments go with it
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
	CreateInstallments(ctx context.Context, installments []PaymentInstallment) error
}

// DeviationRepository persists payment deviations
type DeviationRepository interface {
	FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentDeviation, error)
	Create(ctx context.Context, deviation *PaymentDeviation) error
	DeleteByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) error
}

// DisputeFilter narrows dispute listings
type DisputeFilter struct {
	shared.Filter
	Status   DisputeStatus
	ClientID *uuid.UUID
}

// DisputeRepository persists payment disputes
type DisputeRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PaymentDispute, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter DisputeFilter) ([]PaymentDispute, int64, error)
	Save(ctx context.Context, dispute *PaymentDispute) error
}

// LetterTrackingRepository persists fee letter tracking
type LetterTrackingRepository interface {
	FindByFeeCalculation(ctx context.Context, tenantID, feeCalculationID uuid.UUID) (*LetterTracking, error)
	Save(ctx context.Context, tracking *LetterTracking) error
}

// ClientRepository reads clients
type ClientRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Client, error)
	FindByLegacyRef(ctx context.Context, tenantID uuid.UUID, legacyRef string) (*Client, error)
}

// CollectionReadRepository answers the collection dashboard queries.
// The counters are independent queries and do not share a snapshot.
type CollectionReadRepository interface {
	Totals(ctx context.Context, tenantID uuid.UUID, window shared.DateRange) (CollectionTotals, error)
	CountUnopened(ctx context.Context, tenantID uuid.UUID, sentBefore time.Time, window shared.DateRange) (int64, error)
	CountNoSelection(ctx context.Context, tenantID uuid.UUID, sentBefore time.Time, window shared.DateRange) (int64, error)
	CountAbandoned(ctx context.Context, tenantID uuid.UUID, selectedBefore time.Time, window shared.DateRange) (int64, error)
	CountOpenDisputes(ctx context.Context, tenantID uuid.UUID) (int64, error)
	ListRecords(ctx context.Context, tenantID uuid.UUID, taxYear int) ([]CollectionRecord, error)
}

// RollupReadRepository loads the inputs of the group rollup
type RollupReadRepository interface {
	ListClientStatuses(ctx context.Context, tenantID uuid.UUID, taxYear int) ([]ClientStatusRow, error)
	ListGroups(ctx context.Context, tenantID uuid.UUID, taxYear int) (map[uuid.UUID]GroupInfo, error)
}
