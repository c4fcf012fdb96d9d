package fee

import (
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypePaymentDispute is the aggregate type name used in events
const AggregateTypePaymentDispute = "PaymentDispute"

// DisputeStatus is the state of a payment dispute
type DisputeStatus string

const (
	DisputeStatusOpen           DisputeStatus = "open"
	DisputeStatusResolvedPaid   DisputeStatus = "resolved_paid"
	DisputeStatusResolvedUnpaid DisputeStatus = "resolved_unpaid"
	DisputeStatusInvalid        DisputeStatus = "invalid"
)

// IsValid checks if the status is a known value
func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusResolvedPaid, DisputeStatusResolvedUnpaid, DisputeStatusInvalid:
		return true
	}
	return false
}

// IsResolution reports whether the status closes a dispute
func (s DisputeStatus) IsResolution() bool {
	return s.IsValid() && s != DisputeStatusOpen
}

// PaymentDispute is a client's claim that disagrees with the recorded payment state,
// typically "I already paid".
type PaymentDispute struct {
	shared.TenantAggregateRoot
	ClientID           uuid.UUID
	FeeCalculationID   uuid.UUID
	Reason             string
	ClaimedAmount      *decimal.Decimal
	ClaimedPaymentDate *time.Time
	Status             DisputeStatus
	ResolutionNotes    string
	ResolvedBy         *uuid.UUID
	ResolvedAt         *time.Time
}

// NewPaymentDispute opens a dispute against a fee calculation
func NewPaymentDispute(tenantID, clientID, feeCalculationID, createdBy uuid.UUID, reason string) (*PaymentDispute, error) {
	if feeCalculationID == uuid.Nil {
		return nil, NewValidationError(CodeValidation, "fee_calculation_id", "fee calculation ID cannot be empty")
	}
	if reason == "" {
		return nil, NewValidationError(CodeValidation, "reason", "dispute reason is required")
	}
	d := &PaymentDispute{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		ClientID:            clientID,
		FeeCalculationID:    feeCalculationID,
		Reason:              reason,
		Status:              DisputeStatusOpen,
	}
	d.AddDomainEvent(NewDisputeOpenedEvent(d, createdBy))
	return d, nil
}

// IsOpen reports whether the dispute still awaits resolution
func (d *PaymentDispute) IsOpen() bool {
	return d.Status == DisputeStatusOpen
}

// Resolve closes the dispute with the given outcome
func (d *PaymentDispute) Resolve(status DisputeStatus, notes string, resolvedBy uuid.UUID, at time.Time) error {
	if !status.IsResolution() {
		return NewValidationError(CodeValidation, "status", "invalid dispute resolution")
	}
	if !d.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", "dispute is already resolved")
	}
	d.Status = status
	d.ResolutionNotes = notes
	d.ResolvedBy = &resolvedBy
	d.ResolvedAt = &at
	d.IncrementVersion()
	d.AddDomainEvent(NewDisputeResolvedEvent(d, resolvedBy))
	return nil
}
