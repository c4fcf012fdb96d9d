package fee

import (
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeFeeCalculationCreated = "FeeCalculationCreated"
	EventTypeFeeCalculationUpdated = "FeeCalculationUpdated"
	EventTypeFeeMarkedPaid         = "FeeMarkedPaid"
	EventTypeFeePartialPayment     = "FeePartialPayment"
	EventTypeFeeMarkedSent         = "FeeMarkedSent"
	EventTypePaymentRecorded       = "PaymentRecorded"
	EventTypePaymentUpdated        = "PaymentUpdated"
	EventTypePaymentDeleted        = "PaymentDeleted"
	EventTypeDisputeOpened         = "DisputeOpened"
	EventTypeDisputeResolved       = "DisputeResolved"
)

// Audit action names. These are stable identifiers stored in the audit log.
const (
	AuditCreateFeeCalculation = "create_fee_calculation"
	AuditUpdateFeeCalculation = "update_fee_calculation"
	AuditRecordPayment        = "record_payment"
	AuditUpdatePayment        = "update_payment"
	AuditDeletePayment        = "delete_payment"
	AuditMarkFeePaid          = "mark_fee_paid"
	AuditMarkPartialPayment   = "mark_partial_payment"
	AuditResolveDispute       = "resolve_dispute"
	AuditOpenDispute          = "open_dispute"
	AuditMarkFeeSent          = "mark_fee_sent"
)

// AuditableEvent is an event that produces an audit log entry
type AuditableEvent interface {
	shared.DomainEvent
	Actor() uuid.UUID
	AuditAction() string
	AuditPayload() map[string]any
}

// FeeCalculationCreatedEvent is raised when a fee calculation row is inserted
type FeeCalculationCreatedEvent struct {
	shared.BaseDomainEvent
	ClientID     uuid.UUID       `json:"client_id"`
	TaxYear      int             `json:"tax_year"`
	FinalAmount  decimal.Decimal `json:"final_amount"`
	TotalWithVAT decimal.Decimal `json:"total_with_vat"`
}

// NewFeeCalculationCreatedEvent creates a new FeeCalculationCreatedEvent
func NewFeeCalculationCreatedEvent(f *FeeCalculation, actor uuid.UUID) *FeeCalculationCreatedEvent {
	return &FeeCalculationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeeCalculationCreated, AggregateTypeFeeCalculation, f.ID, f.TenantID, actor),
		ClientID:        f.ClientID,
		TaxYear:         f.TaxYear,
		FinalAmount:     f.FinalAmountBeforeVAT,
		TotalWithVAT:    f.TotalWithVAT,
	}
}

func (e *FeeCalculationCreatedEvent) AuditAction() string { return AuditCreateFeeCalculation }

func (e *FeeCalculationCreatedEvent) AuditPayload() map[string]any {
	return map[string]any{
		"client_id":      e.ClientID,
		"tax_year":       e.TaxYear,
		"final_amount":   e.FinalAmount.String(),
		"total_with_vat": e.TotalWithVAT.String(),
	}
}

// FeeCalculationUpdatedEvent is raised when an existing fee calculation is updated
type FeeCalculationUpdatedEvent struct {
	shared.BaseDomainEvent
	ClientID      uuid.UUID      `json:"client_id"`
	TaxYear       int            `json:"tax_year"`
	Recalculated  bool           `json:"recalculated"`
	ChangedFields map[string]any `json:"changed_fields"`
}

// NewFeeCalculationUpdatedEvent creates a new FeeCalculationUpdatedEvent
func NewFeeCalculationUpdatedEvent(f *FeeCalculation, actor uuid.UUID, recalculated bool, changed map[string]any) *FeeCalculationUpdatedEvent {
	return &FeeCalculationUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeeCalculationUpdated, AggregateTypeFeeCalculation, f.ID, f.TenantID, actor),
		ClientID:        f.ClientID,
		TaxYear:         f.TaxYear,
		Recalculated:    recalculated,
		ChangedFields:   changed,
	}
}

func (e *FeeCalculationUpdatedEvent) AuditAction() string { return AuditUpdateFeeCalculation }

func (e *FeeCalculationUpdatedEvent) AuditPayload() map[string]any {
	payload := map[string]any{
		"client_id":    e.ClientID,
		"tax_year":     e.TaxYear,
		"recalculated": e.Recalculated,
	}
	for k, v := range e.ChangedFields {
		payload[k] = v
	}
	return payload
}

// FeeStatusChangedEvent covers manual status changes on a fee calculation:
// marked paid, partial payment, and letter sent
type FeeStatusChangedEvent struct {
	shared.BaseDomainEvent
	Action  string           `json:"action"`
	Status  FeeStatus        `json:"status"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	At      time.Time        `json:"at"`
	FeeYear int              `json:"tax_year"`
}

// NewFeeMarkedPaidEvent creates the event for a fee marked paid by hand
func NewFeeMarkedPaidEvent(f *FeeCalculation, actor uuid.UUID, at time.Time) *FeeStatusChangedEvent {
	return newFeeStatusChangedEvent(EventTypeFeeMarkedPaid, AuditMarkFeePaid, f, actor, nil, at)
}

// NewFeePartialPaymentEvent creates the event for a partial payment
func NewFeePartialPaymentEvent(f *FeeCalculation, actor uuid.UUID, amount decimal.Decimal, at time.Time) *FeeStatusChangedEvent {
	return newFeeStatusChangedEvent(EventTypeFeePartialPayment, AuditMarkPartialPayment, f, actor, &amount, at)
}

// NewFeeMarkedSentEvent creates the event for a fee letter being sent
func NewFeeMarkedSentEvent(f *FeeCalculation, actor uuid.UUID, at time.Time) *FeeStatusChangedEvent {
	return newFeeStatusChangedEvent(EventTypeFeeMarkedSent, AuditMarkFeeSent, f, actor, nil, at)
}

func newFeeStatusChangedEvent(eventType, action string, f *FeeCalculation, actor uuid.UUID, amount *decimal.Decimal, at time.Time) *FeeStatusChangedEvent {
	return &FeeStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeFeeCalculation, f.ID, f.TenantID, actor),
		Action:          action,
		Status:          f.Status,
		Amount:          amount,
		At:              at,
		FeeYear:         f.TaxYear,
	}
}

func (e *FeeStatusChangedEvent) AuditAction() string { return e.Action }

func (e *FeeStatusChangedEvent) AuditPayload() map[string]any {
	payload := map[string]any{
		"status":   e.Status,
		"at":       e.At.Format(time.RFC3339),
		"tax_year": e.FeeYear,
	}
	if e.Amount != nil {
		payload["amount"] = e.Amount.String()
	}
	return payload
}

// PaymentRecordedEvent is raised after a payment has been recorded
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	FeeCalculationID uuid.UUID       `json:"fee_calculation_id"`
	ClientID         uuid.UUID       `json:"client_id"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	AlertLevel       *AlertLevel     `json:"alert_level,omitempty"`
	Installments     int             `json:"installments"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *ActualPayment, deviation *PaymentDeviation, actor uuid.UUID) *PaymentRecordedEvent {
	e := &PaymentRecordedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypeActualPayment, p.ID, p.TenantID, actor),
		FeeCalculationID: p.FeeCalculationID,
		ClientID:         p.ClientID,
		AmountPaid:       p.AmountPaid,
		PaymentMethod:    p.PaymentMethod,
		Installments:     len(p.Installments),
	}
	if deviation != nil {
		level := deviation.AlertLevel
		e.AlertLevel = &level
	}
	return e
}

func (e *PaymentRecordedEvent) AuditAction() string { return AuditRecordPayment }

func (e *PaymentRecordedEvent) AuditPayload() map[string]any {
	payload := map[string]any{
		"fee_calculation_id": e.FeeCalculationID,
		"client_id":          e.ClientID,
		"amount_paid":        e.AmountPaid.String(),
		"payment_method":     e.PaymentMethod,
		"installments":       e.Installments,
	}
	if e.AlertLevel != nil {
		payload["alert_level"] = *e.AlertLevel
	}
	return payload
}

// PaymentUpdatedEvent is raised after a payment has been changed
type PaymentUpdatedEvent struct {
	shared.BaseDomainEvent
	FeeCalculationID uuid.UUID      `json:"fee_calculation_id"`
	AmountChanged    bool           `json:"amount_changed"`
	ChangedFields    map[string]any `json:"changed_fields"`
}

// NewPaymentUpdatedEvent creates a new PaymentUpdatedEvent
func NewPaymentUpdatedEvent(p *ActualPayment, actor uuid.UUID, amountChanged bool, changed map[string]any) *PaymentUpdatedEvent {
	return &PaymentUpdatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePaymentUpdated, AggregateTypeActualPayment, p.ID, p.TenantID, actor),
		FeeCalculationID: p.FeeCalculationID,
		AmountChanged:    amountChanged,
		ChangedFields:    changed,
	}
}

func (e *PaymentUpdatedEvent) AuditAction() string { return AuditUpdatePayment }

func (e *PaymentUpdatedEvent) AuditPayload() map[string]any {
	payload := map[string]any{
		"fee_calculation_id": e.FeeCalculationID,
		"amount_changed":     e.AmountChanged,
	}
	for k, v := range e.ChangedFields {
		payload[k] = v
	}
	return payload
}

// PaymentDeletedEvent is raised after a payment has been removed
type PaymentDeletedEvent struct {
	shared.BaseDomainEvent
	FeeCalculationID uuid.UUID       `json:"fee_calculation_id"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
}

// NewPaymentDeletedEvent creates a new PaymentDeletedEvent
func NewPaymentDeletedEvent(p *ActualPayment, actor uuid.UUID) *PaymentDeletedEvent {
	return &PaymentDeletedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePaymentDeleted, AggregateTypeActualPayment, p.ID, p.TenantID, actor),
		FeeCalculationID: p.FeeCalculationID,
		AmountPaid:       p.AmountPaid,
	}
}

func (e *PaymentDeletedEvent) AuditAction() string { return AuditDeletePayment }

func (e *PaymentDeletedEvent) AuditPayload() map[string]any {
	return map[string]any{
		"fee_calculation_id": e.FeeCalculationID,
		"amount_paid":        e.AmountPaid.String(),
	}
}

// DisputeEvent is raised when a dispute is opened or resolved
type DisputeEvent struct {
	shared.BaseDomainEvent
	Action           string        `json:"action"`
	FeeCalculationID uuid.UUID     `json:"fee_calculation_id"`
	ClientID         uuid.UUID     `json:"client_id"`
	Status           DisputeStatus `json:"status"`
	Notes            string        `json:"notes,omitempty"`
}

// NewDisputeOpenedEvent creates the event for a newly opened dispute
func NewDisputeOpenedEvent(d *PaymentDispute, actor uuid.UUID) *DisputeEvent {
	return newDisputeEvent(EventTypeDisputeOpened, AuditOpenDispute, d, actor, d.Reason)
}

// NewDisputeResolvedEvent creates the event for a resolved dispute
func NewDisputeResolvedEvent(d *PaymentDispute, actor uuid.UUID) *DisputeEvent {
	return newDisputeEvent(EventTypeDisputeResolved, AuditResolveDispute, d, actor, d.ResolutionNotes)
}

func newDisputeEvent(eventType, action string, d *PaymentDispute, actor uuid.UUID, notes string) *DisputeEvent {
	return &DisputeEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(eventType, AggregateTypePaymentDispute, d.ID, d.TenantID, actor),
		Action:           action,
		FeeCalculationID: d.FeeCalculationID,
		ClientID:         d.ClientID,
		Status:           d.Status,
		Notes:            notes,
	}
}

func (e *DisputeEvent) AuditAction() string { return e.Action }

func (e *DisputeEvent) AuditPayload() map[string]any {
	payload := map[string]any{
		"fee_calculation_id": e.FeeCalculationID,
		"client_id":          e.ClientID,
		"status":             e.Status,
	}
	if e.Notes != "" {
		payload["notes"] = e.Notes
	}
	return payload
}
