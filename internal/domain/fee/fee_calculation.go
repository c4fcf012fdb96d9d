package fee

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeFeeCalculation is the aggregate type name used in events
const AggregateTypeFeeCalculation = "FeeCalculation"

// FeeStatus represents the lifecycle status of a fee calculation
type FeeStatus string

const (
	FeeStatusDraft       FeeStatus = "draft"
	FeeStatusSent        FeeStatus = "sent"
	FeeStatusPaid        FeeStatus = "paid"
	FeeStatusOverdue     FeeStatus = "overdue"
	FeeStatusPartialPaid FeeStatus = "partial_paid"
	FeeStatusCancelled   FeeStatus = "cancelled"
)

// IsValid checks if the status is a known value
func (s FeeStatus) IsValid() bool {
	switch s {
	case FeeStatusDraft, FeeStatusSent, FeeStatusPaid, FeeStatusOverdue,
		FeeStatusPartialPaid, FeeStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s FeeStatus) String() string {
	return string(s)
}

// IsCollectible reports whether the fee counts toward collection figures
func (s FeeStatus) IsCollectible() bool {
	return s != FeeStatusDraft && s != FeeStatusCancelled && s != ""
}

// AwaitingPayment reports whether the fee was sent and is not fully paid
func (s FeeStatus) AwaitingPayment() bool {
	return s == FeeStatusSent || s == FeeStatusOverdue || s == FeeStatusPartialPaid
}

// PreviousYearSnapshot records last year's figures as they were billed
type PreviousYearSnapshot struct {
	AmountBeforeDiscount decimal.Decimal `json:"amount_before_discount"`
	AmountAfterDiscount  decimal.Decimal `json:"amount_after_discount"`
	AmountWithVAT        decimal.Decimal `json:"amount_with_vat"`
}

// IsEmpty reports whether no prior-year figures were captured
func (p PreviousYearSnapshot) IsEmpty() bool {
	return p.AmountBeforeDiscount.IsZero() && p.AmountAfterDiscount.IsZero() && p.AmountWithVAT.IsZero()
}

// TotalWithVAT returns the prior-year total for year-over-year comparison, nil if unknown
func (p PreviousYearSnapshot) TotalWithVAT() *decimal.Decimal {
	if p.AmountWithVAT.IsZero() {
		return nil
	}
	v := p.AmountWithVAT
	return &v
}

// SubCalculation is a bookkeeping or retainer track.
// MonthlyAmount is the entered figure; BaseAmount is MonthlyAmount × 12 and is what
// the results are computed from.
type SubCalculation struct {
	MonthlyAmount             decimal.Decimal `json:"monthly_amount"`
	BaseAmount                decimal.Decimal `json:"base_amount"`
	ApplyInflationIndex       bool            `json:"apply_inflation_index"`
	InflationRatePercent      decimal.Decimal `json:"inflation_rate_percent"`
	IndexManualAdjustment     decimal.Decimal `json:"index_manual_adjustment"`
	RealAdjustment            decimal.Decimal `json:"real_adjustment"`
	RealAdjustmentReason      string          `json:"real_adjustment_reason,omitempty"`
	ClientRequestedAdjustment decimal.Decimal `json:"client_requested_adjustment"`
	InflationAdjustment       decimal.Decimal `json:"inflation_adjustment"`
	FinalAmount               decimal.Decimal `json:"final_amount"`
	VATAmount                 decimal.Decimal `json:"vat_amount"`
	TotalWithVAT              decimal.Decimal `json:"total_with_vat"`
}

// Value implements driver.Valuer for JSONB storage
func (s SubCalculation) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB storage
func (s *SubCalculation) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// CalculationMetadata is stamped on every calculation for audit
type CalculationMetadata struct {
	Method           string          `json:"method"`
	CalculatedAt     time.Time       `json:"calculated_at"`
	InflationApplied bool            `json:"inflation_applied"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	Recalculated     bool            `json:"recalculated"`
}

// Value implements driver.Valuer for JSONB storage
func (m CalculationMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage
func (m *CalculationMetadata) Scan(value interface{}) error {
	return scanJSON(value, m)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("unsupported JSONB source type")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dest)
}

// FeeCalculation is a client's fee for one tax year.
// There is at most one per (tenant, client, tax year).
type FeeCalculation struct {
	shared.TenantAggregateRoot
	ClientID uuid.UUID
	TaxYear  int

	BaseAmount                decimal.Decimal
	ApplyInflationIndex       bool
	InflationRatePercent      decimal.Decimal
	IndexManualAdjustment     decimal.Decimal
	RealAdjustment            decimal.Decimal
	RealAdjustmentReason      string
	ClientRequestedAdjustment decimal.Decimal
	ClientAdjustmentNote      string

	InflationAdjustment  decimal.Decimal
	DiscountPercentage   decimal.Decimal
	DiscountAmount       decimal.Decimal
	AmountAfterDiscount  decimal.Decimal
	FinalAmountBeforeVAT decimal.Decimal
	VATAmount            decimal.Decimal
	TotalWithVAT         decimal.Decimal

	PreviousYear              PreviousYearSnapshot
	YearOverYearChangeAmount  decimal.Decimal
	YearOverYearChangePercent decimal.Decimal

	Status      FeeStatus
	Bookkeeping *SubCalculation
	Retainer    *SubCalculation

	DueDate    *time.Time
	Notes      string
	CustomText string
	SentAt     *time.Time

	PaymentDate         *time.Time
	PartialPaidAmount   decimal.Decimal
	HasDeviation        bool
	DeviationAlertLevel *AlertLevel

	Metadata CalculationMetadata
}

// NewFeeCalculation creates an empty draft fee calculation
func NewFeeCalculation(tenantID, clientID uuid.UUID, taxYear int, createdBy uuid.UUID) (*FeeCalculation, error) {
	if clientID == uuid.Nil {
		return nil, NewValidationError(CodeValidation, "client_id", "client ID cannot be empty")
	}
	if err := validateTaxYear(taxYear); err != nil {
		return nil, err
	}
	return &FeeCalculation{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		ClientID:            clientID,
		TaxYear:             taxYear,
		Status:              FeeStatusDraft,
	}, nil
}

func validateTaxYear(year int) error {
	if year < 2000 || year > 2100 {
		return NewValidationError(CodeValidation, "tax_year", "tax year must be between 2000 and 2100")
	}
	return nil
}

// IsNew reports whether the stored row was inserted rather than updated by the last upsert
func (f *FeeCalculation) IsNew() bool {
	return f.UpdatedAt.Equal(f.CreatedAt)
}

// HasAmountChanges reports whether params differ from the stored amount inputs.
// Only amount changes require the calculator to run again.
func (f *FeeCalculation) HasAmountChanges(p FeeParams) bool {
	if !f.BaseAmount.Equal(p.BaseAmount) ||
		f.ApplyInflationIndex != p.ApplyInflationIndex ||
		!f.InflationRatePercent.Equal(p.InflationRatePercent) ||
		!f.IndexManualAdjustment.Equal(p.IndexManualAdjustment) ||
		!f.RealAdjustment.Equal(p.RealAdjustment) ||
		!f.ClientRequestedAdjustment.Equal(p.ClientRequestedAdjustment) {
		return true
	}
	if p.PreviousYear != nil && !f.PreviousYear.AmountWithVAT.Equal(p.PreviousYear.AmountWithVAT) {
		return true
	}
	if subCalculationChanged(f.Bookkeeping, p.bookkeepingInput()) {
		return true
	}
	return subCalculationChanged(f.Retainer, p.retainerInput())
}

func subCalculationChanged(stored *SubCalculation, in *subCalculationInput) bool {
	if stored == nil || in == nil {
		return (stored == nil) != (in == nil)
	}
	return !stored.MonthlyAmount.Equal(in.monthly) ||
		stored.ApplyInflationIndex != in.calc.ApplyInflationIndex ||
		!stored.InflationRatePercent.Equal(in.calc.InflationRatePercent) ||
		!stored.IndexManualAdjustment.Equal(in.calc.IndexManualAdjustment) ||
		!stored.RealAdjustment.Equal(in.calc.RealAdjustment) ||
		!stored.ClientRequestedAdjustment.Equal(in.calc.ClientRequestedAdjustment)
}

// Recalculate runs the calculator for the main fee and each sub-track, then
// stores the results. Nothing is modified if any track fails validation.
func (f *FeeCalculation) Recalculate(calc *Calculator, p FeeParams, now time.Time) error {
	if p.PreviousYear != nil {
		f.PreviousYear = *p.PreviousYear
	}

	main, err := calc.Calculate(CalculationInput{
		BaseAmount:                p.BaseAmount,
		InflationRatePercent:      p.InflationRatePercent,
		ApplyInflationIndex:       p.ApplyInflationIndex,
		IndexManualAdjustment:     p.IndexManualAdjustment,
		RealAdjustment:            p.RealAdjustment,
		ClientRequestedAdjustment: p.ClientRequestedAdjustment,
		PreviousYearTotalWithVAT:  f.PreviousYear.TotalWithVAT(),
	})
	if err != nil {
		return err
	}

	bookkeeping, err := calculateSubTrack(calc, p.bookkeepingInput())
	if err != nil {
		return err
	}
	retainer, err := calculateSubTrack(calc, p.retainerInput())
	if err != nil {
		return err
	}

	f.BaseAmount = p.BaseAmount
	f.ApplyInflationIndex = p.ApplyInflationIndex
	f.InflationRatePercent = p.InflationRatePercent
	f.IndexManualAdjustment = p.IndexManualAdjustment
	f.RealAdjustment = p.RealAdjustment
	f.RealAdjustmentReason = p.RealAdjustmentReason
	f.ClientRequestedAdjustment = p.ClientRequestedAdjustment
	f.ClientAdjustmentNote = p.ClientAdjustmentNote

	f.InflationAdjustment = main.InflationAdjustment
	f.DiscountPercentage = main.DiscountPercentage
	f.DiscountAmount = main.DiscountAmount
	f.AmountAfterDiscount = main.AmountAfterDiscount
	f.FinalAmountBeforeVAT = main.FinalAmount
	f.VATAmount = main.VATAmount
	f.TotalWithVAT = main.TotalWithVAT
	f.YearOverYearChangeAmount = main.YearOverYearChangeAmount
	f.YearOverYearChangePercent = main.YearOverYearChangePercent

	f.Bookkeeping = bookkeeping
	f.Retainer = retainer

	f.Metadata = CalculationMetadata{
		Method:           CalculationMethod,
		CalculatedAt:     now,
		InflationApplied: p.ApplyInflationIndex,
		VATRate:          calc.VATRate(),
		Recalculated:     true,
	}
	return nil
}

func calculateSubTrack(calc *Calculator, in *subCalculationInput) (*SubCalculation, error) {
	if in == nil {
		return nil, nil
	}
	result, err := calc.Calculate(in.calc)
	if err != nil {
		return nil, err
	}
	return &SubCalculation{
		MonthlyAmount:             in.monthly,
		BaseAmount:                in.calc.BaseAmount,
		ApplyInflationIndex:       in.calc.ApplyInflationIndex,
		InflationRatePercent:      in.calc.InflationRatePercent,
		IndexManualAdjustment:     in.calc.IndexManualAdjustment,
		RealAdjustment:            in.calc.RealAdjustment,
		RealAdjustmentReason:      in.reason,
		ClientRequestedAdjustment: in.calc.ClientRequestedAdjustment,
		InflationAdjustment:       result.InflationAdjustment,
		FinalAmount:               result.FinalAmount,
		VATAmount:                 result.VATAmount,
		TotalWithVAT:              result.TotalWithVAT,
	}, nil
}

// StampUnchanged records that details were saved without recalculation
func (f *FeeCalculation) StampUnchanged(now time.Time) {
	f.Metadata.CalculatedAt = now
	f.Metadata.Recalculated = false
}

// ApplyDetails copies the non-amount fields
func (f *FeeCalculation) ApplyDetails(p FeeParams) {
	f.DueDate = p.DueDate
	f.Notes = p.Notes
	f.CustomText = p.CustomText
	if p.RealAdjustmentReason != "" {
		f.RealAdjustmentReason = p.RealAdjustmentReason
	}
	if p.ClientAdjustmentNote != "" {
		f.ClientAdjustmentNote = p.ClientAdjustmentNote
	}
}

// MarkSent records that the fee letter went out
func (f *FeeCalculation) MarkSent(at time.Time, actor uuid.UUID) error {
	if f.Status == FeeStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "cannot send a cancelled fee calculation")
	}
	if f.Status == FeeStatusDraft {
		f.Status = FeeStatusSent
	}
	f.SentAt = &at
	f.IncrementVersion()
	f.AddDomainEvent(NewFeeMarkedSentEvent(f, actor, at))
	return nil
}

// MarkPaid sets the fee as fully paid without a recorded payment
func (f *FeeCalculation) MarkPaid(paymentDate time.Time, actor uuid.UUID) error {
	if f.Status == FeeStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "cannot mark a cancelled fee calculation as paid")
	}
	f.Status = FeeStatusPaid
	f.PaymentDate = &paymentDate
	f.IncrementVersion()
	f.AddDomainEvent(NewFeeMarkedPaidEvent(f, actor, paymentDate))
	return nil
}

// MarkPartialPayment records a partial amount received. The amount must be positive
// and cannot exceed the total with VAT.
func (f *FeeCalculation) MarkPartialPayment(amount decimal.Decimal, paymentDate time.Time, actor uuid.UUID) error {
	if !amount.IsPositive() {
		return NewValidationError(CodeValidation, "amount", "partial payment amount must be positive")
	}
	if amount.GreaterThan(f.TotalWithVAT) {
		return NewValidationError(CodePartialPaymentExceeds, "amount", "partial payment exceeds the fee total")
	}
	if f.Status == FeeStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "cannot record a partial payment on a cancelled fee calculation")
	}
	f.Status = FeeStatusPartialPaid
	f.PartialPaidAmount = amount
	f.PaymentDate = &paymentDate
	f.IncrementVersion()
	f.AddDomainEvent(NewFeePartialPaymentEvent(f, actor, amount, paymentDate))
	return nil
}

// RecordSaved raises the created or updated event after the row has been upserted
func (f *FeeCalculation) RecordSaved(actor uuid.UUID, recalculated bool, changed map[string]any) {
	if f.IsNew() {
		f.AddDomainEvent(NewFeeCalculationCreatedEvent(f, actor))
		return
	}
	f.AddDomainEvent(NewFeeCalculationUpdatedEvent(f, actor, recalculated, changed))
}

// CanAcceptPayment reports whether a payment may be recorded against the fee
func (f *FeeCalculation) CanAcceptPayment() error {
	if f.Status == FeeStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "cannot record a payment on a cancelled fee calculation")
	}
	return nil
}

// ApplyPaymentOutcome marks the fee paid and records the deviation flags.
// A nil deviation means classification was unavailable; the flags are cleared.
func (f *FeeCalculation) ApplyPaymentOutcome(paymentDate time.Time, deviation *PaymentDeviation) error {
	if err := f.CanAcceptPayment(); err != nil {
		return err
	}
	f.Status = FeeStatusPaid
	f.PaymentDate = &paymentDate
	f.ApplyDeviation(deviation)
	f.IncrementVersion()
	return nil
}

// ApplyDeviation refreshes the deviation flags from a classification
func (f *FeeCalculation) ApplyDeviation(deviation *PaymentDeviation) {
	if deviation == nil {
		f.HasDeviation = false
		f.DeviationAlertLevel = nil
		return
	}
	level := deviation.AlertLevel
	f.HasDeviation = level != AlertLevelInfo
	f.DeviationAlertLevel = &level
}

// ResetAfterPaymentDeletion returns the fee to sent and clears payment tracking
func (f *FeeCalculation) ResetAfterPaymentDeletion() {
	f.Status = FeeStatusSent
	f.PaymentDate = nil
	f.PartialPaidAmount = decimal.Zero
	f.HasDeviation = false
	f.DeviationAlertLevel = nil
	f.IncrementVersion()
}

// Snapshot returns a copy suitable for restoring the fee after a failed operation
func (f *FeeCalculation) Snapshot() FeeCalculation {
	return *f
}

// Restore puts back fields captured by Snapshot, keeping the current version
func (f *FeeCalculation) Restore(s FeeCalculation) {
	version := f.Version
	*f = s
	f.Version = version
	f.IncrementVersion()
}
