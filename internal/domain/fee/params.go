package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

var monthsPerYear = decimal.NewFromInt(12)

// FeeParams are the inputs of a fee calculation for one client and year.
type FeeParams struct {
	BaseAmount                decimal.Decimal
	ApplyInflationIndex       bool
	InflationRatePercent      decimal.Decimal
	IndexManualAdjustment     decimal.Decimal
	RealAdjustment            decimal.Decimal
	RealAdjustmentReason      string
	ClientRequestedAdjustment decimal.Decimal
	ClientAdjustmentNote      string

	// PreviousYear overrides the stored prior-year snapshot when set
	PreviousYear *PreviousYearSnapshot

	Bookkeeping *BookkeepingParams
	Retainer    *RetainerParams

	DueDate    *time.Time
	Notes      string
	CustomText string
}

// BookkeepingParams configure the bookkeeping track. Inflation is off unless requested.
type BookkeepingParams struct {
	MonthlyAmount             decimal.Decimal
	ApplyInflationIndex       bool
	InflationRatePercent      decimal.Decimal
	IndexManualAdjustment     decimal.Decimal
	RealAdjustment            decimal.Decimal
	RealAdjustmentReason      string
	ClientRequestedAdjustment decimal.Decimal
}

// RetainerParams configure the retainer track. Inflation is on unless
// ApplyInflationIndex is explicitly false. The manual index adjustment arrives
// as a magnitude with a separate sign flag.
type RetainerParams struct {
	MonthlyAmount                  decimal.Decimal
	ApplyInflationIndex            *bool
	InflationRatePercent           decimal.Decimal
	IndexManualAdjustmentMagnitude decimal.Decimal
	IndexManualAdjustmentNegative  bool
	RealAdjustment                 decimal.Decimal
	RealAdjustmentReason           string
	ClientRequestedAdjustment      decimal.Decimal
}

// SignedIndexAdjustment combines the magnitude and sign flag
func (r RetainerParams) SignedIndexAdjustment() decimal.Decimal {
	magnitude := r.IndexManualAdjustmentMagnitude.Abs()
	if r.IndexManualAdjustmentNegative {
		return magnitude.Neg()
	}
	return magnitude
}

// InflationEnabled resolves the default-on inflation flag
func (r RetainerParams) InflationEnabled() bool {
	return r.ApplyInflationIndex == nil || *r.ApplyInflationIndex
}

type subCalculationInput struct {
	monthly decimal.Decimal
	reason  string
	calc    CalculationInput
}

func (p FeeParams) bookkeepingInput() *subCalculationInput {
	b := p.Bookkeeping
	if b == nil || !b.MonthlyAmount.IsPositive() {
		return nil
	}
	return &subCalculationInput{
		monthly: b.MonthlyAmount,
		reason:  b.RealAdjustmentReason,
		calc: CalculationInput{
			BaseAmount:                b.MonthlyAmount.Mul(monthsPerYear),
			InflationRatePercent:      b.InflationRatePercent,
			ApplyInflationIndex:       b.ApplyInflationIndex,
			IndexManualAdjustment:     b.IndexManualAdjustment,
			RealAdjustment:            b.RealAdjustment,
			ClientRequestedAdjustment: b.ClientRequestedAdjustment,
		},
	}
}

func (p FeeParams) retainerInput() *subCalculationInput {
	r := p.Retainer
	if r == nil || !r.MonthlyAmount.IsPositive() {
		return nil
	}
	return &subCalculationInput{
		monthly: r.MonthlyAmount,
		reason:  r.RealAdjustmentReason,
		calc: CalculationInput{
			BaseAmount:                r.MonthlyAmount.Mul(monthsPerYear),
			InflationRatePercent:      r.InflationRatePercent,
			ApplyInflationIndex:       r.InflationEnabled(),
			IndexManualAdjustment:     r.SignedIndexAdjustment(),
			RealAdjustment:            r.RealAdjustment,
			ClientRequestedAdjustment: r.ClientRequestedAdjustment,
		},
	}
}

// Validate checks the params before anything is calculated or written
func (p FeeParams) Validate() error {
	if p.BaseAmount.IsNegative() {
		return NewValidationError(CodeValidation, "base_amount", "base amount cannot be negative")
	}
	if p.ClientRequestedAdjustment.IsPositive() {
		return NewValidationError(CodeClientAdjustmentPositive, "client_requested_adjustment",
			"client requested adjustment must be zero or negative")
	}
	if b := p.Bookkeeping; b != nil {
		if b.MonthlyAmount.IsNegative() {
			return NewValidationError(CodeValidation, "bookkeeping.monthly_amount", "monthly amount cannot be negative")
		}
		if b.ClientRequestedAdjustment.IsPositive() {
			return NewValidationError(CodeClientAdjustmentPositive, "bookkeeping.client_requested_adjustment",
				"client requested adjustment must be zero or negative")
		}
	}
	if r := p.Retainer; r != nil {
		if r.MonthlyAmount.IsNegative() {
			return NewValidationError(CodeValidation, "retainer.monthly_amount", "monthly amount cannot be negative")
		}
		if r.ClientRequestedAdjustment.IsPositive() {
			return NewValidationError(CodeClientAdjustmentPositive, "retainer.client_requested_adjustment",
				"client requested adjustment must be zero or negative")
		}
	}
	return nil
}
