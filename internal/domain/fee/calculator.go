package fee

import (
	"github.com/shopspring/decimal"
)

// DefaultVATRate is the VAT rate applied when none is configured
var DefaultVATRate = decimal.NewFromFloat(0.18)

// CalculationMethod identifies the rounding rule stamped into calculation metadata
const CalculationMethod = "ceiling_whole_unit"

var hundred = decimal.NewFromInt(100)

// CalculationInput holds the amount parameters for one calculation track.
type CalculationInput struct {
	BaseAmount                decimal.Decimal
	InflationRatePercent      decimal.Decimal
	ApplyInflationIndex       bool
	IndexManualAdjustment     decimal.Decimal
	RealAdjustment            decimal.Decimal
	ClientRequestedAdjustment decimal.Decimal
	// PreviousYearTotalWithVAT is nil when there is no prior-year figure
	PreviousYearTotalWithVAT *decimal.Decimal
}

// CalculationResult is the output of Calculator.Calculate.
// Discount fields are always zero and kept for the stored output shape.
type CalculationResult struct {
	InflationAuto             decimal.Decimal `json:"inflation_auto"`
	IndexManualAdjustment     decimal.Decimal `json:"index_manual_adjustment"`
	InflationAdjustment       decimal.Decimal `json:"inflation_adjustment"`
	AdjustedAmount            decimal.Decimal `json:"adjusted_amount"`
	DiscountPercentage        decimal.Decimal `json:"discount_percentage"`
	DiscountAmount            decimal.Decimal `json:"discount_amount"`
	AmountAfterDiscount       decimal.Decimal `json:"amount_after_discount"`
	FinalAmount               decimal.Decimal `json:"final_amount"`
	VATAmount                 decimal.Decimal `json:"vat_amount"`
	TotalWithVAT              decimal.Decimal `json:"total_with_vat"`
	YearOverYearChangeAmount  decimal.Decimal `json:"year_over_year_change_amount"`
	YearOverYearChangePercent decimal.Decimal `json:"year_over_year_change_percent"`
}

// Calculator computes fee amounts. Every intermediate total is rounded up to
// the whole currency unit. It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	vatRate decimal.Decimal
}

// NewCalculator creates a calculator for the given VAT rate (0.18 for 18%).
// A non-positive rate falls back to DefaultVATRate.
func NewCalculator(vatRate decimal.Decimal) *Calculator {
	if !vatRate.IsPositive() {
		vatRate = DefaultVATRate
	}
	return &Calculator{vatRate: vatRate}
}

// VATRate returns the configured VAT rate
func (c *Calculator) VATRate() decimal.Decimal {
	return c.vatRate
}

// Calculate turns a base amount and its adjustments into the billed fee.
func (c *Calculator) Calculate(in CalculationInput) (CalculationResult, error) {
	if in.ClientRequestedAdjustment.IsPositive() {
		return CalculationResult{}, NewValidationError(
			CodeClientAdjustmentPositive,
			"client_requested_adjustment",
			"client requested adjustment must be zero or negative",
		)
	}

	inflationAuto := decimal.Zero
	indexManual := decimal.Zero
	if in.ApplyInflationIndex {
		inflationAuto = in.BaseAmount.Mul(in.InflationRatePercent).Div(hundred).Ceil()
		indexManual = in.IndexManualAdjustment
	}
	inflationAdjustment := inflationAuto.Add(indexManual)

	adjusted := in.BaseAmount.
		Add(inflationAdjustment).
		Add(in.RealAdjustment).
		Add(in.ClientRequestedAdjustment).
		Ceil()

	final := adjusted
	vat := final.Mul(c.vatRate).Ceil()
	total := final.Add(vat).Ceil()

	result := CalculationResult{
		InflationAuto:             inflationAuto,
		IndexManualAdjustment:     indexManual,
		InflationAdjustment:       inflationAdjustment,
		AdjustedAmount:            adjusted,
		DiscountPercentage:        decimal.Zero,
		DiscountAmount:            decimal.Zero,
		AmountAfterDiscount:       final,
		FinalAmount:               final,
		VATAmount:                 vat,
		TotalWithVAT:              total,
		YearOverYearChangeAmount:  decimal.Zero,
		YearOverYearChangePercent: decimal.Zero,
	}

	if prev := in.PreviousYearTotalWithVAT; prev != nil && !prev.IsZero() {
		result.YearOverYearChangeAmount = total.Sub(*prev)
		result.YearOverYearChangePercent = result.YearOverYearChangeAmount.Div(*prev).Mul(hundred).Round(2)
	}

	return result, nil
}

// VATBreakdown splits a VAT-inclusive amount into its parts.
type VATBreakdown struct {
	BeforeVAT decimal.Decimal `json:"before_vat"`
	VAT       decimal.Decimal `json:"vat"`
	WithVAT   decimal.Decimal `json:"with_vat"`
}

// ReverseVAT derives the VAT breakdown of an amount that was already paid.
// It rounds half-up to cents, unlike Calculate which rounds billed amounts up.
func ReverseVAT(amountPaid, vatRate decimal.Decimal) VATBreakdown {
	beforeVAT := amountPaid.Div(decimal.NewFromInt(1).Add(vatRate)).Round(2)
	vat := beforeVAT.Mul(vatRate).Round(2)
	return VATBreakdown{
		BeforeVAT: beforeVAT,
		VAT:       vat,
		WithVAT:   beforeVAT.Add(vat),
	}
}

// ReverseVAT derives the VAT breakdown using the calculator's rate
func (c *Calculator) ReverseVAT(amountPaid decimal.Decimal) VATBreakdown {
	return ReverseVAT(amountPaid, c.vatRate)
}
