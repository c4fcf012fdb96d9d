package fee

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertLevel is the severity assigned to a payment deviation
type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "info"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
)

// IsValid checks if the alert level is a known value
func (l AlertLevel) IsValid() bool {
	switch l {
	case AlertLevelInfo, AlertLevelWarning, AlertLevelCritical:
		return true
	}
	return false
}

// String returns the string representation
func (l AlertLevel) String() string {
	return string(l)
}

// DeviationClassification is the result of the deviation policy
type DeviationClassification struct {
	ExpectedDiscountPercent decimal.Decimal
	ExpectedAmount          decimal.Decimal
	ActualAmount            decimal.Decimal
	DeviationAmount         decimal.Decimal
	DeviationPercent        decimal.Decimal
	AlertLevel              AlertLevel
	AlertMessage            string
}

// DeviationClassifier decides how far a payment is from what was expected.
// The rule lives outside the engine; implementations return
// ErrClassificationUnavailable (possibly wrapped) when they cannot answer.
type DeviationClassifier interface {
	Classify(ctx context.Context, tenantID, feeCalculationID uuid.UUID, actualAmount decimal.Decimal) (*DeviationClassification, error)
}

// PaymentDeviation is the stored classification of one payment
type PaymentDeviation struct {
	ID                      uuid.UUID
	TenantID                uuid.UUID
	ActualPaymentID         uuid.UUID
	FeeCalculationID        uuid.UUID
	ExpectedDiscountPercent decimal.Decimal
	ExpectedAmount          decimal.Decimal
	ActualAmount            decimal.Decimal
	DeviationAmount         decimal.Decimal
	DeviationPercent        decimal.Decimal
	AlertLevel              AlertLevel
	AlertMessage            string
	CreatedAt               time.Time
}

// NewPaymentDeviation builds the stored deviation for a payment.
// Unknown alert levels are treated as critical.
func NewPaymentDeviation(payment *ActualPayment, c *DeviationClassification) *PaymentDeviation {
	level := c.AlertLevel
	if !level.IsValid() {
		level = AlertLevelCritical
	}
	return &PaymentDeviation{
		ID:                      uuid.New(),
		TenantID:                payment.TenantID,
		ActualPaymentID:         payment.ID,
		FeeCalculationID:        payment.FeeCalculationID,
		ExpectedDiscountPercent: c.ExpectedDiscountPercent,
		ExpectedAmount:          c.ExpectedAmount,
		ActualAmount:            c.ActualAmount,
		DeviationAmount:         c.DeviationAmount,
		DeviationPercent:        c.DeviationPercent,
		AlertLevel:              level,
		AlertMessage:            c.AlertMessage,
		CreatedAt:               time.Now(),
	}
}
