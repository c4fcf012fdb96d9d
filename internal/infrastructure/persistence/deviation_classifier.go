package persistence

import (
	"context"
	"errors"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// classifyDeviationSQL calls the stored function installed by migration 000005
const classifyDeviationSQL = "SELECT * FROM classify_payment_deviation(?, ?)"

type classificationRow struct {
	ExpectedDiscountPercent decimal.Decimal
	ExpectedAmount          decimal.Decimal
	ActualAmount            decimal.Decimal
	DeviationAmount         decimal.Decimal
	DeviationPercent        decimal.Decimal
	AlertLevel              string
	AlertMessage            string
}

// GormDeviationClassifier implements fee.DeviationClassifier with the
// classify_payment_deviation database function
type GormDeviationClassifier struct {
	db *gorm.DB
}

// NewGormDeviationClassifier creates a new GormDeviationClassifier
func NewGormDeviationClassifier(db *gorm.DB) *GormDeviationClassifier {
	return &GormDeviationClassifier{db: db}
}

// Classify implements fee.DeviationClassifier. The fee calculation must already
// have been checked against the tenant; the function itself is keyed by ID only.
func (c *GormDeviationClassifier) Classify(ctx context.Context, tenantID, feeCalculationID uuid.UUID, actualAmount decimal.Decimal) (*fee.DeviationClassification, error) {
	var rows []classificationRow
	if err := c.db.WithContext(ctx).Raw(classifyDeviationSQL, feeCalculationID, actualAmount).Scan(&rows).Error; err != nil {
		return nil, fee.ClassificationUnavailable(err)
	}
	if len(rows) == 0 {
		return nil, fee.ClassificationUnavailable(errors.New("classifier returned no result"))
	}

	row := rows[0]
	return &fee.DeviationClassification{
		ExpectedDiscountPercent: row.ExpectedDiscountPercent,
		ExpectedAmount:          row.ExpectedAmount,
		ActualAmount:            row.ActualAmount,
		DeviationAmount:         row.DeviationAmount,
		DeviationPercent:        row.DeviationPercent,
		AlertLevel:              fee.AlertLevel(row.AlertLevel),
		AlertMessage:            row.AlertMessage,
	}, nil
}

var _ fee.DeviationClassifier = (*GormDeviationClassifier)(nil)
