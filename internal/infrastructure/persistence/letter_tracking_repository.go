package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLetterTrackingRepository implements fee.LetterTrackingRepository using GORM
type GormLetterTrackingRepository struct {
	db *gorm.DB
}

// NewGormLetterTrackingRepository creates a new GormLetterTrackingRepository
func NewGormLetterTrackingRepository(db *gorm.DB) *GormLetterTrackingRepository {
	return &GormLetterTrackingRepository{db: db}
}

// FindByFeeCalculation finds the tracking row of a fee letter
func (r *GormLetterTrackingRepository) FindByFeeCalculation(ctx context.Context, tenantID, feeCalculationID uuid.UUID) (*fee.LetterTracking, error) {
	var model models.LetterTrackingModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("fee_calculation_id = ?", feeCalculationID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fee.NewPersistenceError("find letter tracking", err)
	}
	return model.ToDomain(), nil
}

// Save upserts the tracking row keyed on the fee calculation
func (r *GormLetterTrackingRepository) Save(ctx context.Context, tracking *fee.LetterTracking) error {
	if tracking.ID == uuid.Nil {
		tracking.ID = uuid.New()
	}
	tracking.UpdatedAt = time.Now().UTC()

	model := models.LetterTrackingModelFromDomain(tracking)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "fee_calculation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sent_at", "opened_at", "open_count",
				"payment_method_selected", "payment_method_selected_at", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return fee.NewPersistenceError("save letter tracking", err)
	}
	return nil
}

var _ fee.LetterTrackingRepository = (*GormLetterTrackingRepository)(nil)
