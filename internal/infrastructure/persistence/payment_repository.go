package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements fee.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) withInstallments(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Installments", func(db *gorm.DB) *gorm.DB {
		return db.Order("installment_number ASC")
	})
}

// FindByIDForTenant finds a payment with its installments
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.ActualPayment, error) {
	var model models.ActualPaymentModel
	err := r.withInstallments(ctx).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fee.NewPersistenceError("find payment", err)
	}
	return model.ToDomain(), nil
}

// FindByFeeCalculation finds the payment recorded against a fee calculation
func (r *GormPaymentRepository) FindByFeeCalculation(ctx context.Context, tenantID, feeCalculationID uuid.UUID) (*fee.ActualPayment, error) {
	var model models.ActualPaymentModel
	err := r.withInstallments(ctx).
		Scopes(tenantScope(tenantID)).
		Where("fee_calculation_id = ?", feeCalculationID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fee.NewPersistenceError("find payment by fee calculation", err)
	}
	return model.ToDomain(), nil
}

// Create inserts a payment row. Installments are written with CreateInstallments.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *fee.ActualPayment) error {
	model := models.ActualPaymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		return fee.NewPersistenceError("create payment", err)
	}
	return nil
}

// Update rewrites the payment row, guarded by its version
func (r *GormPaymentRepository) Update(ctx context.Context, payment *fee.ActualPayment) error {
	model := models.ActualPaymentModelFromDomain(payment)
	model.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&models.ActualPaymentModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", payment.ID, payment.TenantID, payment.Version-1).
		Select("*").
		Omit(clause.Associations, "id", "tenant_id", "created_at", "created_by").
		Updates(model)
	if result.Error != nil {
		return fee.NewPersistenceError("update payment", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	payment.UpdatedAt = model.UpdatedAt
	return nil
}

// DeleteForTenant removes a payment and its installments in one transaction
func (r *GormPaymentRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(tenantScope(tenantID)).
			Where("actual_payment_id = ?", id).
			Delete(&models.PaymentInstallmentModel{}).Error; err != nil {
			return err
		}
		result := tx.Scopes(tenantScope(tenantID)).
			Where("id = ?", id).
			Delete(&models.ActualPaymentModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	if err == nil || errors.Is(err, shared.ErrNotFound) {
		return err
	}
	return fee.NewPersistenceError("delete payment", err)
}

// CreateInstallments inserts installment rows in one batch
func (r *GormPaymentRepository) CreateInstallments(ctx context.Context, installments []fee.PaymentInstallment) error {
	if len(installments) == 0 {
		return nil
	}
	rows := make([]models.PaymentInstallmentModel, len(installments))
	for i := range installments {
		rows[i] = models.PaymentInstallmentModelFromDomain(installments[i])
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fee.NewPersistenceError("create installments", err)
	}
	return nil
}

var _ fee.PaymentRepository = (*GormPaymentRepository)(nil)

// GormDeviationRepository implements fee.DeviationRepository using GORM
type GormDeviationRepository struct {
	db *gorm.DB
}

// NewGormDeviationRepository creates a new GormDeviationRepository
func NewGormDeviationRepository(db *gorm.DB) *GormDeviationRepository {
	return &GormDeviationRepository{db: db}
}

// FindByPayment finds the deviation stored for a payment
func (r *GormDeviationRepository) FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*fee.PaymentDeviation, error) {
	var model models.PaymentDeviationModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("actual_payment_id = ?", paymentID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fee.NewPersistenceError("find deviation", err)
	}
	return model.ToDomain(), nil
}

// Create inserts a deviation row
func (r *GormDeviationRepository) Create(ctx context.Context, deviation *fee.PaymentDeviation) error {
	if err := r.db.WithContext(ctx).Create(models.PaymentDeviationModelFromDomain(deviation)).Error; err != nil {
		return fee.NewPersistenceError("create deviation", err)
	}
	return nil
}

// DeleteByPayment removes the deviation of a payment, if any
func (r *GormDeviationRepository) DeleteByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("actual_payment_id = ?", paymentID).
		Delete(&models.PaymentDeviationModel{}).Error; err != nil {
		return fee.NewPersistenceError("delete deviation", err)
	}
	return nil
}

var _ fee.DeviationRepository = (*GormDeviationRepository)(nil)
