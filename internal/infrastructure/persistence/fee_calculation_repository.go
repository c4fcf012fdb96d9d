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

// feeCalculationUpsertColumns are overwritten when the (tenant, client, year) row exists.
// Identity, authorship and creation time stay as first written.
var feeCalculationUpsertColumns = []string{
	"base_amount",
	"apply_inflation_index",
	"inflation_rate_percent",
	"index_manual_adjustment",
	"real_adjustment",
	"real_adjustment_reason",
	"client_requested_adjustment",
	"client_adjustment_note",
	"inflation_adjustment",
	"discount_percentage",
	"discount_amount",
	"amount_after_discount",
	"final_amount_before_vat",
	"vat_amount",
	"total_with_vat",
	"previous_year_amount_before_discount",
	"previous_year_amount_after_discount",
	"previous_year_amount_with_vat",
	"year_over_year_change_amount",
	"year_over_year_change_percent",
	"status",
	"bookkeeping_calculation",
	"retainer_calculation",
	"due_date",
	"notes",
	"custom_text",
	"sent_at",
	"payment_date",
	"partial_paid_amount",
	"has_deviation",
	"deviation_alert_level",
	"calculation_metadata",
	"updated_at",
}

// GormFeeCalculationRepository implements fee.FeeCalculationRepository using GORM
type GormFeeCalculationRepository struct {
	db *gorm.DB
}

// NewGormFeeCalculationRepository creates a new GormFeeCalculationRepository
func NewGormFeeCalculationRepository(db *gorm.DB) *GormFeeCalculationRepository {
	return &GormFeeCalculationRepository{db: db}
}

// FindByIDForTenant finds a fee calculation by ID within a tenant
func (r *GormFeeCalculationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.FeeCalculation, error) {
	var model models.FeeCalculationModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	return r.toDomain(&model, err, "find fee calculation")
}

// FindByClientYear finds the fee calculation of a client for a tax year
func (r *GormFeeCalculationRepository) FindByClientYear(ctx context.Context, tenantID, clientID uuid.UUID, taxYear int) (*fee.FeeCalculation, error) {
	var model models.FeeCalculationModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("client_id = ? AND tax_year = ?", clientID, taxYear).
		First(&model).Error
	return r.toDomain(&model, err, "find fee calculation by client year")
}

func (r *GormFeeCalculationRepository) toDomain(model *models.FeeCalculationModel, err error, op string) (*fee.FeeCalculation, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fee.NewPersistenceError(op, err)
	}
	calc, err := model.ToDomain()
	if err != nil {
		return nil, fee.NewPersistenceError(op, err)
	}
	return calc, nil
}

// FindAllForTenant lists fee calculations with paging and returns the total match count
func (r *GormFeeCalculationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter fee.FeeCalculationFilter) ([]fee.FeeCalculation, int64, error) {
	page := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.FeeCalculationModel{}).Scopes(tenantScope(tenantID))
	if filter.TaxYear != 0 {
		query = query.Where("tax_year = ?", filter.TaxYear)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fee.NewPersistenceError("count fee calculations", err)
	}

	orderBy := ValidateSortField(page.OrderBy, FeeCalculationSortFields, "created_at")
	var rows []models.FeeCalculationModel
	if err := query.
		Order(orderBy + " " + ValidateSortOrder(page.OrderDir)).
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, fee.NewPersistenceError("list fee calculations", err)
	}

	out := make([]fee.FeeCalculation, 0, len(rows))
	for i := range rows {
		calc, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, fee.NewPersistenceError("list fee calculations", err)
		}
		out = append(out, *calc)
	}
	return out, total, nil
}

// Upsert writes the calculation in a single INSERT .. ON CONFLICT statement keyed on
// (tenant_id, client_id, tax_year). A fresh insert returns equal created_at and
// updated_at; an update keeps the original created_at and bumps the version.
func (r *GormFeeCalculationRepository) Upsert(ctx context.Context, calc *fee.FeeCalculation) error {
	model, err := models.FeeCalculationModelFromDomain(calc)
	if err != nil {
		return fee.NewPersistenceError("upsert fee calculation", err)
	}
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	model.Version = 1

	updates := clause.AssignmentColumns(feeCalculationUpsertColumns)
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "version"},
		Value:  gorm.Expr("fee_calculations.version + 1"),
	})

	err = r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "client_id"}, {Name: "tax_year"}},
				DoUpdates: updates,
			},
			clause.Returning{Columns: []clause.Column{
				{Name: "id"}, {Name: "created_at"}, {Name: "updated_at"}, {Name: "version"},
			}},
		).
		Create(model).Error
	if err != nil {
		return fee.NewPersistenceError("upsert fee calculation", err)
	}

	calc.ID = model.ID
	calc.CreatedAt = model.CreatedAt
	calc.UpdatedAt = model.UpdatedAt
	calc.Version = model.Version
	return nil
}

// SaveWithLock updates an existing calculation using optimistic locking.
// The caller is expected to have bumped Version before saving.
func (r *GormFeeCalculationRepository) SaveWithLock(ctx context.Context, calc *fee.FeeCalculation) error {
	model, err := models.FeeCalculationModelFromDomain(calc)
	if err != nil {
		return fee.NewPersistenceError("save fee calculation", err)
	}
	model.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&models.FeeCalculationModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", calc.ID, calc.TenantID, calc.Version-1).
		Select("*").
		Omit("id", "tenant_id", "client_id", "tax_year", "created_at", "created_by").
		Updates(model)
	if result.Error != nil {
		return fee.NewPersistenceError("save fee calculation", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	calc.UpdatedAt = model.UpdatedAt
	return nil
}

var _ fee.FeeCalculationRepository = (*GormFeeCalculationRepository)(nil)
