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

// GormDisputeRepository implements fee.DisputeRepository using GORM
type GormDisputeRepository struct {
	db *gorm.DB
}

// NewGormDisputeRepository creates a new GormDisputeRepository
func NewGormDisputeRepository(db *gorm.DB) *GormDisputeRepository {
	return &GormDisputeRepository{db: db}
}

// FindByIDForTenant finds a dispute by ID within a tenant
func (r *GormDisputeRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.PaymentDispute, error) {
	var model models.PaymentDisputeModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fee.NewPersistenceError("find dispute", err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists disputes with paging and returns the total match count
func (r *GormDisputeRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter fee.DisputeFilter) ([]fee.PaymentDispute, int64, error) {
	page := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.PaymentDisputeModel{}).Scopes(tenantScope(tenantID))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fee.NewPersistenceError("count disputes", err)
	}

	orderBy := ValidateSortField(page.OrderBy, DisputeSortFields, "created_at")
	var rows []models.PaymentDisputeModel
	if err := query.
		Order(orderBy + " " + ValidateSortOrder(page.OrderDir)).
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, fee.NewPersistenceError("list disputes", err)
	}

	out := make([]fee.PaymentDispute, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Save inserts a new dispute or updates an existing one under optimistic locking.
// A dispute at version 1 has never been stored.
func (r *GormDisputeRepository) Save(ctx context.Context, dispute *fee.PaymentDispute) error {
	model := models.PaymentDisputeModelFromDomain(dispute)
	now := time.Now().UTC()
	model.UpdatedAt = now

	if dispute.Version <= 1 {
		if model.CreatedAt.IsZero() {
			model.CreatedAt = now
		}
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			return fee.NewPersistenceError("create dispute", err)
		}
		dispute.CreatedAt = model.CreatedAt
		dispute.UpdatedAt = now
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.PaymentDisputeModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", dispute.ID, dispute.TenantID, dispute.Version-1).
		Select("*").
		Omit(clause.Associations, "id", "tenant_id", "created_at", "created_by").
		Updates(model)
	if result.Error != nil {
		return fee.NewPersistenceError("update dispute", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	dispute.UpdatedAt = now
	return nil
}

var _ fee.DisputeRepository = (*GormDisputeRepository)(nil)
