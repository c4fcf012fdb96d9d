package persistence

import (
	"context"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/audit"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditLogRepository stores audit entries in audit_logs
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append implements audit.Store
func (r *GormAuditLogRepository) Append(ctx context.Context, entry *audit.Entry) error {
	model, err := models.AuditLogModelFromEntry(entry)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByEntity lists the audit trail of one entity, newest first
func (r *GormAuditLogRepository) FindByEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, filter shared.Filter) ([]audit.Entry, error) {
	page := filter.Normalize()
	var rows []models.AuditLogModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("occurred_at DESC").
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]audit.Entry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].ToEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

var _ audit.Store = (*GormAuditLogRepository)(nil)
