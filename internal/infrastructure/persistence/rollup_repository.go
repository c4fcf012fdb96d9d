package persistence

import (
	"context"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormRollupRepository implements fee.RollupReadRepository using GORM
type GormRollupRepository struct {
	db *gorm.DB
}

// NewGormRollupRepository creates a new GormRollupRepository
func NewGormRollupRepository(db *gorm.DB) *GormRollupRepository {
	return &GormRollupRepository{db: db}
}

type clientStatusRow struct {
	ClientID             uuid.UUID
	Name                 string
	TaxID                string
	GroupID              *uuid.UUID
	PayerClientID        *uuid.UUID
	Status               *string
	FinalAmountBeforeVAT decimal.NullDecimal `gorm:"column:final_amount_before_vat"`
	TotalWithVAT         decimal.NullDecimal `gorm:"column:total_with_vat"`
}

// ListClientStatuses returns every client of the tenant with its fee for the year, if any
func (r *GormRollupRepository) ListClientStatuses(ctx context.Context, tenantID uuid.UUID, taxYear int) ([]fee.ClientStatusRow, error) {
	var rows []clientStatusRow
	err := r.db.WithContext(ctx).
		Table("clients AS c").
		Select("c.id AS client_id, c.name, c.tax_id, c.group_id, c.payer_client_id, "+
			"f.status, f.final_amount_before_vat, f.total_with_vat").
		Joins("LEFT JOIN fee_calculations f ON f.client_id = c.id AND f.tenant_id = c.tenant_id AND f.tax_year = ?", taxYear).
		Where("c.tenant_id = ?", tenantID).
		Order("c.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fee.NewPersistenceError("list client statuses", err)
	}

	out := make([]fee.ClientStatusRow, len(rows))
	for i, row := range rows {
		var status *fee.FeeStatus
		if row.Status != nil {
			s := fee.FeeStatus(*row.Status)
			status = &s
		}
		out[i] = fee.ClientStatusRow{
			ClientID:        row.ClientID,
			Name:            row.Name,
			TaxID:           row.TaxID,
			GroupID:         row.GroupID,
			Status:          fee.ClientRollupStatus(status, row.PayerClientID != nil),
			AmountBeforeVAT: nullableDecimal(row.FinalAmountBeforeVAT),
			AmountWithVAT:   nullableDecimal(row.TotalWithVAT),
		}
	}
	return out, nil
}

// ListGroups returns the tenant's groups keyed by ID with their calculation for the year
func (r *GormRollupRepository) ListGroups(ctx context.Context, tenantID uuid.UUID, taxYear int) (map[uuid.UUID]fee.GroupInfo, error) {
	var groups []models.ClientGroupModel
	if err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).Find(&groups).Error; err != nil {
		return nil, fee.NewPersistenceError("list groups", err)
	}

	var calcs []models.GroupCalculationModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("tax_year = ?", taxYear).
		Find(&calcs).Error; err != nil {
		return nil, fee.NewPersistenceError("list group calculations", err)
	}

	out := make(map[uuid.UUID]fee.GroupInfo, len(groups))
	for i := range groups {
		out[groups[i].ID] = fee.GroupInfo{Group: groups[i].ToDomain()}
	}
	for i := range calcs {
		info, ok := out[calcs[i].GroupID]
		if !ok {
			continue
		}
		info.Calculation = calcs[i].ToDomain()
		out[calcs[i].GroupID] = info
	}
	return out, nil
}

func nullableDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

var _ fee.RollupReadRepository = (*GormRollupRepository)(nil)
