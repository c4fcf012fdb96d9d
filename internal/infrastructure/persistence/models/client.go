package models

import (
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientModel is the persistence model for fee.Client
type ClientModel struct {
	BaseModel
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:uq_clients_legacy_ref,priority:1"`
	Name          string     `gorm:"type:varchar(200);not null"`
	TaxID         string     `gorm:"type:varchar(20);not null;default:''"`
	GroupID       *uuid.UUID `gorm:"type:uuid"`
	PayerClientID *uuid.UUID `gorm:"type:uuid"`
	LegacyRef     *string    `gorm:"type:varchar(64);uniqueIndex:uq_clients_legacy_ref,priority:2"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *fee.Client {
	c := &fee.Client{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Name:          m.Name,
		TaxID:         m.TaxID,
		GroupID:       m.GroupID,
		PayerClientID: m.PayerClientID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.LegacyRef != nil {
		c.LegacyRef = *m.LegacyRef
	}
	return c
}

// ClientModelFromDomain creates a persistence model from a domain Client.
// An empty legacy reference is stored as NULL.
func ClientModelFromDomain(c *fee.Client) *ClientModel {
	m := &ClientModel{
		BaseModel:     BaseModel{ID: c.ID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt},
		TenantID:      c.TenantID,
		Name:          c.Name,
		TaxID:         c.TaxID,
		GroupID:       c.GroupID,
		PayerClientID: c.PayerClientID,
	}
	if c.LegacyRef != "" {
		ref := c.LegacyRef
		m.LegacyRef = &ref
	}
	return m
}

// ClientGroupModel is the persistence model for fee.Group
type ClientGroupModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (ClientGroupModel) TableName() string {
	return "client_groups"
}

// ToDomain converts the persistence model to a domain Group
func (m *ClientGroupModel) ToDomain() fee.Group {
	return fee.Group{ID: m.ID, TenantID: m.TenantID, Name: m.Name}
}

// GroupCalculationModel is the persistence model for fee.GroupCalculation
type GroupCalculationModel struct {
	BaseModel
	TenantID             uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_group_calculations_group_year,priority:1"`
	GroupID              uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_group_calculations_group_year,priority:2"`
	TaxYear              int              `gorm:"not null;uniqueIndex:uq_group_calculations_group_year,priority:3"`
	Status               fee.FeeStatus    `gorm:"type:varchar(20);not null;default:'draft'"`
	SentAt               *time.Time
	FinalAmountBeforeVAT *decimal.Decimal `gorm:"column:final_amount_before_vat;type:decimal(18,4)"`
	TotalWithVAT         *decimal.Decimal `gorm:"column:total_with_vat;type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (GroupCalculationModel) TableName() string {
	return "group_calculations"
}

// ToDomain converts the persistence model to a domain GroupCalculation
func (m *GroupCalculationModel) ToDomain() *fee.GroupCalculation {
	return &fee.GroupCalculation{
		ID:                   m.ID,
		TenantID:             m.TenantID,
		GroupID:              m.GroupID,
		TaxYear:              m.TaxYear,
		Status:               m.Status,
		SentAt:               m.SentAt,
		FinalAmountBeforeVAT: m.FinalAmountBeforeVAT,
		TotalWithVAT:         m.TotalWithVAT,
	}
}

// GroupCalculationModelFromDomain creates a persistence model from a domain GroupCalculation
func GroupCalculationModelFromDomain(g *fee.GroupCalculation) *GroupCalculationModel {
	return &GroupCalculationModel{
		BaseModel:            BaseModel{ID: g.ID},
		TenantID:             g.TenantID,
		GroupID:              g.GroupID,
		TaxYear:              g.TaxYear,
		Status:               g.Status,
		SentAt:               g.SentAt,
		FinalAmountBeforeVAT: g.FinalAmountBeforeVAT,
		TotalWithVAT:         g.TotalWithVAT,
	}
}
