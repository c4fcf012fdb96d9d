package models

import (
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActualPaymentModel is the persistence model for fee.ActualPayment
type ActualPaymentModel struct {
	TenantAggregateModel
	ClientID         uuid.UUID         `gorm:"type:uuid;not null"`
	FeeCalculationID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uq_actual_payments_fee"`
	AmountPaid       decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	AmountBeforeVAT  decimal.Decimal   `gorm:"column:amount_before_vat;type:decimal(18,4);not null"`
	AmountVAT        decimal.Decimal   `gorm:"column:amount_vat;type:decimal(18,4);not null"`
	AmountWithVAT    decimal.Decimal   `gorm:"column:amount_with_vat;type:decimal(18,4);not null"`
	PaymentDate      time.Time         `gorm:"type:date;not null"`
	PaymentMethod    fee.PaymentMethod `gorm:"type:varchar(32);not null"`
	PaymentReference string            `gorm:"type:varchar(100);not null;default:''"`
	Notes            string            `gorm:"type:text;not null;default:''"`
	AttachmentIDs    fee.AttachmentIDs `gorm:"column:attachment_ids;type:jsonb;not null"`

	Installments []PaymentInstallmentModel `gorm:"foreignKey:ActualPaymentID"`
}

// TableName returns the table name for GORM
func (ActualPaymentModel) TableName() string {
	return "actual_payments"
}

// ToDomain converts the persistence model to a domain ActualPayment
func (m *ActualPaymentModel) ToDomain() *fee.ActualPayment {
	p := &fee.ActualPayment{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		ClientID:            m.ClientID,
		FeeCalculationID:    m.FeeCalculationID,
		AmountPaid:          m.AmountPaid,
		AmountBeforeVAT:     m.AmountBeforeVAT,
		AmountVAT:           m.AmountVAT,
		AmountWithVAT:       m.AmountWithVAT,
		PaymentDate:         m.PaymentDate,
		PaymentMethod:       m.PaymentMethod,
		PaymentReference:    m.PaymentReference,
		Notes:               m.Notes,
		AttachmentIDs:       m.AttachmentIDs,
		Installments:        make([]fee.PaymentInstallment, len(m.Installments)),
	}
	if p.AttachmentIDs == nil {
		p.AttachmentIDs = fee.AttachmentIDs{}
	}
	for i := range m.Installments {
		p.Installments[i] = m.Installments[i].ToDomain()
	}
	return p
}

// ActualPaymentModelFromDomain creates a persistence model from a domain ActualPayment.
// Installments are written separately.
func ActualPaymentModelFromDomain(p *fee.ActualPayment) *ActualPaymentModel {
	m := &ActualPaymentModel{
		ClientID:         p.ClientID,
		FeeCalculationID: p.FeeCalculationID,
		AmountPaid:       p.AmountPaid,
		AmountBeforeVAT:  p.AmountBeforeVAT,
		AmountVAT:        p.AmountVAT,
		AmountWithVAT:    p.AmountWithVAT,
		PaymentDate:      p.PaymentDate,
		PaymentMethod:    p.PaymentMethod,
		PaymentReference: p.PaymentReference,
		Notes:            p.Notes,
		AttachmentIDs:    p.AttachmentIDs,
	}
	if m.AttachmentIDs == nil {
		m.AttachmentIDs = fee.AttachmentIDs{}
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}

// PaymentInstallmentModel is the persistence model for fee.PaymentInstallment
type PaymentInstallmentModel struct {
	ID                uuid.UUID             `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID             `gorm:"type:uuid;not null"`
	ActualPaymentID   uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:uq_payment_installments_number,priority:1"`
	InstallmentNumber int                   `gorm:"not null;uniqueIndex:uq_payment_installments_number,priority:2"`
	InstallmentDate   time.Time             `gorm:"type:date;not null"`
	InstallmentAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Status            fee.InstallmentStatus `gorm:"type:varchar(10);not null;default:'pending'"`
	CreatedAt         time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentInstallmentModel) TableName() string {
	return "payment_installments"
}

// ToDomain converts the persistence model to a domain PaymentInstallment
func (m *PaymentInstallmentModel) ToDomain() fee.PaymentInstallment {
	return fee.PaymentInstallment{
		ID:                m.ID,
		TenantID:          m.TenantID,
		ActualPaymentID:   m.ActualPaymentID,
		InstallmentNumber: m.InstallmentNumber,
		InstallmentDate:   m.InstallmentDate,
		InstallmentAmount: m.InstallmentAmount,
		Status:            m.Status,
		CreatedAt:         m.CreatedAt,
	}
}

// PaymentInstallmentModelFromDomain creates a persistence model from a domain PaymentInstallment
func PaymentInstallmentModelFromDomain(i fee.PaymentInstallment) PaymentInstallmentModel {
	return PaymentInstallmentModel{
		ID:                i.ID,
		TenantID:          i.TenantID,
		ActualPaymentID:   i.ActualPaymentID,
		InstallmentNumber: i.InstallmentNumber,
		InstallmentDate:   i.InstallmentDate,
		InstallmentAmount: i.InstallmentAmount,
		Status:            i.Status,
		CreatedAt:         i.CreatedAt,
	}
}

// PaymentDeviationModel is the persistence model for fee.PaymentDeviation
type PaymentDeviationModel struct {
	ID                      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID                uuid.UUID       `gorm:"type:uuid;not null"`
	ActualPaymentID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_payment_deviations_payment"`
	FeeCalculationID        uuid.UUID       `gorm:"type:uuid;not null"`
	ExpectedDiscountPercent decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	ExpectedAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ActualAmount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DeviationAmount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DeviationPercent        decimal.Decimal `gorm:"type:decimal(9,2);not null"`
	AlertLevel              fee.AlertLevel  `gorm:"type:varchar(10);not null"`
	AlertMessage            string          `gorm:"type:text;not null;default:''"`
	CreatedAt               time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentDeviationModel) TableName() string {
	return "payment_deviations"
}

// ToDomain converts the persistence model to a domain PaymentDeviation
func (m *PaymentDeviationModel) ToDomain() *fee.PaymentDeviation {
	return &fee.PaymentDeviation{
		ID:                      m.ID,
		TenantID:                m.TenantID,
		ActualPaymentID:         m.ActualPaymentID,
		FeeCalculationID:        m.FeeCalculationID,
		ExpectedDiscountPercent: m.ExpectedDiscountPercent,
		ExpectedAmount:          m.ExpectedAmount,
		ActualAmount:            m.ActualAmount,
		DeviationAmount:         m.DeviationAmount,
		DeviationPercent:        m.DeviationPercent,
		AlertLevel:              m.AlertLevel,
		AlertMessage:            m.AlertMessage,
		CreatedAt:               m.CreatedAt,
	}
}

// PaymentDeviationModelFromDomain creates a persistence model from a domain PaymentDeviation
func PaymentDeviationModelFromDomain(d *fee.PaymentDeviation) *PaymentDeviationModel {
	return &PaymentDeviationModel{
		ID:                      d.ID,
		TenantID:                d.TenantID,
		ActualPaymentID:         d.ActualPaymentID,
		FeeCalculationID:        d.FeeCalculationID,
		ExpectedDiscountPercent: d.ExpectedDiscountPercent,
		ExpectedAmount:          d.ExpectedAmount,
		ActualAmount:            d.ActualAmount,
		DeviationAmount:         d.DeviationAmount,
		DeviationPercent:        d.DeviationPercent,
		AlertLevel:              d.AlertLevel,
		AlertMessage:            d.AlertMessage,
		CreatedAt:               d.CreatedAt,
	}
}
