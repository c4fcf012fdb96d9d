package models

import (
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LetterTrackingModel is the persistence model for fee.LetterTracking
type LetterTrackingModel struct {
	ID                      uuid.UUID          `gorm:"type:uuid;primaryKey"`
	TenantID                uuid.UUID          `gorm:"type:uuid;not null;index"`
	FeeCalculationID        uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:uq_letter_tracking_fee"`
	ClientID                uuid.UUID          `gorm:"type:uuid;not null"`
	SentAt                  *time.Time
	OpenedAt                *time.Time
	OpenCount               int                `gorm:"not null;default:0"`
	PaymentMethodSelected   *fee.PaymentMethod `gorm:"type:varchar(32)"`
	PaymentMethodSelectedAt *time.Time
	UpdatedAt               time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LetterTrackingModel) TableName() string {
	return "letter_tracking"
}

// ToDomain converts the persistence model to a domain LetterTracking
func (m *LetterTrackingModel) ToDomain() *fee.LetterTracking {
	return &fee.LetterTracking{
		ID:                      m.ID,
		TenantID:                m.TenantID,
		FeeCalculationID:        m.FeeCalculationID,
		ClientID:                m.ClientID,
		SentAt:                  m.SentAt,
		OpenedAt:                m.OpenedAt,
		OpenCount:               m.OpenCount,
		PaymentMethodSelected:   m.PaymentMethodSelected,
		PaymentMethodSelectedAt: m.PaymentMethodSelectedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}

// LetterTrackingModelFromDomain creates a persistence model from a domain LetterTracking
func LetterTrackingModelFromDomain(l *fee.LetterTracking) *LetterTrackingModel {
	return &LetterTrackingModel{
		ID:                      l.ID,
		TenantID:                l.TenantID,
		FeeCalculationID:        l.FeeCalculationID,
		ClientID:                l.ClientID,
		SentAt:                  l.SentAt,
		OpenedAt:                l.OpenedAt,
		OpenCount:               l.OpenCount,
		PaymentMethodSelected:   l.PaymentMethodSelected,
		PaymentMethodSelectedAt: l.PaymentMethodSelectedAt,
		UpdatedAt:               l.UpdatedAt,
	}
}

// PaymentDisputeModel is the persistence model for fee.PaymentDispute
type PaymentDisputeModel struct {
	TenantAggregateModel
	ClientID           uuid.UUID         `gorm:"type:uuid;not null"`
	FeeCalculationID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Reason             string            `gorm:"type:text;not null"`
	ClaimedAmount      *decimal.Decimal  `gorm:"type:decimal(18,4)"`
	ClaimedPaymentDate *time.Time        `gorm:"type:date"`
	Status             fee.DisputeStatus `gorm:"type:varchar(20);not null;default:'open';index"`
	ResolutionNotes    string            `gorm:"type:text;not null;default:''"`
	ResolvedBy         *uuid.UUID        `gorm:"type:uuid"`
	ResolvedAt         *time.Time
}

// TableName returns the table name for GORM
func (PaymentDisputeModel) TableName() string {
	return "payment_disputes"
}

// ToDomain converts the persistence model to a domain PaymentDispute
func (m *PaymentDisputeModel) ToDomain() *fee.PaymentDispute {
	return &fee.PaymentDispute{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		ClientID:            m.ClientID,
		FeeCalculationID:    m.FeeCalculationID,
		Reason:              m.Reason,
		ClaimedAmount:       m.ClaimedAmount,
		ClaimedPaymentDate:  m.ClaimedPaymentDate,
		Status:              m.Status,
		ResolutionNotes:     m.ResolutionNotes,
		ResolvedBy:          m.ResolvedBy,
		ResolvedAt:          m.ResolvedAt,
	}
}

// PaymentDisputeModelFromDomain creates a persistence model from a domain PaymentDispute
func PaymentDisputeModelFromDomain(d *fee.PaymentDispute) *PaymentDisputeModel {
	m := &PaymentDisputeModel{
		ClientID:           d.ClientID,
		FeeCalculationID:   d.FeeCalculationID,
		Reason:             d.Reason,
		ClaimedAmount:      d.ClaimedAmount,
		ClaimedPaymentDate: d.ClaimedPaymentDate,
		Status:             d.Status,
		ResolutionNotes:    d.ResolutionNotes,
		ResolvedBy:         d.ResolvedBy,
		ResolvedAt:         d.ResolvedAt,
	}
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	return m
}
