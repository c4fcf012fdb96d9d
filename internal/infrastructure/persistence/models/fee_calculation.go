package models

import (
	"encoding/json"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeCalculationModel is the persistence model for fee.FeeCalculation
type FeeCalculationModel struct {
	AggregateModel
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_fee_calculations_client_year,priority:1"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	ClientID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_fee_calculations_client_year,priority:2"`
	TaxYear   int        `gorm:"not null;uniqueIndex:uq_fee_calculations_client_year,priority:3"`

	BaseAmount                decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ApplyInflationIndex       bool            `gorm:"not null;default:false"`
	InflationRatePercent      decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	IndexManualAdjustment     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RealAdjustment            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RealAdjustmentReason      string          `gorm:"type:text;not null;default:''"`
	ClientRequestedAdjustment decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ClientAdjustmentNote      string          `gorm:"type:text;not null;default:''"`

	InflationAdjustment  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountPercentage   decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	DiscountAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AmountAfterDiscount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	FinalAmountBeforeVAT decimal.Decimal `gorm:"column:final_amount_before_vat;type:decimal(18,4);not null;default:0"`
	VATAmount            decimal.Decimal `gorm:"column:vat_amount;type:decimal(18,4);not null;default:0"`
	TotalWithVAT         decimal.Decimal `gorm:"column:total_with_vat;type:decimal(18,4);not null;default:0"`

	PreviousYearAmountBeforeDiscount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PreviousYearAmountAfterDiscount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PreviousYearAmountWithVAT        decimal.Decimal `gorm:"column:previous_year_amount_with_vat;type:decimal(18,4);not null;default:0"`
	YearOverYearChangeAmount         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	YearOverYearChangePercent        decimal.Decimal `gorm:"type:decimal(9,2);not null;default:0"`

	Status                 fee.FeeStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	BookkeepingCalculation *string       `gorm:"type:jsonb"`
	RetainerCalculation    *string       `gorm:"type:jsonb"`

	DueDate    *time.Time `gorm:"type:date"`
	Notes      string     `gorm:"type:text;not null;default:''"`
	CustomText string     `gorm:"type:text;not null;default:''"`
	SentAt     *time.Time

	PaymentDate         *time.Time      `gorm:"type:date"`
	PartialPaidAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	HasDeviation        bool            `gorm:"not null;default:false"`
	DeviationAlertLevel *fee.AlertLevel `gorm:"type:varchar(10)"`

	CalculationMetadata fee.CalculationMetadata `gorm:"type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (FeeCalculationModel) TableName() string {
	return "fee_calculations"
}

// ToDomain converts the persistence model to a domain FeeCalculation
func (m *FeeCalculationModel) ToDomain() (*fee.FeeCalculation, error) {
	bookkeeping, err := decodeSubCalculation(m.BookkeepingCalculation)
	if err != nil {
		return nil, err
	}
	retainer, err := decodeSubCalculation(m.RetainerCalculation)
	if err != nil {
		return nil, err
	}

	return &fee.FeeCalculation{
		TenantAggregateRoot:       tenantRoot(m.AggregateModel, m.TenantID, m.CreatedBy),
		ClientID:                  m.ClientID,
		TaxYear:                   m.TaxYear,
		BaseAmount:                m.BaseAmount,
		ApplyInflationIndex:       m.ApplyInflationIndex,
		InflationRatePercent:      m.InflationRatePercent,
		IndexManualAdjustment:     m.IndexManualAdjustment,
		RealAdjustment:            m.RealAdjustment,
		RealAdjustmentReason:      m.RealAdjustmentReason,
		ClientRequestedAdjustment: m.ClientRequestedAdjustment,
		ClientAdjustmentNote:      m.ClientAdjustmentNote,
		InflationAdjustment:       m.InflationAdjustment,
		DiscountPercentage:        m.DiscountPercentage,
		DiscountAmount:            m.DiscountAmount,
		AmountAfterDiscount:       m.AmountAfterDiscount,
		FinalAmountBeforeVAT:      m.FinalAmountBeforeVAT,
		VATAmount:                 m.VATAmount,
		TotalWithVAT:              m.TotalWithVAT,
		PreviousYear: fee.PreviousYearSnapshot{
			AmountBeforeDiscount: m.PreviousYearAmountBeforeDiscount,
			AmountAfterDiscount:  m.PreviousYearAmountAfterDiscount,
			AmountWithVAT:        m.PreviousYearAmountWithVAT,
		},
		YearOverYearChangeAmount:  m.YearOverYearChangeAmount,
		YearOverYearChangePercent: m.YearOverYearChangePercent,
		Status:                    m.Status,
		Bookkeeping:               bookkeeping,
		Retainer:                  retainer,
		DueDate:                   m.DueDate,
		Notes:                     m.Notes,
		CustomText:                m.CustomText,
		SentAt:                    m.SentAt,
		PaymentDate:               m.PaymentDate,
		PartialPaidAmount:         m.PartialPaidAmount,
		HasDeviation:              m.HasDeviation,
		DeviationAlertLevel:       m.DeviationAlertLevel,
		Metadata:                  m.CalculationMetadata,
	}, nil
}

// FeeCalculationModelFromDomain creates a persistence model from a domain FeeCalculation
func FeeCalculationModelFromDomain(f *fee.FeeCalculation) (*FeeCalculationModel, error) {
	bookkeeping, err := encodeSubCalculation(f.Bookkeeping)
	if err != nil {
		return nil, err
	}
	retainer, err := encodeSubCalculation(f.Retainer)
	if err != nil {
		return nil, err
	}

	m := &FeeCalculationModel{
		TenantID:                         f.TenantID,
		CreatedBy:                        f.CreatedBy,
		ClientID:                         f.ClientID,
		TaxYear:                          f.TaxYear,
		BaseAmount:                       f.BaseAmount,
		ApplyInflationIndex:              f.ApplyInflationIndex,
		InflationRatePercent:             f.InflationRatePercent,
		IndexManualAdjustment:            f.IndexManualAdjustment,
		RealAdjustment:                   f.RealAdjustment,
		RealAdjustmentReason:             f.RealAdjustmentReason,
		ClientRequestedAdjustment:        f.ClientRequestedAdjustment,
		ClientAdjustmentNote:             f.ClientAdjustmentNote,
		InflationAdjustment:              f.InflationAdjustment,
		DiscountPercentage:               f.DiscountPercentage,
		DiscountAmount:                   f.DiscountAmount,
		AmountAfterDiscount:              f.AmountAfterDiscount,
		FinalAmountBeforeVAT:             f.FinalAmountBeforeVAT,
		VATAmount:                        f.VATAmount,
		TotalWithVAT:                     f.TotalWithVAT,
		PreviousYearAmountBeforeDiscount: f.PreviousYear.AmountBeforeDiscount,
		PreviousYearAmountAfterDiscount:  f.PreviousYear.AmountAfterDiscount,
		PreviousYearAmountWithVAT:        f.PreviousYear.AmountWithVAT,
		YearOverYearChangeAmount:         f.YearOverYearChangeAmount,
		YearOverYearChangePercent:        f.YearOverYearChangePercent,
		Status:                           f.Status,
		BookkeepingCalculation:           bookkeeping,
		RetainerCalculation:              retainer,
		DueDate:                          f.DueDate,
		Notes:                            f.Notes,
		CustomText:                       f.CustomText,
		SentAt:                           f.SentAt,
		PaymentDate:                      f.PaymentDate,
		PartialPaidAmount:                f.PartialPaidAmount,
		HasDeviation:                     f.HasDeviation,
		DeviationAlertLevel:              f.DeviationAlertLevel,
		CalculationMetadata:              f.Metadata,
	}
	m.FromDomainAggregateRoot(f.BaseAggregateRoot)
	return m, nil
}

func encodeSubCalculation(s *fee.SubCalculation) (*string, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	str := string(raw)
	return &str, nil
}

func decodeSubCalculation(raw *string) (*fee.SubCalculation, error) {
	if raw == nil || *raw == "" || *raw == "null" {
		return nil, nil
	}
	var s fee.SubCalculation
	if err := json.Unmarshal([]byte(*raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
