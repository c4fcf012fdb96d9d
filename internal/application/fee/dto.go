package fee

import (
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Fee Calculation DTOs ====================

// CreateOrUpdateFeeRequest saves the fee of one client for one tax year
type CreateOrUpdateFeeRequest struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	ClientID uuid.UUID
	TaxYear  int
	Params   fee.FeeParams
}

// SaveFeeResult is the outcome of CreateOrUpdate
type SaveFeeResult struct {
	Calculation  FeeCalculationResponse `json:"calculation"`
	Created      bool                   `json:"created"`
	Recalculated bool                   `json:"recalculated"`
}

// SubCalculationResponse is a bookkeeping or retainer track
type SubCalculationResponse struct {
	MonthlyAmount             decimal.Decimal `json:"monthly_amount"`
	BaseAmount                decimal.Decimal `json:"base_amount"`
	ApplyInflationIndex       bool            `json:"apply_inflation_index"`
	InflationRatePercent      decimal.Decimal `json:"inflation_rate_percent"`
	IndexManualAdjustment     decimal.Decimal `json:"index_manual_adjustment"`
	RealAdjustment            decimal.Decimal `json:"real_adjustment"`
	RealAdjustmentReason      string          `json:"real_adjustment_reason,omitempty"`
	ClientRequestedAdjustment decimal.Decimal `json:"client_requested_adjustment"`
	InflationAdjustment       decimal.Decimal `json:"inflation_adjustment"`
	FinalAmount               decimal.Decimal `json:"final_amount"`
	VATAmount                 decimal.Decimal `json:"vat_amount"`
	TotalWithVAT              decimal.Decimal `json:"total_with_vat"`
}

// FeeCalculationResponse is the API view of a fee calculation
type FeeCalculationResponse struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	ClientID uuid.UUID `json:"client_id"`
	TaxYear  int       `json:"tax_year"`

	BaseAmount                decimal.Decimal `json:"base_amount"`
	ApplyInflationIndex       bool            `json:"apply_inflation_index"`
	InflationRatePercent      decimal.Decimal `json:"inflation_rate_percent"`
	IndexManualAdjustment     decimal.Decimal `json:"index_manual_adjustment"`
	RealAdjustment            decimal.Decimal `json:"real_adjustment"`
	RealAdjustmentReason      string          `json:"real_adjustment_reason,omitempty"`
	ClientRequestedAdjustment decimal.Decimal `json:"client_requested_adjustment"`
	ClientAdjustmentNote      string          `json:"client_adjustment_note,omitempty"`

	InflationAdjustment  decimal.Decimal `json:"inflation_adjustment"`
	DiscountPercentage   decimal.Decimal `json:"discount_percentage"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	AmountAfterDiscount  decimal.Decimal `json:"amount_after_discount"`
	FinalAmountBeforeVAT decimal.Decimal `json:"final_amount_before_vat"`
	VATAmount            decimal.Decimal `json:"vat_amount"`
	TotalWithVAT         decimal.Decimal `json:"total_with_vat"`

	PreviousYear              fee.PreviousYearSnapshot `json:"previous_year"`
	YearOverYearChangeAmount  decimal.Decimal          `json:"year_over_year_change_amount"`
	YearOverYearChangePercent decimal.Decimal          `json:"year_over_year_change_percent"`

	Status      fee.FeeStatus           `json:"status"`
	Bookkeeping *SubCalculationResponse `json:"bookkeeping,omitempty"`
	Retainer    *SubCalculationResponse `json:"retainer,omitempty"`

	DueDate    *time.Time `json:"due_date,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CustomText string     `json:"custom_text,omitempty"`
	SentAt     *time.Time `json:"sent_at,omitempty"`

	PaymentDate         *time.Time      `json:"payment_date,omitempty"`
	PartialPaidAmount   decimal.Decimal `json:"partial_paid_amount"`
	HasDeviation        bool            `json:"has_deviation"`
	DeviationAlertLevel *fee.AlertLevel `json:"deviation_alert_level,omitempty"`

	Metadata  fee.CalculationMetadata `json:"metadata"`
	CreatedBy *uuid.UUID              `json:"created_by,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
	Version   int                     `json:"version"`
}

// ToFeeCalculationResponse converts the domain aggregate
func ToFeeCalculationResponse(f *fee.FeeCalculation) FeeCalculationResponse {
	return FeeCalculationResponse{
		ID:                        f.ID,
		TenantID:                  f.TenantID,
		ClientID:                  f.ClientID,
		TaxYear:                   f.TaxYear,
		BaseAmount:                f.BaseAmount,
		ApplyInflationIndex:       f.ApplyInflationIndex,
		InflationRatePercent:      f.InflationRatePercent,
		IndexManualAdjustment:     f.IndexManualAdjustment,
		RealAdjustment:            f.RealAdjustment,
		RealAdjustmentReason:      f.RealAdjustmentReason,
		ClientRequestedAdjustment: f.ClientRequestedAdjustment,
		ClientAdjustmentNote:      f.ClientAdjustmentNote,
		InflationAdjustment:       f.InflationAdjustment,
		DiscountPercentage:        f.DiscountPercentage,
		DiscountAmount:            f.DiscountAmount,
		AmountAfterDiscount:       f.AmountAfterDiscount,
		FinalAmountBeforeVAT:      f.FinalAmountBeforeVAT,
		VATAmount:                 f.VATAmount,
		TotalWithVAT:              f.TotalWithVAT,
		PreviousYear:              f.PreviousYear,
		YearOverYearChangeAmount:  f.YearOverYearChangeAmount,
		YearOverYearChangePercent: f.YearOverYearChangePercent,
		Status:                    f.Status,
		Bookkeeping:               toSubCalculationResponse(f.Bookkeeping),
		Retainer:                  toSubCalculationResponse(f.Retainer),
		DueDate:                   f.DueDate,
		Notes:                     f.Notes,
		CustomText:                f.CustomText,
		SentAt:                    f.SentAt,
		PaymentDate:               f.PaymentDate,
		PartialPaidAmount:         f.PartialPaidAmount,
		HasDeviation:              f.HasDeviation,
		DeviationAlertLevel:       f.DeviationAlertLevel,
		Metadata:                  f.Metadata,
		CreatedBy:                 f.CreatedBy,
		CreatedAt:                 f.CreatedAt,
		UpdatedAt:                 f.UpdatedAt,
		Version:                   f.Version,
	}
}

func toSubCalculationResponse(s *fee.SubCalculation) *SubCalculationResponse {
	if s == nil {
		return nil
	}
	return &SubCalculationResponse{
		MonthlyAmount:             s.MonthlyAmount,
		BaseAmount:                s.BaseAmount,
		ApplyInflationIndex:       s.ApplyInflationIndex,
		InflationRatePercent:      s.InflationRatePercent,
		IndexManualAdjustment:     s.IndexManualAdjustment,
		RealAdjustment:            s.RealAdjustment,
		RealAdjustmentReason:      s.RealAdjustmentReason,
		ClientRequestedAdjustment: s.ClientRequestedAdjustment,
		InflationAdjustment:       s.InflationAdjustment,
		FinalAmount:               s.FinalAmount,
		VATAmount:                 s.VATAmount,
		TotalWithVAT:              s.TotalWithVAT,
	}
}

// ==================== Payment DTOs ====================

// RecordPaymentRequest records what a client paid against a fee calculation
type RecordPaymentRequest struct {
	TenantID         uuid.UUID
	UserID           uuid.UUID
	FeeCalculationID uuid.UUID
	AmountPaid       decimal.Decimal
	PaymentDate      time.Time
	PaymentMethod    fee.PaymentMethod
	PaymentReference string
	Notes            string
	AttachmentIDs    []string
	Installments     []fee.InstallmentInput
	// IdempotencyKey deduplicates retries of the same request; empty disables it
	IdempotencyKey   string
}

// UpdatePaymentRequest changes an existing payment
type UpdatePaymentRequest struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	PaymentID uuid.UUID
	Changes   fee.PaymentChanges
}

// InstallmentResponse is one installment of a payment
type InstallmentResponse struct {
	ID                uuid.UUID             `json:"id"`
	InstallmentNumber int                   `json:"installment_number"`
	InstallmentDate   time.Time             `json:"installment_date"`
	InstallmentAmount decimal.Decimal       `json:"installment_amount"`
	Status            fee.InstallmentStatus `json:"status"`
}

// DeviationResponse is the stored classification of a payment
type DeviationResponse struct {
	ID                      uuid.UUID       `json:"id"`
	ExpectedDiscountPercent decimal.Decimal `json:"expected_discount_percent"`
	ExpectedAmount          decimal.Decimal `json:"expected_amount"`
	ActualAmount            decimal.Decimal `json:"actual_amount"`
	DeviationAmount         decimal.Decimal `json:"deviation_amount"`
	DeviationPercent        decimal.Decimal `json:"deviation_percent"`
	AlertLevel              fee.AlertLevel  `json:"alert_level"`
	AlertMessage            string          `json:"alert_message,omitempty"`
}

// AttachmentLink is a time-limited download URL for a payment attachment
type AttachmentLink struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PaymentResponse is the API view of an actual payment
type PaymentResponse struct {
	ID               uuid.UUID             `json:"id"`
	TenantID         uuid.UUID             `json:"tenant_id"`
	ClientID         uuid.UUID             `json:"client_id"`
	FeeCalculationID uuid.UUID             `json:"fee_calculation_id"`
	AmountPaid       decimal.Decimal       `json:"amount_paid"`
	AmountBeforeVAT  decimal.Decimal       `json:"amount_before_vat"`
	AmountVAT        decimal.Decimal       `json:"amount_vat"`
	AmountWithVAT    decimal.Decimal       `json:"amount_with_vat"`
	PaymentDate      time.Time             `json:"payment_date"`
	PaymentMethod    fee.PaymentMethod     `json:"payment_method"`
	PaymentReference string                `json:"payment_reference,omitempty"`
	Notes            string                `json:"notes,omitempty"`
	AttachmentIDs    []string              `json:"attachment_ids"`
	Installments     []InstallmentResponse `json:"installments"`
	Deviation        *DeviationResponse    `json:"deviation,omitempty"`
	Attachments      []AttachmentLink      `json:"attachments,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	Version          int                   `json:"version"`
	// Replayed is set when an earlier request with the same idempotency key stored the payment
	Replayed         bool                  `json:"-"`
}

// ToPaymentResponse converts a payment and its optional deviation
func ToPaymentResponse(p *fee.ActualPayment, d *fee.PaymentDeviation) PaymentResponse {
	resp := PaymentResponse{
		ID:               p.ID,
		TenantID:         p.TenantID,
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
		AttachmentIDs:    append([]string{}, p.AttachmentIDs...),
		Installments:     make([]InstallmentResponse, 0, len(p.Installments)),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		Version:          p.Version,
	}
	for _, inst := range p.Installments {
		resp.Installments = append(resp.Installments, InstallmentResponse{
			ID:                inst.ID,
			InstallmentNumber: inst.InstallmentNumber,
			InstallmentDate:   inst.InstallmentDate,
			InstallmentAmount: inst.InstallmentAmount,
			Status:            inst.Status,
		})
	}
	if d != nil {
		resp.Deviation = &DeviationResponse{
			ID:                      d.ID,
			ExpectedDiscountPercent: d.ExpectedDiscountPercent,
			ExpectedAmount:          d.ExpectedAmount,
			ActualAmount:            d.ActualAmount,
			DeviationAmount:         d.DeviationAmount,
			DeviationPercent:        d.DeviationPercent,
			AlertLevel:              d.AlertLevel,
			AlertMessage:            d.AlertMessage,
		}
	}
	return resp
}

// ==================== Dispute DTOs ====================

// OpenDisputeRequest opens a dispute against a fee calculation
type OpenDisputeRequest struct {
	TenantID           uuid.UUID
	UserID             uuid.UUID
	FeeCalculationID   uuid.UUID
	Reason             string
	ClaimedAmount      *decimal.Decimal
	ClaimedPaymentDate *time.Time
}

// ResolveDisputeRequest closes a dispute
type ResolveDisputeRequest struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	DisputeID uuid.UUID
	Status    fee.DisputeStatus
	Notes     string
}

// DisputeResponse is the API view of a payment dispute
type DisputeResponse struct {
	ID                 uuid.UUID         `json:"id"`
	ClientID           uuid.UUID         `json:"client_id"`
	FeeCalculationID   uuid.UUID         `json:"fee_calculation_id"`
	Reason             string            `json:"reason"`
	ClaimedAmount      *decimal.Decimal  `json:"claimed_amount,omitempty"`
	ClaimedPaymentDate *time.Time        `json:"claimed_payment_date,omitempty"`
	Status             fee.DisputeStatus `json:"status"`
	ResolutionNotes    string            `json:"resolution_notes,omitempty"`
	ResolvedBy         *uuid.UUID        `json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time        `json:"resolved_at,omitempty"`
	CreatedBy          *uuid.UUID        `json:"created_by,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	Version            int               `json:"version"`
}

// ToDisputeResponse converts the domain aggregate
func ToDisputeResponse(d *fee.PaymentDispute) DisputeResponse {
	return DisputeResponse{
		ID:                 d.ID,
		ClientID:           d.ClientID,
		FeeCalculationID:   d.FeeCalculationID,
		Reason:             d.Reason,
		ClaimedAmount:      d.ClaimedAmount,
		ClaimedPaymentDate: d.ClaimedPaymentDate,
		Status:             d.Status,
		ResolutionNotes:    d.ResolutionNotes,
		ResolvedBy:         d.ResolvedBy,
		ResolvedAt:         d.ResolvedAt,
		CreatedBy:          d.CreatedBy,
		CreatedAt:          d.CreatedAt,
		Version:            d.Version,
	}
}

// ==================== Letter Tracking DTOs ====================

// LetterTrackingResponse is the API view of letter tracking
type LetterTrackingResponse struct {
	FeeCalculationID        uuid.UUID          `json:"fee_calculation_id"`
	ClientID                uuid.UUID          `json:"client_id"`
	SentAt                  *time.Time         `json:"sent_at,omitempty"`
	OpenedAt                *time.Time         `json:"opened_at,omitempty"`
	OpenCount               int                `json:"open_count"`
	PaymentMethodSelected   *fee.PaymentMethod `json:"payment_method_selected,omitempty"`
	PaymentMethodSelectedAt *time.Time         `json:"payment_method_selected_at,omitempty"`
	UpdatedAt               time.Time          `json:"updated_at"`
}

// ToLetterTrackingResponse converts the domain entity
func ToLetterTrackingResponse(l *fee.LetterTracking) LetterTrackingResponse {
	return LetterTrackingResponse{
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
