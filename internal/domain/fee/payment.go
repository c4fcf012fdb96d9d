package fee

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeActualPayment is the aggregate type name used in events
const AggregateTypeActualPayment = "ActualPayment"

// PaymentMethod is how the client paid
type PaymentMethod string

const (
	PaymentMethodBankTransfer           PaymentMethod = "bank_transfer"
	PaymentMethodCreditCardSingle       PaymentMethod = "credit_card_single"
	PaymentMethodCreditCardInstallments PaymentMethod = "credit_card_installments"
	PaymentMethodChecks                 PaymentMethod = "checks"
	PaymentMethodCash                   PaymentMethod = "cash"
	PaymentMethodOther                  PaymentMethod = "other"
)

// IsValid checks if the payment method is a known value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCreditCardSingle, PaymentMethodCreditCardInstallments,
		PaymentMethodChecks, PaymentMethodCash, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation
func (m PaymentMethod) String() string {
	return string(m)
}

// InstallmentStatus is the state of one installment
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
)

// AttachmentIDs is a JSONB list of attachment storage keys
type AttachmentIDs []string

// Value implements driver.Valuer for JSONB storage
func (a AttachmentIDs) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB storage
func (a *AttachmentIDs) Scan(value interface{}) error {
	if value == nil {
		*a = AttachmentIDs{}
		return nil
	}
	return scanJSON(value, a)
}

// PaymentInstallment is one scheduled part of a payment
type PaymentInstallment struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	ActualPaymentID   uuid.UUID
	InstallmentNumber int
	InstallmentDate   time.Time
	InstallmentAmount decimal.Decimal
	Status            InstallmentStatus
	CreatedAt         time.Time
}

// InstallmentInput is a caller-supplied installment
type InstallmentInput struct {
	Number int
	Date   time.Time
	Amount decimal.Decimal
}

// ValidateInstallments requires numbering to run 1..n in order with positive amounts.
// Numbers are never reassigned.
func ValidateInstallments(inputs []InstallmentInput) error {
	for i, in := range inputs {
		if in.Number != i+1 {
			return NewValidationError(CodeInstallmentSequence, "installments",
				fmt.Sprintf("installment %d has number %d, expected %d", i+1, in.Number, i+1))
		}
		if !in.Amount.IsPositive() {
			return NewValidationError(CodeValidation, "installments",
				fmt.Sprintf("installment %d amount must be positive", in.Number))
		}
		if in.Date.IsZero() {
			return NewValidationError(CodeValidation, "installments",
				fmt.Sprintf("installment %d date is required", in.Number))
		}
	}
	return nil
}

// ActualPayment is what a client actually paid against a fee calculation
type ActualPayment struct {
	shared.TenantAggregateRoot
	ClientID         uuid.UUID
	FeeCalculationID uuid.UUID
	AmountPaid       decimal.Decimal
	AmountBeforeVAT  decimal.Decimal
	AmountVAT        decimal.Decimal
	AmountWithVAT    decimal.Decimal
	PaymentDate      time.Time
	PaymentMethod    PaymentMethod
	PaymentReference string
	Notes            string
	AttachmentIDs    AttachmentIDs
	Installments     []PaymentInstallment
}

// NewActualPayment creates a payment with its VAT breakdown derived from amountPaid
func NewActualPayment(
	tenantID, clientID, feeCalculationID, createdBy uuid.UUID,
	amountPaid decimal.Decimal,
	paymentDate time.Time,
	method PaymentMethod,
	vatRate decimal.Decimal,
) (*ActualPayment, error) {
	if feeCalculationID == uuid.Nil {
		return nil, NewValidationError(CodeValidation, "fee_calculation_id", "fee calculation ID cannot be empty")
	}
	if !amountPaid.IsPositive() {
		return nil, NewValidationError(CodeValidation, "amount_paid", "amount paid must be positive")
	}
	if paymentDate.IsZero() {
		return nil, NewValidationError(CodeValidation, "payment_date", "payment date is required")
	}
	if !method.IsValid() {
		return nil, NewValidationError(CodeValidation, "payment_method", "invalid payment method")
	}

	p := &ActualPayment{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		ClientID:            clientID,
		FeeCalculationID:    feeCalculationID,
		PaymentDate:         paymentDate,
		PaymentMethod:       method,
		AttachmentIDs:       AttachmentIDs{},
	}
	p.applyAmount(amountPaid, vatRate)
	return p, nil
}

func (p *ActualPayment) applyAmount(amountPaid, vatRate decimal.Decimal) {
	breakdown := ReverseVAT(amountPaid, vatRate)
	p.AmountPaid = amountPaid
	p.AmountBeforeVAT = breakdown.BeforeVAT
	p.AmountVAT = breakdown.VAT
	p.AmountWithVAT = breakdown.WithVAT
}

// BuildInstallments turns validated inputs into pending installments
func (p *ActualPayment) BuildInstallments(inputs []InstallmentInput) []PaymentInstallment {
	installments := make([]PaymentInstallment, 0, len(inputs))
	now := time.Now()
	for _, in := range inputs {
		installments = append(installments, PaymentInstallment{
			ID:                uuid.New(),
			TenantID:          p.TenantID,
			ActualPaymentID:   p.ID,
			InstallmentNumber: in.Number,
			InstallmentDate:   in.Date,
			InstallmentAmount: in.Amount,
			Status:            InstallmentStatusPending,
			CreatedAt:         now,
		})
	}
	return installments
}

// PaymentChanges are the optional fields of a payment update
type PaymentChanges struct {
	AmountPaid       *decimal.Decimal
	PaymentDate      *time.Time
	PaymentMethod    *PaymentMethod
	PaymentReference *string
	Notes            *string
	AttachmentIDs    *[]string
}

// Validate checks the provided fields
func (c PaymentChanges) Validate() error {
	if c.AmountPaid != nil && !c.AmountPaid.IsPositive() {
		return NewValidationError(CodeValidation, "amount_paid", "amount paid must be positive")
	}
	if c.PaymentMethod != nil && !c.PaymentMethod.IsValid() {
		return NewValidationError(CodeValidation, "payment_method", "invalid payment method")
	}
	if c.PaymentDate != nil && c.PaymentDate.IsZero() {
		return NewValidationError(CodeValidation, "payment_date", "payment date cannot be empty")
	}
	return nil
}

// Apply updates the payment and reports whether the amount changed.
// A changed amount recomputes the VAT breakdown.
func (p *ActualPayment) Apply(c PaymentChanges, vatRate decimal.Decimal) (amountChanged bool, changed map[string]any) {
	changed = make(map[string]any)
	if c.AmountPaid != nil && !c.AmountPaid.Equal(p.AmountPaid) {
		p.applyAmount(*c.AmountPaid, vatRate)
		amountChanged = true
		changed["amount_paid"] = c.AmountPaid.String()
	}
	if c.PaymentDate != nil && !c.PaymentDate.Equal(p.PaymentDate) {
		p.PaymentDate = *c.PaymentDate
		changed["payment_date"] = c.PaymentDate.Format("2006-01-02")
	}
	if c.PaymentMethod != nil && *c.PaymentMethod != p.PaymentMethod {
		p.PaymentMethod = *c.PaymentMethod
		changed["payment_method"] = c.PaymentMethod.String()
	}
	if c.PaymentReference != nil && *c.PaymentReference != p.PaymentReference {
		p.PaymentReference = *c.PaymentReference
		changed["payment_reference"] = *c.PaymentReference
	}
	if c.Notes != nil && *c.Notes != p.Notes {
		p.Notes = *c.Notes
		changed["notes"] = *c.Notes
	}
	if c.AttachmentIDs != nil {
		p.AttachmentIDs = append(AttachmentIDs{}, (*c.AttachmentIDs)...)
		changed["attachment_ids"] = *c.AttachmentIDs
	}
	if len(changed) > 0 {
		p.IncrementVersion()
	}
	return amountChanged, changed
}
