package fee

import (
	"time"

	"github.com/google/uuid"
)

// LetterTracking records what happened to a fee letter after it was sent
type LetterTracking struct {
	ID                      uuid.UUID
	TenantID                uuid.UUID
	FeeCalculationID        uuid.UUID
	ClientID                uuid.UUID
	SentAt                  *time.Time
	OpenedAt                *time.Time
	OpenCount               int
	PaymentMethodSelected   *PaymentMethod
	PaymentMethodSelectedAt *time.Time
	UpdatedAt               time.Time
}

// NewLetterTracking starts tracking for a fee calculation
func NewLetterTracking(tenantID, feeCalculationID, clientID uuid.UUID) *LetterTracking {
	return &LetterTracking{
		ID:               uuid.New(),
		TenantID:         tenantID,
		FeeCalculationID: feeCalculationID,
		ClientID:         clientID,
		UpdatedAt:        time.Now(),
	}
}

// MarkSent records the send time. Re-sending moves the timestamp forward.
func (l *LetterTracking) MarkSent(at time.Time) {
	l.SentAt = &at
	l.UpdatedAt = time.Now()
}

// MarkOpened counts an open and keeps the first open time
func (l *LetterTracking) MarkOpened(at time.Time) {
	if l.OpenedAt == nil {
		l.OpenedAt = &at
	}
	l.OpenCount++
	l.UpdatedAt = time.Now()
}

// SelectPaymentMethod records the method the client chose
func (l *LetterTracking) SelectPaymentMethod(method PaymentMethod, at time.Time) error {
	if !method.IsValid() {
		return NewValidationError(CodeValidation, "payment_method", "invalid payment method")
	}
	if l.OpenedAt == nil {
		l.OpenedAt = &at
		l.OpenCount++
	}
	l.PaymentMethodSelected = &method
	l.PaymentMethodSelectedAt = &at
	l.UpdatedAt = time.Now()
	return nil
}
