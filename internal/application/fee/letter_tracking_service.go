package fee

import (
	"context"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LetterTrackingService records what happens to a fee letter: sent, opened and
// the payment method the client picked
type LetterTrackingService struct {
	serviceBase
	tracking fee.LetterTrackingRepository
	fees     *FeeCalculationService
}

// NewLetterTrackingService creates a new LetterTrackingService. Sending goes
// through fees so the fee status and its audit event follow the letter.
func NewLetterTrackingService(tracking fee.LetterTrackingRepository, fees *FeeCalculationService, cache shared.Cache, logger *zap.Logger) *LetterTrackingService {
	return &LetterTrackingService{
		serviceBase: newServiceBase(cache, logger),
		tracking:    tracking,
		fees:        fees,
	}
}

// RecordSent marks the fee sent and stamps the letter's send time
func (s *LetterTrackingService) RecordSent(ctx context.Context, tenantID, userID, feeCalculationID uuid.UUID, at *time.Time) (*LetterTrackingResponse, error) {
	sentAt := s.timeOrNow(at)
	calc, err := s.fees.markSent(ctx, tenantID, userID, feeCalculationID, sentAt)
	if err != nil {
		return nil, err
	}

	tracking, err := s.findOrStart(ctx, tenantID, calc.ID, calc.ClientID)
	if err != nil {
		return nil, err
	}
	tracking.MarkSent(sentAt)
	return s.save(ctx, tracking)
}

// RecordOpened counts an open of the letter
func (s *LetterTrackingService) RecordOpened(ctx context.Context, tenantID, feeCalculationID uuid.UUID, at *time.Time) (*LetterTrackingResponse, error) {
	tracking, err := s.loadOrStart(ctx, tenantID, feeCalculationID)
	if err != nil {
		return nil, err
	}
	tracking.MarkOpened(s.timeOrNow(at))
	return s.save(ctx, tracking)
}

// RecordMethodSelected stores the payment method the client chose from the letter
func (s *LetterTrackingService) RecordMethodSelected(ctx context.Context, tenantID, feeCalculationID uuid.UUID, method fee.PaymentMethod, at *time.Time) (*LetterTrackingResponse, error) {
	tracking, err := s.loadOrStart(ctx, tenantID, feeCalculationID)
	if err != nil {
		return nil, err
	}
	if err := tracking.SelectPaymentMethod(method, s.timeOrNow(at)); err != nil {
		return nil, err
	}
	return s.save(ctx, tracking)
}

// Get returns the tracking of a fee letter
func (s *LetterTrackingService) Get(ctx context.Context, tenantID, feeCalculationID uuid.UUID) (*LetterTrackingResponse, error) {
	tracking, err := s.tracking.FindByFeeCalculation(ctx, tenantID, feeCalculationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load letter tracking: %w", err)
	}
	if tracking == nil {
		return nil, shared.ErrNotFound
	}
	resp := ToLetterTrackingResponse(tracking)
	return &resp, nil
}

// loadOrStart returns the stored tracking or starts one for an existing fee
func (s *LetterTrackingService) loadOrStart(ctx context.Context, tenantID, feeCalculationID uuid.UUID) (*fee.LetterTracking, error) {
	tracking, err := s.tracking.FindByFeeCalculation(ctx, tenantID, feeCalculationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load letter tracking: %w", err)
	}
	if tracking != nil {
		return tracking, nil
	}
	calc, err := s.fees.load(ctx, tenantID, feeCalculationID)
	if err != nil {
		return nil, err
	}
	return fee.NewLetterTracking(tenantID, calc.ID, calc.ClientID), nil
}

func (s *LetterTrackingService) findOrStart(ctx context.Context, tenantID, feeCalculationID, clientID uuid.UUID) (*fee.LetterTracking, error) {
	tracking, err := s.tracking.FindByFeeCalculation(ctx, tenantID, feeCalculationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load letter tracking: %w", err)
	}
	if tracking == nil {
		tracking = fee.NewLetterTracking(tenantID, feeCalculationID, clientID)
	}
	return tracking, nil
}

func (s *LetterTrackingService) save(ctx context.Context, tracking *fee.LetterTracking) (*LetterTrackingResponse, error) {
	if err := s.tracking.Save(ctx, tracking); err != nil {
		return nil, err
	}
	s.invalidateKPIs(ctx, tracking.TenantID)
	resp := ToLetterTrackingResponse(tracking)
	return &resp, nil
}

func (s *LetterTrackingService) timeOrNow(t *time.Time) time.Time {
	if t != nil && !t.IsZero() {
		return *t
	}
	return s.now()
}
