package fee

import (
	"context"
	"fmt"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DisputeService opens, resolves and lists payment disputes
type DisputeService struct {
	serviceBase
	disputes fee.DisputeRepository
	fees     fee.FeeCalculationRepository
}

// NewDisputeService creates a new DisputeService
func NewDisputeService(disputes fee.DisputeRepository, fees fee.FeeCalculationRepository, cache shared.Cache, logger *zap.Logger) *DisputeService {
	return &DisputeService{
		serviceBase: newServiceBase(cache, logger),
		disputes:    disputes,
		fees:        fees,
	}
}

// Open records a client's dispute against a fee calculation
func (s *DisputeService) Open(ctx context.Context, req OpenDisputeRequest) (*DisputeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "open_dispute")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrFeeCalculationID, req.FeeCalculationID.String())

	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	if req.ClaimedAmount != nil && req.ClaimedAmount.IsNegative() {
		return nil, fee.NewValidationError(fee.CodeValidation, "claimed_amount", "claimed amount cannot be negative")
	}

	calc, err := s.fees.FindByIDForTenant(ctx, req.TenantID, req.FeeCalculationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee calculation: %w", err)
	}
	if calc == nil {
		return nil, shared.ErrNotFound
	}

	dispute, err := fee.NewPaymentDispute(req.TenantID, calc.ClientID, calc.ID, req.UserID, req.Reason)
	if err != nil {
		return nil, err
	}
	dispute.ClaimedAmount = req.ClaimedAmount
	dispute.ClaimedPaymentDate = req.ClaimedPaymentDate

	if err := s.disputes.Save(ctx, dispute); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, dispute)
	s.invalidateKPIs(ctx, req.TenantID)
	resp := ToDisputeResponse(dispute)
	return &resp, nil
}

// Resolve closes an open dispute with an outcome
func (s *DisputeService) Resolve(ctx context.Context, req ResolveDisputeRequest) (*DisputeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "resolve_dispute")
	defer span.End()

	dispute, err := s.load(ctx, req.TenantID, req.DisputeID)
	if err != nil {
		return nil, err
	}
	if err := dispute.Resolve(req.Status, req.Notes, req.UserID, s.now()); err != nil {
		return nil, err
	}
	if err := s.disputes.Save(ctx, dispute); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, dispute)
	s.invalidateKPIs(ctx, req.TenantID)
	resp := ToDisputeResponse(dispute)
	return &resp, nil
}

// Get returns a dispute by ID
func (s *DisputeService) Get(ctx context.Context, tenantID, id uuid.UUID) (*DisputeResponse, error) {
	dispute, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToDisputeResponse(dispute)
	return &resp, nil
}

// List returns a page of disputes
func (s *DisputeService) List(ctx context.Context, tenantID uuid.UUID, filter fee.DisputeFilter) (shared.Paginated[DisputeResponse], error) {
	filter.Filter = filter.Filter.Normalize()
	disputes, total, err := s.disputes.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[DisputeResponse]{}, fmt.Errorf("failed to list disputes: %w", err)
	}
	items := make([]DisputeResponse, len(disputes))
	for i := range disputes {
		items[i] = ToDisputeResponse(&disputes[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

func (s *DisputeService) load(ctx context.Context, tenantID, id uuid.UUID) (*fee.PaymentDispute, error) {
	dispute, err := s.disputes.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load dispute: %w", err)
	}
	if dispute == nil {
		return nil, shared.ErrNotFound
	}
	return dispute, nil
}
