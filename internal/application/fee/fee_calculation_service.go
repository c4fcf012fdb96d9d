package fee

import (
	"context"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FeeCalculationService creates, recalculates and tracks fee calculations
type FeeCalculationService struct {
	serviceBase
	fees       fee.FeeCalculationRepository
	calculator *fee.Calculator
}

// NewFeeCalculationService creates a new FeeCalculationService
func NewFeeCalculationService(
	fees fee.FeeCalculationRepository,
	calculator *fee.Calculator,
	cache shared.Cache,
	logger *zap.Logger,
) *FeeCalculationService {
	if calculator == nil {
		calculator = fee.NewCalculator(fee.DefaultVATRate)
	}
	return &FeeCalculationService{
		serviceBase: newServiceBase(cache, logger),
		fees:        fees,
		calculator:  calculator,
	}
}

// CreateOrUpdate saves the fee of a client for a tax year.
// Amounts are recalculated only when an amount input changed; the row is written
// with a single upsert keyed on (tenant, client, tax year).
func (s *FeeCalculationService) CreateOrUpdate(ctx context.Context, req CreateOrUpdateFeeRequest) (*SaveFeeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "create_or_update_fee_calculation")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrClientID, req.ClientID.String(),
		telemetry.SpanAttrTaxYear, req.TaxYear,
	)

	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	if err := req.Params.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	existing, err := s.fees.FindByClientYear(ctx, req.TenantID, req.ClientID, req.TaxYear)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load fee calculation: %w", err)
	}

	now := s.now()
	var (
		calc         *fee.FeeCalculation
		before       *fee.FeeCalculation
		recalculated bool
	)
	if existing == nil {
		calc, err = fee.NewFeeCalculation(req.TenantID, req.ClientID, req.TaxYear, req.UserID)
		if err != nil {
			return nil, err
		}
		if err := calc.Recalculate(s.calculator, req.Params, now); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		recalculated = true
	} else {
		calc = existing
		snapshot := existing.Snapshot()
		before = &snapshot
		if calc.HasAmountChanges(req.Params) {
			if err := calc.Recalculate(s.calculator, req.Params, now); err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
			recalculated = true
		} else {
			calc.StampUnchanged(now)
		}
	}
	calc.ApplyDetails(req.Params)

	if err := s.fees.Upsert(ctx, calc); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordCalculation(ctx, req.TenantID, telemetry.OutcomeFailed)
		return nil, err
	}

	created := calc.IsNew()
	telemetry.SetAttributes(span, telemetry.SpanAttrRecalculated, recalculated, telemetry.SpanAttrFeeCalculationID, calc.ID.String())

	var changed map[string]any
	switch {
	case created:
		s.metrics.RecordCalculation(ctx, req.TenantID, telemetry.OutcomeCreated)
	default:
		outcome := telemetry.OutcomeUpdated
		if !recalculated {
			outcome = telemetry.OutcomeUnchanged
		}
		s.metrics.RecordCalculation(ctx, req.TenantID, outcome)
		changed = changedFields(before, calc)
	}
	calc.RecordSaved(req.UserID, recalculated, changed)
	s.publishEvents(ctx, calc)
	s.invalidateKPIs(ctx, req.TenantID)

	s.logger.Info("Fee calculation saved",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("fee_calculation_id", calc.ID.String()),
		zap.Int("tax_year", calc.TaxYear),
		zap.Bool("created", created),
		zap.Bool("recalculated", recalculated),
	)

	return &SaveFeeResult{
		Calculation:  ToFeeCalculationResponse(calc),
		Created:      created,
		Recalculated: recalculated,
	}, nil
}

// Preview runs the calculator on params without saving anything
func (s *FeeCalculationService) Preview(ctx context.Context, tenantID uuid.UUID, params fee.FeeParams) (*FeeCalculationResponse, error) {
	_, span := telemetry.StartServiceSpan(ctx, spanService, "preview_fee_calculation")
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, err
	}
	calc := &fee.FeeCalculation{Status: fee.FeeStatusDraft}
	calc.TenantID = tenantID
	if err := calc.Recalculate(s.calculator, params, s.now()); err != nil {
		return nil, err
	}
	calc.ApplyDetails(params)
	resp := ToFeeCalculationResponse(calc)
	return &resp, nil
}

// Get returns a fee calculation by ID
func (s *FeeCalculationService) Get(ctx context.Context, tenantID, id uuid.UUID) (*FeeCalculationResponse, error) {
	calc, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToFeeCalculationResponse(calc)
	return &resp, nil
}

// List returns a page of fee calculations
func (s *FeeCalculationService) List(ctx context.Context, tenantID uuid.UUID, filter fee.FeeCalculationFilter) (shared.Paginated[FeeCalculationResponse], error) {
	filter.Filter = filter.Filter.Normalize()
	calcs, total, err := s.fees.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[FeeCalculationResponse]{}, fmt.Errorf("failed to list fee calculations: %w", err)
	}
	items := make([]FeeCalculationResponse, len(calcs))
	for i := range calcs {
		items[i] = ToFeeCalculationResponse(&calcs[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// MarkPaid marks a fee fully paid without a recorded payment.
// A nil paymentDate uses the current time.
func (s *FeeCalculationService) MarkPaid(ctx context.Context, tenantID, userID, id uuid.UUID, paymentDate *time.Time) (*FeeCalculationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "mark_fee_paid")
	defer span.End()

	calc, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	at := s.dateOrNow(paymentDate)
	if err := calc.MarkPaid(at, userID); err != nil {
		return nil, err
	}
	if err := s.fees.SaveWithLock(ctx, calc); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, calc)
	s.invalidateKPIs(ctx, tenantID)
	resp := ToFeeCalculationResponse(calc)
	return &resp, nil
}

// MarkPartialPayment records a partial amount received on a fee
func (s *FeeCalculationService) MarkPartialPayment(ctx context.Context, tenantID, userID, id uuid.UUID, amount decimal.Decimal, paymentDate *time.Time) (*FeeCalculationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "mark_partial_payment")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrAmount, amount.String())

	calc, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	at := s.dateOrNow(paymentDate)
	if err := calc.MarkPartialPayment(amount, at, userID); err != nil {
		return nil, err
	}
	if err := s.fees.SaveWithLock(ctx, calc); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, calc)
	s.invalidateKPIs(ctx, tenantID)
	resp := ToFeeCalculationResponse(calc)
	return &resp, nil
}

// MarkSent records that the fee letter went out. A nil sentAt uses the current time.
func (s *FeeCalculationService) MarkSent(ctx context.Context, tenantID, userID, id uuid.UUID, sentAt *time.Time) (*FeeCalculationResponse, error) {
	calc, err := s.markSent(ctx, tenantID, userID, id, s.dateOrNow(sentAt))
	if err != nil {
		return nil, err
	}
	resp := ToFeeCalculationResponse(calc)
	return &resp, nil
}

func (s *FeeCalculationService) markSent(ctx context.Context, tenantID, userID, id uuid.UUID, at time.Time) (*fee.FeeCalculation, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "mark_fee_sent")
	defer span.End()

	calc, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := calc.MarkSent(at, userID); err != nil {
		return nil, err
	}
	if err := s.fees.SaveWithLock(ctx, calc); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, calc)
	s.invalidateKPIs(ctx, tenantID)
	return calc, nil
}

func (s *FeeCalculationService) load(ctx context.Context, tenantID, id uuid.UUID) (*fee.FeeCalculation, error) {
	calc, err := s.fees.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee calculation: %w", err)
	}
	if calc == nil {
		return nil, shared.ErrNotFound
	}
	return calc, nil
}

func (s *FeeCalculationService) dateOrNow(t *time.Time) time.Time {
	if t != nil && !t.IsZero() {
		return *t
	}
	return s.now()
}

// changedFields lists the fields that differ between the stored row and the saved one
func changedFields(before, after *fee.FeeCalculation) map[string]any {
	changed := make(map[string]any)
	if before == nil {
		return changed
	}
	amounts := []struct {
		name     string
		old, new decimal.Decimal
	}{
		{"base_amount", before.BaseAmount, after.BaseAmount},
		{"inflation_rate_percent", before.InflationRatePercent, after.InflationRatePercent},
		{"index_manual_adjustment", before.IndexManualAdjustment, after.IndexManualAdjustment},
		{"real_adjustment", before.RealAdjustment, after.RealAdjustment},
		{"client_requested_adjustment", before.ClientRequestedAdjustment, after.ClientRequestedAdjustment},
		{"final_amount_before_vat", before.FinalAmountBeforeVAT, after.FinalAmountBeforeVAT},
		{"total_with_vat", before.TotalWithVAT, after.TotalWithVAT},
	}
	for _, a := range amounts {
		if !a.old.Equal(a.new) {
			changed[a.name] = map[string]string{"old": a.old.String(), "new": a.new.String()}
		}
	}
	if before.ApplyInflationIndex != after.ApplyInflationIndex {
		changed["apply_inflation_index"] = after.ApplyInflationIndex
	}
	if before.Notes != after.Notes {
		changed["notes"] = after.Notes
	}
	if before.CustomText != after.CustomText {
		changed["custom_text"] = after.CustomText
	}
	if !sameDate(before.DueDate, after.DueDate) {
		if after.DueDate != nil {
			changed["due_date"] = after.DueDate.Format("2006-01-02")
		} else {
			changed["due_date"] = nil
		}
	}
	return changed
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
