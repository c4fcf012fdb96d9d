package fee

import (
	"context"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/storage"
	"github.com/feeledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultAttachmentURLTTL = 15 * time.Minute

var (
	// ErrPaymentExists is returned when a fee calculation already has a payment
	ErrPaymentExists = shared.NewDomainError(shared.ErrAlreadyExists.Code, "a payment is already recorded for this fee calculation")
	// ErrPaymentInProgress is returned when a request with the same idempotency key is still running
	ErrPaymentInProgress = shared.NewDomainError(shared.ErrConcurrencyConflict.Code, "a payment with this idempotency key is still being recorded")
)

// AttachmentURLSigner issues time-limited download URLs for stored objects
type AttachmentURLSigner interface {
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// PaymentService records actual payments, classifies their deviation from the
// expected fee and keeps the fee's payment state in step
type PaymentService struct {
	serviceBase
	fees       fee.FeeCalculationRepository
	payments   fee.PaymentRepository
	deviations fee.DeviationRepository
	classifier fee.DeviationClassifier
	vatRate    decimal.Decimal

	signer    AttachmentURLSigner
	signerTTL time.Duration

	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	fees fee.FeeCalculationRepository,
	payments fee.PaymentRepository,
	deviations fee.DeviationRepository,
	classifier fee.DeviationClassifier,
	vatRate decimal.Decimal,
	cache shared.Cache,
	logger *zap.Logger,
) *PaymentService {
	if !vatRate.IsPositive() {
		vatRate = fee.DefaultVATRate
	}
	return &PaymentService{
		serviceBase: newServiceBase(cache, logger),
		fees:        fees,
		payments:    payments,
		deviations:  deviations,
		classifier:  classifier,
		vatRate:     vatRate,
	}
}

// SetAttachmentSigner enables download URLs for payment attachments
func (s *PaymentService) SetAttachmentSigner(signer AttachmentURLSigner, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultAttachmentURLTTL
	}
	s.signer = signer
	s.signerTTL = ttl
}

// SetIdempotencyStore enables Idempotency-Key deduplication of RecordPayment
func (s *PaymentService) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	if !cfg.Enabled {
		s.idempotency = nil
		return
	}
	if cfg.TTL <= 0 {
		cfg.TTL = shared.DefaultIdempotencyConfig().TTL
	}
	s.idempotency = store
	s.idempotencyTTL = cfg.TTL
}

// RecordPayment stores a payment, classifies it, marks the fee paid and stores
// the installments. The writes run as a saga: a failure after the payment is
// stored undoes the completed steps in reverse order. Classification is best
// effort and never triggers a rollback. A repeated IdempotencyKey returns the
// payment stored by the first request instead of recording another.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "record_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrFeeCalculationID, req.FeeCalculationID.String(),
		telemetry.SpanAttrAmount, req.AmountPaid.String(),
	)

	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	if err := fee.ValidateInstallments(req.Installments); err != nil {
		return nil, err
	}

	calc, err := s.loadFee(ctx, req.TenantID, req.FeeCalculationID)
	if err != nil {
		return nil, err
	}
	if err := calc.CanAcceptPayment(); err != nil {
		return nil, err
	}

	key, fresh := s.claimRequest(ctx, req)
	if !fresh {
		return s.replayPayment(ctx, req.TenantID, calc.ID)
	}
	recorded := false
	defer func() {
		if !recorded {
			s.releaseRequest(ctx, key)
		}
	}()

	existing, err := s.payments.FindByFeeCalculation(ctx, req.TenantID, calc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing payment: %w", err)
	}
	if existing != nil {
		return nil, ErrPaymentExists
	}

	payment, err := fee.NewActualPayment(req.TenantID, calc.ClientID, calc.ID, req.UserID,
		req.AmountPaid, req.PaymentDate, req.PaymentMethod, s.vatRate)
	if err != nil {
		return nil, err
	}
	payment.PaymentReference = req.PaymentReference
	payment.Notes = req.Notes
	if req.AttachmentIDs != nil {
		payment.AttachmentIDs = append(fee.AttachmentIDs{}, req.AttachmentIDs...)
	}
	installments := payment.BuildInstallments(req.Installments)

	tx := newSaga("record_payment", s.logger)
	method := payment.PaymentMethod.String()

	if err := s.payments.Create(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordPayment(ctx, req.TenantID, "record", method, telemetry.OutcomeFailed)
		return nil, err
	}
	tx.done("delete_payment", func(ctx context.Context) error {
		return s.payments.DeleteForTenant(ctx, req.TenantID, payment.ID)
	})

	deviation := s.classifyAndStore(ctx, payment, tx)

	snapshot := calc.Snapshot()
	if err := calc.ApplyPaymentOutcome(payment.PaymentDate, deviation); err != nil {
		return nil, s.abort(ctx, tx, req.TenantID, method, err)
	}
	if err := s.fees.SaveWithLock(ctx, calc); err != nil {
		return nil, s.abort(ctx, tx, req.TenantID, method, fmt.Errorf("failed to update fee calculation: %w", err))
	}
	tx.done("restore_fee", func(ctx context.Context) error {
		calc.Restore(snapshot)
		return s.fees.SaveWithLock(ctx, calc)
	})

	if len(installments) > 0 {
		if err := s.payments.CreateInstallments(ctx, installments); err != nil {
			return nil, s.abort(ctx, tx, req.TenantID, method, fmt.Errorf("failed to store installments: %w", err))
		}
	}
	payment.Installments = installments

	s.metrics.RecordPayment(ctx, req.TenantID, "record", method, telemetry.OutcomeCreated)
	if deviation != nil {
		telemetry.SetAttributes(span, telemetry.SpanAttrAlertLevel, deviation.AlertLevel.String())
	}
	s.publish(ctx, fee.NewPaymentRecordedEvent(payment, deviation, req.UserID))
	s.invalidateKPIs(ctx, req.TenantID)

	s.logger.Info("Payment recorded",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("fee_calculation_id", calc.ID.String()),
		zap.Bool("classified", deviation != nil),
		zap.Int("installments", len(installments)),
	)

	recorded = true
	resp := ToPaymentResponse(payment, deviation)
	return &resp, nil
}

// claimRequest claims the request's idempotency key. It returns an empty key
// and true when there is nothing to claim or the store is unreachable.
func (s *PaymentService) claimRequest(ctx context.Context, req RecordPaymentRequest) (string, bool) {
	if s.idempotency == nil || req.IdempotencyKey == "" {
		return "", true
	}
	key := fmt.Sprintf("payment:%s:%s:%s", req.TenantID, req.FeeCalculationID, req.IdempotencyKey)
	claimed, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyTTL)
	if err != nil {
		s.logger.Warn("Idempotency store unavailable, recording without deduplication",
			zap.String("fee_calculation_id", req.FeeCalculationID.String()),
			zap.Error(err),
		)
		return "", true
	}
	return key, claimed
}

func (s *PaymentService) releaseRequest(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

// replayPayment answers a repeated request with the payment the first one stored
func (s *PaymentService) replayPayment(ctx context.Context, tenantID, feeID uuid.UUID) (*PaymentResponse, error) {
	existing, err := s.payments.FindByFeeCalculation(ctx, tenantID, feeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load replayed payment: %w", err)
	}
	if existing == nil {
		return nil, ErrPaymentInProgress
	}
	resp, err := s.GetPayment(ctx, tenantID, existing.ID)
	if err != nil {
		return nil, err
	}
	resp.Replayed = true
	s.logger.Info("Payment request replayed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("payment_id", existing.ID.String()),
	)
	return resp, nil
}

// abort rolls back the saga and returns cause; compensation failures are joined to it
func (s *PaymentService) abort(ctx context.Context, tx *saga, tenantID uuid.UUID, method string, cause error) error {
	s.metrics.RecordPayment(ctx, tenantID, "record", method, telemetry.OutcomeCompensated)
	s.metrics.RecordCompensation(ctx, tenantID, "record_payment")
	if err := tx.rollback(ctx); err != nil {
		return fmt.Errorf("%w (rollback incomplete: %v)", cause, err)
	}
	return cause
}

// classifyAndStore asks the classifier about the payment and stores the result.
// It returns nil when classification is unavailable or the deviation could not
// be stored; neither is fatal.
func (s *PaymentService) classifyAndStore(ctx context.Context, payment *fee.ActualPayment, tx *saga) *fee.PaymentDeviation {
	deviation := s.classify(ctx, payment)
	if deviation == nil {
		return nil
	}
	if err := s.deviations.Create(ctx, deviation); err != nil {
		s.logger.Warn("Failed to store payment deviation",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		return nil
	}
	if tx != nil {
		tx.done("delete_deviation", func(ctx context.Context) error {
			return s.deviations.DeleteByPayment(ctx, payment.TenantID, payment.ID)
		})
	}
	s.metrics.RecordDeviation(ctx, payment.TenantID, deviation.AlertLevel.String())
	return deviation
}

func (s *PaymentService) classify(ctx context.Context, payment *fee.ActualPayment) *fee.PaymentDeviation {
	c, err := s.classifier.Classify(ctx, payment.TenantID, payment.FeeCalculationID, payment.AmountPaid)
	if err == nil && c == nil {
		err = fee.ErrClassificationUnavailable
	}
	if err != nil {
		s.metrics.RecordClassificationFailure(ctx, payment.TenantID)
		s.logger.Warn("Payment deviation classification unavailable",
			zap.String("payment_id", payment.ID.String()),
			zap.String("fee_calculation_id", payment.FeeCalculationID.String()),
			zap.Error(err),
		)
		return nil
	}
	return fee.NewPaymentDeviation(payment, c)
}

// UpdatePayment applies changes to a payment. A changed amount recomputes the
// VAT breakdown, replaces the deviation and refreshes the fee's deviation flags.
func (s *PaymentService) UpdatePayment(ctx context.Context, req UpdatePaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "update_payment")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, req.PaymentID.String())

	if err := req.Changes.Validate(); err != nil {
		return nil, err
	}
	payment, err := s.loadPayment(ctx, req.TenantID, req.PaymentID)
	if err != nil {
		return nil, err
	}

	amountChanged, changed := payment.Apply(req.Changes, s.vatRate)
	if len(changed) == 0 {
		deviation, err := s.deviations.FindByPayment(ctx, req.TenantID, payment.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load payment deviation: %w", err)
		}
		resp := ToPaymentResponse(payment, deviation)
		return &resp, nil
	}

	method := payment.PaymentMethod.String()
	if err := s.payments.Update(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordPayment(ctx, req.TenantID, "update", method, telemetry.OutcomeFailed)
		return nil, err
	}

	var deviation *fee.PaymentDeviation
	if amountChanged {
		if err := s.deviations.DeleteByPayment(ctx, req.TenantID, payment.ID); err != nil {
			s.logger.Warn("Failed to delete previous payment deviation",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
		}
		deviation = s.classifyAndStore(ctx, payment, nil)
	} else {
		deviation, err = s.deviations.FindByPayment(ctx, req.TenantID, payment.ID)
		if err != nil {
			s.logger.Warn("Failed to load payment deviation",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
		}
	}

	_, dateChanged := changed["payment_date"]
	if amountChanged || dateChanged {
		if err := s.refreshFee(ctx, payment, amountChanged, deviation); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	s.metrics.RecordPayment(ctx, req.TenantID, "update", method, telemetry.OutcomeUpdated)
	s.publish(ctx, fee.NewPaymentUpdatedEvent(payment, req.UserID, amountChanged, changed))
	s.invalidateKPIs(ctx, req.TenantID)

	resp := ToPaymentResponse(payment, deviation)
	return &resp, nil
}

// refreshFee copies the payment date and, after an amount change, the new
// deviation flags onto the paid fee
func (s *PaymentService) refreshFee(ctx context.Context, payment *fee.ActualPayment, amountChanged bool, deviation *fee.PaymentDeviation) error {
	calc, err := s.loadFee(ctx, payment.TenantID, payment.FeeCalculationID)
	if err != nil {
		return err
	}
	if amountChanged {
		calc.ApplyDeviation(deviation)
	}
	if calc.Status == fee.FeeStatusPaid {
		date := payment.PaymentDate
		calc.PaymentDate = &date
	}
	calc.IncrementVersion()
	if err := s.fees.SaveWithLock(ctx, calc); err != nil {
		return fmt.Errorf("failed to update fee calculation: %w", err)
	}
	return nil
}

// DeletePayment removes a payment and its installments and returns the fee to sent
func (s *PaymentService) DeletePayment(ctx context.Context, tenantID, userID, paymentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "delete_payment")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, paymentID.String())

	payment, err := s.loadPayment(ctx, tenantID, paymentID)
	if err != nil {
		return err
	}
	method := payment.PaymentMethod.String()

	if err := s.deviations.DeleteByPayment(ctx, tenantID, payment.ID); err != nil {
		s.logger.Warn("Failed to delete payment deviation",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
	if err := s.payments.DeleteForTenant(ctx, tenantID, payment.ID); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordPayment(ctx, tenantID, "delete", method, telemetry.OutcomeFailed)
		return err
	}

	calc, err := s.fees.FindByIDForTenant(ctx, tenantID, payment.FeeCalculationID)
	if err != nil {
		return fmt.Errorf("failed to load fee calculation: %w", err)
	}
	if calc != nil {
		calc.ResetAfterPaymentDeletion()
		if err := s.fees.SaveWithLock(ctx, calc); err != nil {
			telemetry.RecordError(span, err)
			return fmt.Errorf("failed to reset fee calculation: %w", err)
		}
	} else {
		s.logger.Warn("Deleted payment has no fee calculation",
			zap.String("payment_id", payment.ID.String()),
			zap.String("fee_calculation_id", payment.FeeCalculationID.String()),
		)
	}

	s.metrics.RecordPayment(ctx, tenantID, "delete", method, telemetry.OutcomeUpdated)
	s.publish(ctx, fee.NewPaymentDeletedEvent(payment, userID))
	s.invalidateKPIs(ctx, tenantID)
	return nil
}

// GetPayment returns a payment with its installments, its deviation and, when
// attachment storage is configured, download URLs for its attachments
func (s *PaymentService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.loadPayment(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	deviation, err := s.deviations.FindByPayment(ctx, tenantID, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment deviation: %w", err)
	}
	resp := ToPaymentResponse(payment, deviation)
	resp.Attachments = s.attachmentLinks(ctx, payment)
	return &resp, nil
}

func (s *PaymentService) attachmentLinks(ctx context.Context, payment *fee.ActualPayment) []AttachmentLink {
	if s.signer == nil || len(payment.AttachmentIDs) == 0 {
		return nil
	}
	links := make([]AttachmentLink, 0, len(payment.AttachmentIDs))
	for _, id := range payment.AttachmentIDs {
		url, expires, err := s.signer.GenerateDownloadURL(ctx, storage.AttachmentKey(payment.TenantID, id), s.signerTTL)
		if err != nil {
			s.logger.Warn("Failed to sign attachment URL",
				zap.String("payment_id", payment.ID.String()),
				zap.String("attachment_id", id),
				zap.Error(err),
			)
			continue
		}
		links = append(links, AttachmentLink{ID: id, URL: url, ExpiresAt: expires})
	}
	return links
}

func (s *PaymentService) loadFee(ctx context.Context, tenantID, id uuid.UUID) (*fee.FeeCalculation, error) {
	calc, err := s.fees.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee calculation: %w", err)
	}
	if calc == nil {
		return nil, shared.ErrNotFound
	}
	return calc, nil
}

func (s *PaymentService) loadPayment(ctx context.Context, tenantID, id uuid.UUID) (*fee.ActualPayment, error) {
	payment, err := s.payments.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, shared.ErrNotFound
	}
	return payment, nil
}
