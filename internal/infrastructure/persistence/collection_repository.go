package persistence

import (
	"context"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	excludedStatuses    = []fee.FeeStatus{fee.FeeStatusDraft, fee.FeeStatusCancelled}
	awaitingStatuses    = []fee.FeeStatus{fee.FeeStatusSent, fee.FeeStatusOverdue, fee.FeeStatusPartialPaid}
	windowColumn        = "COALESCE(f.sent_at, f.created_at)"
	letterSentAtColumn  = "COALESCE(l.sent_at, f.sent_at)"
	openDisputeExpr     = "EXISTS (SELECT 1 FROM payment_disputes d WHERE d.fee_calculation_id = f.id AND d.status = 'open')"
	paymentMissingExpr  = "NOT EXISTS (SELECT 1 FROM actual_payments p WHERE p.fee_calculation_id = f.id)"
	collectionJoinTrack = "LEFT JOIN letter_tracking l ON l.fee_calculation_id = f.id"
)

// GormCollectionRepository implements fee.CollectionReadRepository using GORM.
// Each counter is its own query.
type GormCollectionRepository struct {
	db *gorm.DB
}

// NewGormCollectionRepository creates a new GormCollectionRepository
func NewGormCollectionRepository(db *gorm.DB) *GormCollectionRepository {
	return &GormCollectionRepository{db: db}
}

// collectible selects the tenant's sent-or-later fee calculations inside the window
func (r *GormCollectionRepository) collectible(ctx context.Context, tenantID uuid.UUID, window shared.DateRange) *gorm.DB {
	q := r.db.WithContext(ctx).
		Table("fee_calculations AS f").
		Where("f.tenant_id = ?", tenantID).
		Where("f.status NOT IN ?", excludedStatuses)
	if !window.From.IsZero() {
		q = q.Where(windowColumn+" >= ?", window.From)
	}
	if !window.To.IsZero() {
		q = q.Where(windowColumn+" <= ?", window.To)
	}
	return q
}

type totalsRow struct {
	TotalExpected decimal.Decimal
	TotalReceived decimal.Decimal
	ClientsSent   int64
	ClientsPaid   int64
}

// Totals sums expected and received amounts and counts clients
func (r *GormCollectionRepository) Totals(ctx context.Context, tenantID uuid.UUID, window shared.DateRange) (fee.CollectionTotals, error) {
	var row totalsRow
	err := r.collectible(ctx, tenantID, window).
		Select(
			"COALESCE(SUM(f.total_with_vat), 0) AS total_expected, "+
				"COALESCE(SUM(CASE WHEN f.status = ? THEN f.total_with_vat ELSE 0 END), 0) AS total_received, "+
				"COUNT(DISTINCT f.client_id) AS clients_sent, "+
				"COUNT(DISTINCT CASE WHEN f.status = ? THEN f.client_id END) AS clients_paid",
			fee.FeeStatusPaid, fee.FeeStatusPaid,
		).
		Scan(&row).Error
	if err != nil {
		return fee.CollectionTotals{}, fee.NewPersistenceError("collection totals", err)
	}
	return fee.CollectionTotals{
		TotalExpected:  row.TotalExpected,
		TotalReceived:  row.TotalReceived,
		ClientsSent:    row.ClientsSent,
		ClientsPaid:    row.ClientsPaid,
		ClientsPending: row.ClientsSent - row.ClientsPaid,
	}, nil
}

func (r *GormCollectionRepository) count(q *gorm.DB, op string) (int64, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fee.NewPersistenceError(op, err)
	}
	return n, nil
}

// CountUnopened counts letters sent before sentBefore that were never opened
func (r *GormCollectionRepository) CountUnopened(ctx context.Context, tenantID uuid.UUID, sentBefore time.Time, window shared.DateRange) (int64, error) {
	q := r.collectible(ctx, tenantID, window).
		Joins(collectionJoinTrack).
		Where("f.status IN ?", awaitingStatuses).
		Where(letterSentAtColumn+" < ?", sentBefore).
		Where("l.opened_at IS NULL")
	return r.count(q, "count unopened letters")
}

// CountNoSelection counts opened letters sent before sentBefore without a chosen method
func (r *GormCollectionRepository) CountNoSelection(ctx context.Context, tenantID uuid.UUID, sentBefore time.Time, window shared.DateRange) (int64, error) {
	q := r.collectible(ctx, tenantID, window).
		Joins(collectionJoinTrack).
		Where("f.status IN ?", awaitingStatuses).
		Where(letterSentAtColumn+" < ?", sentBefore).
		Where("l.opened_at IS NOT NULL AND l.payment_method_selected IS NULL")
	return r.count(q, "count letters without selection")
}

// CountAbandoned counts letters whose payment method was chosen at or before
// selectedBefore with no payment recorded since
func (r *GormCollectionRepository) CountAbandoned(ctx context.Context, tenantID uuid.UUID, selectedBefore time.Time, window shared.DateRange) (int64, error) {
	q := r.collectible(ctx, tenantID, window).
		Joins(collectionJoinTrack).
		Where("f.status IN ?", awaitingStatuses).
		Where("l.payment_method_selected IS NOT NULL AND l.payment_method_selected_at <= ?", selectedBefore).
		Where(paymentMissingExpr)
	return r.count(q, "count abandoned payments")
}

// CountOpenDisputes counts the tenant's unresolved disputes
func (r *GormCollectionRepository) CountOpenDisputes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	q := r.db.WithContext(ctx).
		Table("payment_disputes").
		Scopes(tenantScope(tenantID)).
		Where("status = ?", fee.DisputeStatusOpen)
	return r.count(q, "count open disputes")
}

type collectionRecordRow struct {
	FeeCalculationID        uuid.UUID
	ClientID                uuid.UUID
	ClientName              string
	TaxID                   string
	GroupID                 *uuid.UUID
	TaxYear                 int
	Status                  string
	FinalAmountBeforeVAT    decimal.Decimal `gorm:"column:final_amount_before_vat"`
	TotalWithVAT            decimal.Decimal `gorm:"column:total_with_vat"`
	FeeSentAt               *time.Time
	LetterSentAt            *time.Time
	OpenedAt                *time.Time
	PaymentMethodSelected   *string
	PaymentMethodSelectedAt *time.Time
	AmountPaid              decimal.NullDecimal
	PaymentMethod           *string
	PaymentDate             *time.Time
	HasDeviation            bool
	DeviationAlertLevel     *string
	HasOpenDispute          bool
}

// ListRecords joins every collectible fee of a tax year with its client, letter,
// payment and dispute state. A zero taxYear lists all years.
func (r *GormCollectionRepository) ListRecords(ctx context.Context, tenantID uuid.UUID, taxYear int) ([]fee.CollectionRecord, error) {
	q := r.collectible(ctx, tenantID, shared.DateRange{}).
		Select(
			"f.id AS fee_calculation_id, f.client_id, c.name AS client_name, c.tax_id, c.group_id, " +
				"f.tax_year, f.status, f.final_amount_before_vat, f.total_with_vat, " +
				"f.sent_at AS fee_sent_at, l.sent_at AS letter_sent_at, l.opened_at, " +
				"l.payment_method_selected, l.payment_method_selected_at, " +
				"p.amount_paid, p.payment_method, p.payment_date, " +
				"f.has_deviation, f.deviation_alert_level, " +
				openDisputeExpr + " AS has_open_dispute",
		).
		Joins("JOIN clients c ON c.id = f.client_id").
		Joins(collectionJoinTrack).
		Joins("LEFT JOIN actual_payments p ON p.fee_calculation_id = f.id").
		Order("c.name ASC, f.id ASC")
	if taxYear != 0 {
		q = q.Where("f.tax_year = ?", taxYear)
	}

	var rows []collectionRecordRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fee.NewPersistenceError("list collection records", err)
	}

	out := make([]fee.CollectionRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toRecord()
	}
	return out, nil
}

func (row collectionRecordRow) toRecord() fee.CollectionRecord {
	rec := fee.CollectionRecord{
		FeeCalculationID:        row.FeeCalculationID,
		ClientID:                row.ClientID,
		ClientName:              row.ClientName,
		TaxID:                   row.TaxID,
		GroupID:                 row.GroupID,
		TaxYear:                 row.TaxYear,
		Status:                  fee.FeeStatus(row.Status),
		FinalAmountBeforeVAT:    row.FinalAmountBeforeVAT,
		TotalWithVAT:            row.TotalWithVAT,
		SentAt:                  row.LetterSentAt,
		OpenedAt:                row.OpenedAt,
		PaymentMethodSelectedAt: row.PaymentMethodSelectedAt,
		PaymentDate:             row.PaymentDate,
		HasDeviation:            row.HasDeviation,
		HasOpenDispute:          row.HasOpenDispute,
	}
	if rec.SentAt == nil {
		rec.SentAt = row.FeeSentAt
	}
	if row.PaymentMethodSelected != nil {
		m := fee.PaymentMethod(*row.PaymentMethodSelected)
		rec.PaymentMethodSelected = &m
	}
	if row.AmountPaid.Valid {
		amount := row.AmountPaid.Decimal
		rec.AmountPaid = &amount
	}
	if row.PaymentMethod != nil {
		m := fee.PaymentMethod(*row.PaymentMethod)
		rec.PaymentMethod = &m
	}
	if row.DeviationAlertLevel != nil {
		level := fee.AlertLevel(*row.DeviationAlertLevel)
		rec.DeviationAlertLevel = &level
	}
	return rec
}

var _ fee.CollectionReadRepository = (*GormCollectionRepository)(nil)
