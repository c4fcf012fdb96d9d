package fee

import (
	"sort"
	"strings"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// AlertThresholds control when a collection row raises an alert
type AlertThresholds struct {
	UnopenedAfter    time.Duration
	NoSelectionAfter time.Duration
	AbandonedAfter   time.Duration
}

// DefaultAlertThresholds returns the 7-day unopened, 14-day no-selection and
// 24-hour abandoned thresholds
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		UnopenedAfter:    7 * day,
		NoSelectionAfter: 14 * day,
		AbandonedAfter:   24 * time.Hour,
	}
}

// CollectionTotals are the portfolio sums read from storage
type CollectionTotals struct {
	TotalExpected  decimal.Decimal
	TotalReceived  decimal.Decimal
	ClientsSent    int64
	ClientsPaid    int64
	ClientsPending int64
}

// AlertCounts are the portfolio-level alert counters
type AlertCounts struct {
	Unopened    int64 `json:"unopened"`
	NoSelection int64 `json:"no_selection"`
	Abandoned   int64 `json:"abandoned"`
	Disputes    int64 `json:"disputes"`
}

// CollectionKPIs summarize collection progress for a tenant
type CollectionKPIs struct {
	TotalExpected  decimal.Decimal `json:"total_expected"`
	TotalReceived  decimal.Decimal `json:"total_received"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	CollectionRate decimal.Decimal `json:"collection_rate"`
	ClientsSent    int64           `json:"clients_sent"`
	ClientsPaid    int64           `json:"clients_paid"`
	ClientsPending int64           `json:"clients_pending"`
	Alerts         AlertCounts     `json:"alerts"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// BuildKPIs derives pending and collection rate from the stored totals.
// The rate is zero when nothing is expected.
func BuildKPIs(totals CollectionTotals, alerts AlertCounts, now time.Time) CollectionKPIs {
	rate := decimal.Zero
	if totals.TotalExpected.IsPositive() {
		rate = totals.TotalReceived.Div(totals.TotalExpected).Mul(hundred).Round(2)
	}
	return CollectionKPIs{
		TotalExpected:  totals.TotalExpected,
		TotalReceived:  totals.TotalReceived,
		TotalPending:   totals.TotalExpected.Sub(totals.TotalReceived),
		CollectionRate: rate,
		ClientsSent:    totals.ClientsSent,
		ClientsPaid:    totals.ClientsPaid,
		ClientsPending: totals.ClientsPending,
		Alerts:         alerts,
		GeneratedAt:    now,
	}
}

// CollectionRecord is a fee calculation joined with its client, letter,
// payment and dispute data
type CollectionRecord struct {
	FeeCalculationID        uuid.UUID        `json:"fee_calculation_id"`
	ClientID                uuid.UUID        `json:"client_id"`
	ClientName              string           `json:"client_name"`
	TaxID                   string           `json:"tax_id"`
	GroupID                 *uuid.UUID       `json:"group_id,omitempty"`
	TaxYear                 int              `json:"tax_year"`
	Status                  FeeStatus        `json:"status"`
	FinalAmountBeforeVAT    decimal.Decimal  `json:"final_amount_before_vat"`
	TotalWithVAT            decimal.Decimal  `json:"total_with_vat"`
	SentAt                  *time.Time       `json:"sent_at,omitempty"`
	OpenedAt                *time.Time       `json:"opened_at,omitempty"`
	PaymentMethodSelected   *PaymentMethod   `json:"payment_method_selected,omitempty"`
	PaymentMethodSelectedAt *time.Time       `json:"payment_method_selected_at,omitempty"`
	AmountPaid              *decimal.Decimal `json:"amount_paid,omitempty"`
	PaymentMethod           *PaymentMethod   `json:"payment_method,omitempty"`
	PaymentDate             *time.Time       `json:"payment_date,omitempty"`
	HasDeviation            bool             `json:"has_deviation"`
	DeviationAlertLevel     *AlertLevel      `json:"deviation_alert_level,omitempty"`
	HasOpenDispute          bool             `json:"has_open_dispute"`
}

// RowAlerts are the alert flags of one dashboard row
type RowAlerts struct {
	NotOpened   bool `json:"not_opened"`
	NoSelection bool `json:"no_selection"`
	Abandoned   bool `json:"abandoned"`
	Disputed    bool `json:"disputed"`
}

// Any reports whether at least one alert is raised
func (a RowAlerts) Any() bool {
	return a.NotOpened || a.NoSelection || a.Abandoned || a.Disputed
}

// CollectionRow is a dashboard row with its derived flags
type CollectionRow struct {
	CollectionRecord
	DaysSinceSent *int          `json:"days_since_sent,omitempty"`
	ElapsedBucket ElapsedBucket `json:"elapsed_bucket,omitempty"`
	Alerts        RowAlerts     `json:"alerts"`
}

// StatusBucket groups rows by collection progress
type StatusBucket string

const (
	BucketSentNotOpened     StatusBucket = "sent_not_opened"
	BucketOpenedNotSelected StatusBucket = "opened_not_selected"
	BucketSelectedNotPaid   StatusBucket = "selected_not_paid"
	BucketPartialPaid       StatusBucket = "partial_paid"
	BucketPaid              StatusBucket = "paid"
	BucketDisputed          StatusBucket = "disputed"
)

// IsValid checks if the bucket is a known value
func (b StatusBucket) IsValid() bool {
	switch b {
	case BucketSentNotOpened, BucketOpenedNotSelected, BucketSelectedNotPaid,
		BucketPartialPaid, BucketPaid, BucketDisputed:
		return true
	}
	return false
}

// ElapsedBucket groups rows by days since the letter was sent
type ElapsedBucket string

const (
	Elapsed0To7    ElapsedBucket = "0-7"
	Elapsed8To14   ElapsedBucket = "8-14"
	Elapsed15To30  ElapsedBucket = "15-30"
	Elapsed31To60  ElapsedBucket = "31-60"
	ElapsedOver60  ElapsedBucket = "60+"
	elapsedUnknown ElapsedBucket = ""
)

// IsValid checks if the bucket is a known value
func (b ElapsedBucket) IsValid() bool {
	switch b {
	case Elapsed0To7, Elapsed8To14, Elapsed15To30, Elapsed31To60, ElapsedOver60:
		return true
	}
	return false
}

// ElapsedBucketFor maps whole days to a bucket
func ElapsedBucketFor(days int) ElapsedBucket {
	switch {
	case days <= 7:
		return Elapsed0To7
	case days <= 14:
		return Elapsed8To14
	case days <= 30:
		return Elapsed15To30
	case days <= 60:
		return Elapsed31To60
	default:
		return ElapsedOver60
	}
}

func unpaid(s FeeStatus) bool {
	return s == FeeStatusSent || s == FeeStatusOverdue
}

// EvaluateAlerts computes a row's alert flags. Paid rows raise only dispute alerts.
func EvaluateAlerts(r CollectionRecord, now time.Time, th AlertThresholds) RowAlerts {
	alerts := RowAlerts{Disputed: r.HasOpenDispute}
	if r.Status == FeeStatusPaid || !r.Status.IsCollectible() {
		return alerts
	}
	if r.SentAt != nil {
		sinceSent := now.Sub(*r.SentAt)
		alerts.NotOpened = r.OpenedAt == nil && sinceSent > th.UnopenedAfter
		alerts.NoSelection = r.OpenedAt != nil && r.PaymentMethodSelected == nil && sinceSent > th.NoSelectionAfter
	}
	if r.PaymentMethodSelected != nil && r.PaymentMethodSelectedAt != nil && r.AmountPaid == nil {
		alerts.Abandoned = now.Sub(*r.PaymentMethodSelectedAt) >= th.AbandonedAfter
	}
	return alerts
}

// MatchesBucket reports whether a record belongs to the status bucket
func (r CollectionRecord) MatchesBucket(b StatusBucket) bool {
	switch b {
	case BucketSentNotOpened:
		return unpaid(r.Status) && r.SentAt != nil && r.OpenedAt == nil
	case BucketOpenedNotSelected:
		return unpaid(r.Status) && r.OpenedAt != nil && r.PaymentMethodSelected == nil
	case BucketSelectedNotPaid:
		return unpaid(r.Status) && r.PaymentMethodSelected != nil
	case BucketPartialPaid:
		return r.Status == FeeStatusPartialPaid
	case BucketPaid:
		return r.Status == FeeStatusPaid
	case BucketDisputed:
		return r.HasOpenDispute
	}
	return false
}

// NewCollectionRow derives the elapsed days, bucket and alerts of a record
func NewCollectionRow(r CollectionRecord, now time.Time, th AlertThresholds) CollectionRow {
	row := CollectionRow{CollectionRecord: r, Alerts: EvaluateAlerts(r, now, th)}
	if r.SentAt != nil {
		days := int(now.Sub(*r.SentAt) / day)
		if days < 0 {
			days = 0
		}
		row.DaysSinceSent = &days
		row.ElapsedBucket = ElapsedBucketFor(days)
	}
	return row
}

// DashboardFilter narrows the dashboard rows
type DashboardFilter struct {
	TaxYear       int
	StatusBucket  StatusBucket
	PaymentMethod PaymentMethod
	Elapsed       ElapsedBucket
	Search        string
	AlertsOnly    bool
}

// Matches reports whether a row passes every set criterion
func (f DashboardFilter) Matches(row CollectionRow) bool {
	if f.TaxYear != 0 && row.TaxYear != f.TaxYear {
		return false
	}
	if f.StatusBucket != "" && !row.MatchesBucket(f.StatusBucket) {
		return false
	}
	if f.PaymentMethod != "" {
		selected := row.PaymentMethodSelected != nil && *row.PaymentMethodSelected == f.PaymentMethod
		paid := row.PaymentMethod != nil && *row.PaymentMethod == f.PaymentMethod
		if !selected && !paid {
			return false
		}
	}
	if f.Elapsed != elapsedUnknown && row.ElapsedBucket != f.Elapsed {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(strings.TrimSpace(f.Search))
		if !strings.Contains(strings.ToLower(row.ClientName), q) && !strings.Contains(row.TaxID, q) {
			return false
		}
	}
	if f.AlertsOnly && !row.Alerts.Any() {
		return false
	}
	return true
}

// DashboardSortField is a sortable dashboard column
type DashboardSortField string

const (
	SortByClientName    DashboardSortField = "client_name"
	SortByTotal         DashboardSortField = "total"
	SortBySentAt        DashboardSortField = "sent_at"
	SortByDaysSinceSent DashboardSortField = "days_since_sent"
)

// DashboardSort orders the dashboard rows
type DashboardSort struct {
	Field DashboardSortField
	Desc  bool
}

// NameComparer compares display names, returning <0, 0 or >0
type NameComparer func(a, b string) int

// SelectRows derives, filters and sorts the dashboard rows without paging.
// Rows missing the sort key go last regardless of direction.
func SelectRows(
	records []CollectionRecord,
	filter DashboardFilter,
	order DashboardSort,
	now time.Time,
	th AlertThresholds,
	compareNames NameComparer,
) []CollectionRow {
	if compareNames == nil {
		compareNames = func(a, b string) int { return strings.Compare(strings.ToLower(a), strings.ToLower(b)) }
	}

	rows := make([]CollectionRow, 0, len(records))
	for _, r := range records {
		row := NewCollectionRow(r, now, th)
		if filter.Matches(row) {
			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return lessRow(rows[i], rows[j], order, compareNames)
	})
	return rows
}

// BuildDashboard selects the rows and returns the requested page
func BuildDashboard(
	records []CollectionRecord,
	filter DashboardFilter,
	order DashboardSort,
	page shared.Filter,
	now time.Time,
	th AlertThresholds,
	compareNames NameComparer,
) shared.Paginated[CollectionRow] {
	page = page.Normalize()
	rows := SelectRows(records, filter, order, now, th, compareNames)

	total := int64(len(rows))
	start := page.Offset()
	if start > len(rows) {
		start = len(rows)
	}
	end := start + page.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	return shared.NewPaginated(rows[start:end], total, page.Page, page.PageSize)
}

func lessRow(a, b CollectionRow, order DashboardSort, compareNames NameComparer) bool {
	var cmp int
	switch order.Field {
	case SortByTotal:
		cmp = a.TotalWithVAT.Cmp(b.TotalWithVAT)
	case SortBySentAt:
		if missing, less := compareMissing(a.SentAt == nil, b.SentAt == nil); missing {
			return less
		}
		cmp = a.SentAt.Compare(*b.SentAt)
	case SortByDaysSinceSent:
		if missing, less := compareMissing(a.DaysSinceSent == nil, b.DaysSinceSent == nil); missing {
			return less
		}
		cmp = *a.DaysSinceSent - *b.DaysSinceSent
	default:
		cmp = compareNames(a.ClientName, b.ClientName)
	}
	if order.Desc {
		return cmp > 0
	}
	return cmp < 0
}

// compareMissing orders absent values last. It returns decided=false when both are present.
func compareMissing(aMissing, bMissing bool) (decided bool, less bool) {
	switch {
	case aMissing && bMissing:
		return true, false
	case aMissing:
		return true, false
	case bMissing:
		return true, true
	}
	return false, false
}
