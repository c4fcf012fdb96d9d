package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type collectionFixture struct {
	tenantID uuid.UUID
	now      time.Time
	unopened uuid.UUID
	noSelect uuid.UUID
	abandon  uuid.UUID
	paid     uuid.UUID
}

func seedClient(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string) *fee.Client {
	t.Helper()
	c := &fee.Client{TenantID: tenantID, Name: name, TaxID: "5140" + name[:1]}
	require.NoError(t, NewGormClientRepository(db).Save(context.Background(), c))
	return c
}

func seedFee(t *testing.T, db *gorm.DB, tenantID, clientID uuid.UUID, status fee.FeeStatus, total int64, sentAt *time.Time) *fee.FeeCalculation {
	t.Helper()
	calc, err := fee.NewFeeCalculation(tenantID, clientID, 2025, uuid.New())
	require.NoError(t, err)
	calc.Status = status
	calc.TotalWithVAT = decimal.NewFromInt(total)
	calc.SentAt = sentAt
	require.NoError(t, db.Create(mustFeeModel(t, calc)).Error)
	return calc
}

func seedCollection(t *testing.T, db *gorm.DB) collectionFixture {
	t.Helper()
	ctx := context.Background()
	tracking := NewGormLetterTrackingRepository(db)
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	days := func(n int) *time.Time {
		v := now.AddDate(0, 0, -n)
		return &v
	}
	fx := collectionFixture{tenantID: uuid.New(), now: now}

	// sent 10 days ago, never opened
	a := seedClient(t, db, fx.tenantID, "Alpha")
	fa := seedFee(t, db, fx.tenantID, a.ID, fee.FeeStatusSent, 1000, days(10))
	la := fee.NewLetterTracking(fx.tenantID, fa.ID, a.ID)
	la.MarkSent(*days(10))
	require.NoError(t, tracking.Save(ctx, la))
	fx.unopened = fa.ID

	// opened, no method chosen, sent 20 days ago
	b := seedClient(t, db, fx.tenantID, "Bravo")
	fb := seedFee(t, db, fx.tenantID, b.ID, fee.FeeStatusSent, 2000, days(20))
	lb := fee.NewLetterTracking(fx.tenantID, fb.ID, b.ID)
	lb.MarkSent(*days(20))
	lb.MarkOpened(*days(19))
	require.NoError(t, tracking.Save(ctx, lb))
	fx.noSelect = fb.ID

	// method chosen 3 days ago, nothing paid
	c := seedClient(t, db, fx.tenantID, "Charlie")
	fc := seedFee(t, db, fx.tenantID, c.ID, fee.FeeStatusSent, 3000, days(5))
	lc := fee.NewLetterTracking(fx.tenantID, fc.ID, c.ID)
	lc.MarkSent(*days(5))
	lc.MarkOpened(*days(4))
	require.NoError(t, lc.SelectPaymentMethod(fee.PaymentMethodBankTransfer, *days(3)))
	require.NoError(t, tracking.Save(ctx, lc))
	fx.abandon = fc.ID

	// paid in full with an open dispute
	d := seedClient(t, db, fx.tenantID, "Delta")
	fd := seedFee(t, db, fx.tenantID, d.ID, fee.FeeStatusPaid, 4000, days(30))
	payment, err := fee.NewActualPayment(fx.tenantID, d.ID, fd.ID, uuid.New(), decimal.NewFromInt(4000), now, fee.PaymentMethodCash, testVATRate)
	require.NoError(t, err)
	require.NoError(t, NewGormPaymentRepository(db).Create(ctx, payment))
	dispute, err := fee.NewPaymentDispute(fx.tenantID, d.ID, fd.ID, uuid.New(), "paid twice")
	require.NoError(t, err)
	require.NoError(t, NewGormDisputeRepository(db).Save(ctx, dispute))
	fx.paid = fd.ID

	// drafts and other tenants stay out of every figure
	e := seedClient(t, db, fx.tenantID, "Echo")
	seedFee(t, db, fx.tenantID, e.ID, fee.FeeStatusDraft, 9000, nil)
	stranger := seedClient(t, db, uuid.New(), "Foxtrot")
	seedFee(t, db, stranger.TenantID, stranger.ID, fee.FeeStatusSent, 9000, days(40))

	return fx
}

func TestGormCollectionRepository_Totals(t *testing.T) {
	db := setupFeeTestDB(t)
	fx := seedCollection(t, db)
	repo := NewGormCollectionRepository(db)

	totals, err := repo.Totals(context.Background(), fx.tenantID, shared.DateRange{})
	require.NoError(t, err)
	assert.True(t, totals.TotalExpected.Equal(decimal.NewFromInt(10000)), totals.TotalExpected.String())
	assert.True(t, totals.TotalReceived.Equal(decimal.NewFromInt(4000)), totals.TotalReceived.String())
	assert.Equal(t, int64(4), totals.ClientsSent)
	assert.Equal(t, int64(1), totals.ClientsPaid)
	assert.Equal(t, int64(3), totals.ClientsPending)

	t.Run("window on send date", func(t *testing.T) {
		totals, err := repo.Totals(context.Background(), fx.tenantID, shared.DateRange{From: fx.now.AddDate(0, 0, -15)})
		require.NoError(t, err)
		assert.True(t, totals.TotalExpected.Equal(decimal.NewFromInt(4000)), totals.TotalExpected.String())
	})
}

func TestGormCollectionRepository_AlertCounts(t *testing.T) {
	db := setupFeeTestDB(t)
	fx := seedCollection(t, db)
	repo := NewGormCollectionRepository(db)
	ctx := context.Background()
	th := fee.DefaultAlertThresholds()
	all := shared.DateRange{}

	n, err := repo.CountUnopened(ctx, fx.tenantID, fx.now.Add(-th.UnopenedAfter), all)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountNoSelection(ctx, fx.tenantID, fx.now.Add(-th.NoSelectionAfter), all)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountAbandoned(ctx, fx.tenantID, fx.now.Add(-th.AbandonedAfter), all)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountOpenDisputes(ctx, fx.tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGormCollectionRepository_ListRecords(t *testing.T) {
	db := setupFeeTestDB(t)
	fx := seedCollection(t, db)
	repo := NewGormCollectionRepository(db)

	records, err := repo.ListRecords(context.Background(), fx.tenantID, 2025)
	require.NoError(t, err)
	require.Len(t, records, 4)

	byID := make(map[uuid.UUID]fee.CollectionRecord, len(records))
	for _, r := range records {
		byID[r.FeeCalculationID] = r
	}

	unopened := byID[fx.unopened]
	assert.Equal(t, "Alpha", unopened.ClientName)
	require.NotNil(t, unopened.SentAt)
	assert.Nil(t, unopened.OpenedAt)
	assert.Nil(t, unopened.AmountPaid)

	abandoned := byID[fx.abandon]
	require.NotNil(t, abandoned.PaymentMethodSelected)
	assert.Equal(t, fee.PaymentMethodBankTransfer, *abandoned.PaymentMethodSelected)

	paid := byID[fx.paid]
	require.NotNil(t, paid.AmountPaid)
	assert.True(t, paid.AmountPaid.Equal(decimal.NewFromInt(4000)))
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, fee.PaymentMethodCash, *paid.PaymentMethod)
	assert.True(t, paid.HasOpenDispute)
	assert.Equal(t, fee.FeeStatusPaid, paid.Status)

	t.Run("other years are excluded", func(t *testing.T) {
		records, err := repo.ListRecords(context.Background(), fx.tenantID, 2024)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestGormRollupRepository(t *testing.T) {
	db := setupFeeTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()
	repo := NewGormRollupRepository(db)

	group := models.ClientGroupModel{TenantID: tenantID, Name: "Holdings"}
	group.ID = uuid.New()
	group.CreatedAt, group.UpdatedAt = time.Now().UTC(), time.Now().UTC()
	require.NoError(t, db.Create(&group).Error)

	total := decimal.NewFromInt(50000)
	calc := models.GroupCalculationModelFromDomain(&fee.GroupCalculation{
		ID: uuid.New(), TenantID: tenantID, GroupID: group.ID, TaxYear: 2025,
		Status: fee.FeeStatusPaid, TotalWithVAT: &total,
	})
	calc.CreatedAt, calc.UpdatedAt = time.Now().UTC(), time.Now().UTC()
	require.NoError(t, db.Create(calc).Error)

	member := &fee.Client{TenantID: tenantID, Name: "Member", GroupID: &group.ID}
	require.NoError(t, NewGormClientRepository(db).Save(ctx, member))
	seedFee(t, db, tenantID, member.ID, fee.FeeStatusSent, 1000, nil)

	payer := seedClient(t, db, tenantID, "Payer")
	covered := &fee.Client{TenantID: tenantID, Name: "Covered", PayerClientID: &payer.ID}
	require.NoError(t, NewGormClientRepository(db).Save(ctx, covered))
	seedFee(t, db, tenantID, covered.ID, fee.FeeStatusDraft, 500, nil)

	statuses, err := repo.ListClientStatuses(ctx, tenantID, 2025)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byName := make(map[string]fee.ClientStatusRow)
	for _, s := range statuses {
		byName[s.Name] = s
	}
	assert.Equal(t, fee.RollupPending, byName["Member"].Status)
	require.NotNil(t, byName["Member"].AmountWithVAT)
	assert.True(t, byName["Member"].AmountWithVAT.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, fee.RollupPaidByOther, byName["Covered"].Status)
	assert.Equal(t, fee.RollupNotCalculated, byName["Payer"].Status)
	assert.Nil(t, byName["Payer"].AmountWithVAT)

	groups, err := repo.ListGroups(ctx, tenantID, 2025)
	require.NoError(t, err)
	require.Contains(t, groups, group.ID)
	assert.Equal(t, "Holdings", groups[group.ID].Group.Name)
	require.NotNil(t, groups[group.ID].Calculation)
	assert.Equal(t, fee.FeeStatusPaid, groups[group.ID].Calculation.Status)

	groups, err = repo.ListGroups(ctx, tenantID, 2024)
	require.NoError(t, err)
	assert.Nil(t, groups[group.ID].Calculation)
}
