package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeeCalculation(t *testing.T) *fee.FeeCalculation {
	t.Helper()
	calc, err := fee.NewFeeCalculation(uuid.New(), uuid.New(), 2025, uuid.New())
	require.NoError(t, err)
	calc.BaseAmount = decimal.NewFromInt(10000)
	calc.FinalAmountBeforeVAT = decimal.NewFromInt(10000)
	calc.VATAmount = decimal.NewFromInt(1800)
	calc.TotalWithVAT = decimal.NewFromInt(11800)
	return calc
}

func TestGormFeeCalculationRepository_Upsert(t *testing.T) {
	upsertSQL := `INSERT INTO "fee_calculations" .*ON CONFLICT \("tenant_id","client_id","tax_year"\) DO UPDATE SET .*RETURNING "id","created_at","updated_at","version"`

	t.Run("fresh insert reports a new row", func(t *testing.T) {
		db, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormFeeCalculationRepository(db)
		calc := newTestFeeCalculation(t)

		stamp := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
		mock.ExpectQuery(upsertSQL).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version"}).
				AddRow(calc.ID, stamp, stamp, 1))

		require.NoError(t, repo.Upsert(context.Background(), calc))
		assert.True(t, calc.IsNew())
		assert.Equal(t, 1, calc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict keeps the stored identity and reports an update", func(t *testing.T) {
		db, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormFeeCalculationRepository(db)
		calc := newTestFeeCalculation(t)

		storedID := uuid.New()
		created := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
		updated := created.Add(48 * time.Hour)
		mock.ExpectQuery(upsertSQL).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version"}).
				AddRow(storedID, created, updated, 3))

		require.NoError(t, repo.Upsert(context.Background(), calc))
		assert.Equal(t, storedID, calc.ID)
		assert.False(t, calc.IsNew())
		assert.Equal(t, 3, calc.Version)
		assert.True(t, calc.CreatedAt.Equal(created))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("storage failure becomes a persistence error", func(t *testing.T) {
		db, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormFeeCalculationRepository(db)

		mock.ExpectQuery(upsertSQL).WillReturnError(errors.New("connection reset"))

		err := repo.Upsert(context.Background(), newTestFeeCalculation(t))
		var perr *fee.PersistenceError
		assert.ErrorAs(t, err, &perr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormFeeCalculationRepository_FindByIDForTenant(t *testing.T) {
	t.Run("finds calculation within tenant", func(t *testing.T) {
		db, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormFeeCalculationRepository(db)

		id, tenantID, clientID := uuid.New(), uuid.New(), uuid.New()
		rows := sqlmock.NewRows([]string{"id", "tenant_id", "client_id", "tax_year", "status", "total_with_vat", "calculation_metadata", "version"}).
			AddRow(id, tenantID, clientID, 2025, "sent", "11800.00", []byte(`{"method":"ceiling_whole_unit"}`), 2)

		mock.ExpectQuery(`SELECT \* FROM "fee_calculations" WHERE id = \$1 AND tenant_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(id, tenantID, 1).
			WillReturnRows(rows)

		calc, err := repo.FindByIDForTenant(context.Background(), tenantID, id)
		require.NoError(t, err)
		require.NotNil(t, calc)
		assert.Equal(t, clientID, calc.ClientID)
		assert.Equal(t, fee.FeeStatusSent, calc.Status)
		assert.True(t, calc.TotalWithVAT.Equal(decimal.NewFromInt(11800)))
		assert.Nil(t, calc.Bookkeeping)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil when missing", func(t *testing.T) {
		db, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormFeeCalculationRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "fee_calculations" WHERE id = \$1 AND tenant_id = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		calc, err := repo.FindByIDForTenant(context.Background(), uuid.New(), uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, calc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormFeeCalculationRepository_SaveWithLock(t *testing.T) {
	t.Run("stale version is a concurrency conflict", func(t *testing.T) {
		db, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormFeeCalculationRepository(db)
		calc := newTestFeeCalculation(t)
		require.NoError(t, calc.MarkSent(time.Now(), uuid.New()))

		mock.ExpectExec(`UPDATE "fee_calculations" SET .* WHERE id = \$\d+ AND tenant_id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), calc)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("writes zero values", func(t *testing.T) {
		db, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormFeeCalculationRepository(db)
		calc := newTestFeeCalculation(t)
		calc.HasDeviation = false
		require.NoError(t, calc.MarkSent(time.Now(), uuid.New()))

		mock.ExpectExec(`UPDATE "fee_calculations" SET .*"has_deviation"=.*WHERE id = `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SaveWithLock(context.Background(), calc))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormFeeCalculationRepository_FindAllForTenant(t *testing.T) {
	db := setupFeeTestDB(t)
	repo := NewGormFeeCalculationRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	for i, year := range []int{2024, 2025, 2025} {
		calc, err := fee.NewFeeCalculation(tenantID, uuid.New(), year, uuid.New())
		require.NoError(t, err)
		calc.TotalWithVAT = decimal.NewFromInt(int64(1000 * (i + 1)))
		require.NoError(t, db.Create(mustFeeModel(t, calc)).Error)
	}
	other, err := fee.NewFeeCalculation(uuid.New(), uuid.New(), 2025, uuid.New())
	require.NoError(t, err)
	require.NoError(t, db.Create(mustFeeModel(t, other)).Error)

	list, total, err := repo.FindAllForTenant(ctx, tenantID, fee.FeeCalculationFilter{
		Filter:  shared.Filter{Page: 1, PageSize: 1, OrderBy: "total_with_vat", OrderDir: "asc"},
		TaxYear: 2025,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 1)
	assert.True(t, list[0].TotalWithVAT.Equal(decimal.NewFromInt(2000)))
}
