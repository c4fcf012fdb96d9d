package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newMockGorm opens GORM on a sqlmock connection speaking the postgres dialect
func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := openMockPostgres(mockDB)
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func openMockPostgres(conn *sql.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		Conn:       conn,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
}

// setupFeeTestDB opens an in-memory sqlite database with every fee table migrated.
// A single connection keeps the in-memory database shared across transactions.
func setupFeeTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.ClientGroupModel{},
		&models.ClientModel{},
		&models.GroupCalculationModel{},
		&models.FeeCalculationModel{},
		&models.ActualPaymentModel{},
		&models.PaymentInstallmentModel{},
		&models.PaymentDeviationModel{},
		&models.LetterTrackingModel{},
		&models.PaymentDisputeModel{},
		&models.AuditLogModel{},
	)
	require.NoError(t, err)

	return db
}

func mustFeeModel(t *testing.T, calc *fee.FeeCalculation) *models.FeeCalculationModel {
	t.Helper()
	m, err := models.FeeCalculationModelFromDomain(calc)
	require.NoError(t, err)
	return m
}
