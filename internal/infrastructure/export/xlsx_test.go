package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []fee.CollectionRow {
	sent := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	paidAt := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	paid := decimal.RequireFromString("11800")
	method := fee.PaymentMethodBankTransfer
	level := fee.AlertLevelWarning
	days := 19

	return []fee.CollectionRow{
		{
			CollectionRecord: fee.CollectionRecord{
				FeeCalculationID:     uuid.New(),
				ClientID:             uuid.New(),
				ClientName:           "כהן בע\"מ",
				TaxID:                "514000001",
				TaxYear:              2025,
				Status:               fee.FeeStatusPaid,
				FinalAmountBeforeVAT: decimal.RequireFromString("10000"),
				TotalWithVAT:         decimal.RequireFromString("11800"),
				SentAt:               &sent,
				AmountPaid:           &paid,
				PaymentMethod:        &method,
				PaymentDate:          &paidAt,
				HasDeviation:         true,
				DeviationAlertLevel:  &level,
				HasOpenDispute:       true,
			},
			DaysSinceSent: &days,
			ElapsedBucket: fee.Elapsed15To30,
			Alerts:        fee.RowAlerts{Disputed: true},
		},
		{
			CollectionRecord: fee.CollectionRecord{
				FeeCalculationID:     uuid.New(),
				ClientID:             uuid.New(),
				ClientName:           "Levi Ltd",
				TaxID:                "514000002",
				TaxYear:              2025,
				Status:               fee.FeeStatusDraft,
				FinalAmountBeforeVAT: decimal.RequireFromString("500.5"),
				TotalWithVAT:         decimal.RequireFromString("590.59"),
			},
		},
	}
}

func TestWriteDashboard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDashboard(&buf, sampleRows(), Options{RightToLeft: true}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(defaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])

	first := rows[1]
	assert.Equal(t, "כהן בע\"מ", first[0])
	assert.Equal(t, "514000001", first[1])
	assert.Equal(t, "2025", first[2])
	assert.Equal(t, "paid", first[3])
	assert.Equal(t, "2025-03-01", first[7])
	assert.Equal(t, "19", first[8])
	assert.Equal(t, "15-30", first[9])
	assert.Equal(t, "bank_transfer", first[12])
	assert.Equal(t, "2025-03-20", first[13])
	assert.Equal(t, "warning", first[14])
	assert.Equal(t, "disputed", first[15])

	raw, err := f.GetCellValue(defaultSheet, "F2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "11800", raw)

	second := rows[2]
	assert.Equal(t, "Levi Ltd", second[0])
	assert.Equal(t, "draft", second[3])

	views, err := f.GetSheetView(defaultSheet, 0)
	require.NoError(t, err)
	require.NotNil(t, views.RightToLeft)
	assert.True(t, *views.RightToLeft)
}

func TestWriteDashboard_EmptyAndCustomSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDashboard(&buf, nil, Options{SheetName: "2025"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"2025"}, f.GetSheetList())
	rows, err := f.GetRows("2025")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(Columns))
}

func TestAlertsJoin(t *testing.T) {
	assert.Equal(t, "", alerts(fee.RowAlerts{}))
	assert.Equal(t, "not_opened, abandoned", alerts(fee.RowAlerts{NotOpened: true, Abandoned: true}))
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 4, 2, 13, 5, 9, 0, time.UTC)
	assert.Equal(t, "collections_2025_20250402_130509.xlsx", FileName(2025, now))
}
