// Package export renders collection dashboard rows as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of the generated workbook
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	defaultSheet = "Collections"
	dateLayout   = "2006-01-02"
	moneyFormat  = "#,##0.00"
)

// Columns of the dashboard export, in order
var Columns = []string{
	"Client", "Tax ID", "Tax year", "Status",
	"Amount before VAT", "Total with VAT", "Amount paid",
	"Sent at", "Days since sent", "Elapsed", "Opened at", "Selected method",
	"Payment method", "Payment date", "Deviation", "Alerts",
}

// Options controls workbook layout
type Options struct {
	SheetName   string
	RightToLeft bool
}

// FileName returns the attachment name for an export taken at now
func FileName(taxYear int, now time.Time) string {
	return fmt.Sprintf("collections_%d_%s.xlsx", taxYear, now.Format("20060102_150405"))
}

// WriteDashboard writes rows as a single-sheet workbook to w
func WriteDashboard(w io.Writer, rows []fee.CollectionRow, opts Options) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := opts.SheetName
	if sheet == "" {
		sheet = defaultSheet
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if opts.RightToLeft {
		rtl := true
		if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
			return fmt.Errorf("failed to set sheet direction: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(moneyFormat)})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		values := rowValues(row)
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if len(rows) > 0 {
		if err := f.SetCellStyle(sheet, "E2", fmt.Sprintf("G%d", len(rows)+1), moneyStyle); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func rowValues(r fee.CollectionRow) []any {
	return []any{
		r.ClientName,
		r.TaxID,
		r.TaxYear,
		string(r.Status),
		money(&r.FinalAmountBeforeVAT),
		money(&r.TotalWithVAT),
		money(r.AmountPaid),
		date(r.SentAt),
		intOrBlank(r.DaysSinceSent),
		string(r.ElapsedBucket),
		date(r.OpenedAt),
		methodOrBlank(r.PaymentMethodSelected),
		methodOrBlank(r.PaymentMethod),
		date(r.PaymentDate),
		deviation(r),
		alerts(r.Alerts),
	}
}

func money(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return d.Round(2).InexactFloat64()
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func intOrBlank(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func methodOrBlank(m *fee.PaymentMethod) string {
	if m == nil {
		return ""
	}
	return string(*m)
}

func deviation(r fee.CollectionRow) string {
	if r.DeviationAlertLevel == nil {
		return ""
	}
	return string(*r.DeviationAlertLevel)
}

func alerts(a fee.RowAlerts) string {
	var out []string
	if a.NotOpened {
		out = append(out, "not_opened")
	}
	if a.NoSelection {
		out = append(out, "no_selection")
	}
	if a.Abandoned {
		out = append(out, "abandoned")
	}
	if a.Disputed {
		out = append(out, "disputed")
	}
	return strings.Join(out, ", ")
}

func strPtr(s string) *string { return &s }
