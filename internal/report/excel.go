package report

import (
	"fmt"

	"github.com/nimasrn/debt-tracker/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	SheetTransactions = "Transactions"
	SheetBill         = "Bill"

	DateLayout = "2006-01-02 15:04:05"
	dayLayout  = "2006-01-02"

	// built-in excel number format "0.00"
	numFmtTwoDecimals = 2
)

var transactionHeader = []interface{}{"ID", "CustomerId", "Type", "Amount", "Description", "Date"}

// Excel renders reports and bills as xlsx workbooks.
type Excel struct{}

func NewExcel() *Excel {
	return &Excel{}
}

func (Excel) ContentType() string   { return ContentTypeXLSX }
func (Excel) FileExtension() string { return "xlsx" }

// RenderTransactions writes one row per transaction under a fixed header.
func (e Excel) RenderTransactions(rows []*model.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetTransactions); err != nil {
		return nil, err
	}
	if err := writeRow(f, SheetTransactions, 1, transactionHeader); err != nil {
		return nil, err
	}
	if err := boldRow(f, SheetTransactions, 1, len(transactionHeader)); err != nil {
		return nil, err
	}

	for i, t := range rows {
		row := []interface{}{
			t.ID,
			t.CustomerID,
			string(t.Type),
			t.Amount.InexactFloat64(),
			t.Description,
			t.Date.UTC().Format(DateLayout),
		}
		if err := writeRow(f, SheetTransactions, i+2, row); err != nil {
			return nil, err
		}
	}
	if err := amountFormat(f, SheetTransactions, "D", 2, len(rows)+1); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetTransactions, "E", "F", 22); err != nil {
		return nil, err
	}

	return toBytes(f)
}

// RenderBill writes the customer header, the period's transactions and the
// totals on a single sheet.
func (e Excel) RenderBill(bill *model.Bill) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetBill); err != nil {
		return nil, err
	}

	c := bill.Customer
	header := [][]interface{}{
		{"Customer", c.Name},
		{"Customer ID", c.ID},
		{"Phone", c.Phone},
		{"Address", c.Address},
		{"Period", fmt.Sprintf("%s - %s", bill.From.Format(dayLayout), bill.To.Format(dayLayout))},
	}
	row := 1
	for _, h := range header {
		if err := writeRow(f, SheetBill, row, h); err != nil {
			return nil, err
		}
		row++
	}

	row++
	columns := []interface{}{"Date", "ID", "Type", "Description", "Amount"}
	if err := writeRow(f, SheetBill, row, columns); err != nil {
		return nil, err
	}
	if err := boldRow(f, SheetBill, row, len(columns)); err != nil {
		return nil, err
	}
	row++

	first := row
	for _, t := range bill.Transactions {
		line := []interface{}{
			t.Date.UTC().Format(DateLayout),
			t.ID,
			string(t.Type),
			t.Description,
			t.Amount.InexactFloat64(),
		}
		if err := writeRow(f, SheetBill, row, line); err != nil {
			return nil, err
		}
		row++
	}

	row++
	totals := [][]interface{}{
		{"Total Debits", bill.TotalDebits.InexactFloat64()},
		{"Total Credits", bill.TotalCredits.InexactFloat64()},
		{"Balance", bill.Balance.InexactFloat64()},
		{"Total Debt", bill.TotalDebt.InexactFloat64()},
	}
	totalsStart := row
	for _, tl := range totals {
		if err := writeRow(f, SheetBill, row, tl); err != nil {
			return nil, err
		}
		row++
	}

	if err := amountFormat(f, SheetBill, "E", first, first+len(bill.Transactions)-1); err != nil {
		return nil, err
	}
	if err := amountFormat(f, SheetBill, "B", totalsStart, row-1); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetBill, "A", "A", 20); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetBill, "D", "D", 30); err != nil {
		return nil, err
	}

	return toBytes(f)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func boldRow(f *excelize.File, sheet string, row, cols int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	from, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, style)
}

func amountFormat(f *excelize.File, sheet, col string, fromRow, toRow int) error {
	if toRow < fromRow {
		return nil
	}
	style, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals})
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, fmt.Sprintf("%s%d", col, fromRow), fmt.Sprintf("%s%d", col, toRow), style)
}

func toBytes(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
