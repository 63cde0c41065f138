// Package export renders ledger reports as XLSX workbooks and CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"erp-ledger/internal/core"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"

	sheetTrialBalance = "Trial Balance"
	sheetProfitLoss   = "Profit and Loss"
	sheetBalanceSheet = "Balance Sheet"
)

var trialBalanceHeaders = []string{"Code", "Name", "Type", "Debit", "Credit", "Balance"}

// TrialBalanceCSV writes one row per account followed by a totals row.
func TrialBalanceCSV(w io.Writer, tb *core.TrialBalance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trialBalanceHeaders); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range tb.Rows {
		rec := []string{csvSafe(r.Code), csvSafe(r.Name), string(r.Type),
			r.TotalDebit.StringFixed(2), r.TotalCredit.StringFixed(2), r.Balance.StringFixed(2)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", r.Code, err)
		}
	}
	if err := cw.Write([]string{"", "TOTAL", "", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2), ""}); err != nil {
		return fmt.Errorf("failed to write csv totals: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// AccountStatementCSV writes the opening balance, one row per line and the closing balance.
func AccountStatementCSV(w io.Writer, st *core.AccountStatement) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		{"Date", "Entry", "Reference", "Description", "Debit", "Credit", "Balance"},
		{"", "", "", "Opening balance", "", "", st.OpeningBalance.StringFixed(2)},
	}
	for _, l := range st.Lines {
		records = append(records, []string{
			l.Date.Format("2006-01-02"), l.EntryNumber, csvSafe(l.Reference), csvSafe(l.Description),
			l.Debit.StringFixed(2), l.Credit.StringFixed(2), l.RunningBalance.StringFixed(2),
		})
	}
	records = append(records, []string{"", "", "", "Closing balance", "", "", st.ClosingBalance.StringFixed(2)})
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write statement csv: %w", err)
	}
	return nil
}

// TrialBalanceXLSX writes a single-sheet workbook.
func TrialBalanceXLSX(w io.Writer, tb *core.TrialBalance) error {
	return FinancialsXLSX(w, tb, nil, nil)
}

// FinancialsXLSX writes one sheet per report given; nil reports are skipped.
// tb is required.
func FinancialsXLSX(w io.Writer, tb *core.TrialBalance, pl *core.PLReport, bs *core.BSReport) error {
	f := excelize.NewFile()
	defer f.Close()

	sb := &sheetBuilder{f: f}
	if err := sb.trialBalance(tb); err != nil {
		return err
	}
	if pl != nil {
		if err := sb.profitAndLoss(pl); err != nil {
			return err
		}
	}
	if bs != nil {
		if err := sb.balanceSheet(bs); err != nil {
			return err
		}
	}
	// excelize always starts with Sheet1.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheetBuilder keeps the first error so the cell writes stay readable.
type sheetBuilder struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (b *sheetBuilder) newSheet(name string, widths map[string]float64) error {
	if _, err := b.f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	for col, width := range widths {
		if err := b.f.SetColWidth(name, col, col, width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}
	b.sheet, b.row, b.err = name, 0, nil
	return nil
}

// line appends a row; decimal values become numeric cells.
func (b *sheetBuilder) line(values ...any) {
	if b.err != nil {
		return
	}
	b.row++
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, b.row)
		if err != nil {
			b.err = err
			return
		}
		switch val := v.(type) {
		case decimal.Decimal:
			err = b.f.SetCellFloat(b.sheet, cell, val.InexactFloat64(), 2, 64)
		default:
			err = b.f.SetCellValue(b.sheet, cell, val)
		}
		if err != nil {
			b.err = fmt.Errorf("failed to write %s!%s: %w", b.sheet, cell, err)
			return
		}
	}
}

func (b *sheetBuilder) section(title string, lines []core.AccountLine, total decimal.Decimal) {
	b.line(title)
	for _, l := range lines {
		b.line(l.Code, l.Name, l.Balance)
	}
	b.line("", "Total "+title, total)
	b.line()
}

func (b *sheetBuilder) trialBalance(tb *core.TrialBalance) error {
	if err := b.newSheet(sheetTrialBalance, map[string]float64{"A": 10, "B": 30, "C": 12, "D": 14, "E": 14, "F": 14}); err != nil {
		return err
	}
	headers := make([]any, len(trialBalanceHeaders))
	for i, h := range trialBalanceHeaders {
		headers[i] = h
	}
	b.line(headers...)
	for _, r := range tb.Rows {
		b.line(r.Code, r.Name, string(r.Type), r.TotalDebit, r.TotalCredit, r.Balance)
	}
	b.line("", "TOTAL", "", tb.TotalDebit, tb.TotalCredit)
	return b.err
}

func (b *sheetBuilder) profitAndLoss(pl *core.PLReport) error {
	if err := b.newSheet(sheetProfitLoss, map[string]float64{"A": 10, "B": 30, "C": 14}); err != nil {
		return err
	}
	b.line("Period", formatRange(pl.Range))
	b.line()
	b.section("Revenue", pl.Revenue, pl.TotalRevenue)
	b.section("Expenses", pl.Expenses, pl.TotalExpense)
	b.line("", "Net Income", pl.NetIncome)
	return b.err
}

func (b *sheetBuilder) balanceSheet(bs *core.BSReport) error {
	if err := b.newSheet(sheetBalanceSheet, map[string]float64{"A": 10, "B": 30, "C": 14}); err != nil {
		return err
	}
	b.line("As of", bs.AsOf.Format("2006-01-02"))
	b.line()
	b.section("Assets", bs.Assets, bs.TotalAssets)
	b.section("Liabilities", bs.Liabilities, bs.TotalLiabilities)
	b.section("Equity", bs.Equity, bs.TotalEquity)
	b.line("", "Current Earnings", bs.CurrentEarnings)
	b.line("", "Balanced", bs.IsBalanced)
	return b.err
}

func formatRange(r core.DateRange) string {
	from, to := "beginning", "today"
	if !r.From.IsZero() {
		from = r.From.Format("2006-01-02")
	}
	if !r.To.IsZero() {
		to = r.To.Format("2006-01-02")
	}
	return from + " to " + to
}

// csvSafe prevents CSV formula injection by prefixing cells that begin with a
// formula-triggering character with a single quote.
func csvSafe(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
