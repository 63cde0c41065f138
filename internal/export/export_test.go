package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"erp-ledger/internal/core"
)

func sampleTrialBalance() *core.TrialBalance {
	d := decimal.RequireFromString
	return &core.TrialBalance{
		Rows: []core.TrialBalanceRow{
			{Code: "1002", Name: "Bank", Type: core.Asset, TotalDebit: d("1500"), TotalCredit: d("200.5"), Balance: d("1299.5")},
			{Code: "4000", Name: "Sales Revenue", Type: core.Revenue, TotalCredit: d("1500"), Balance: d("1500")},
			{Code: "5400", Name: "General Expense", Type: core.Expense, TotalDebit: d("200.5"), Balance: d("200.5")},
		},
		TotalDebit:  d("1700.5"),
		TotalCredit: d("1700.5"),
		Balanced:    true,
	}
}

func TestTrialBalanceCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TrialBalanceCSV(&buf, sampleTrialBalance()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, trialBalanceHeaders, records[0])
	assert.Equal(t, []string{"1002", "Bank", "asset", "1500.00", "200.50", "1299.50"}, records[1])
	assert.Equal(t, "1700.50", records[4][3])
}

func TestTrialBalanceCSV_EscapesFormulas(t *testing.T) {
	tb := sampleTrialBalance()
	tb.Rows[0].Name = "=HYPERLINK(\"x\")"

	var buf bytes.Buffer
	require.NoError(t, TrialBalanceCSV(&buf, tb))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "'=HYPERLINK(\"x\")", records[1][1])
}

func TestAccountStatementCSV(t *testing.T) {
	st := &core.AccountStatement{
		Account:        core.Account{Code: "1002", Name: "Bank", Type: core.Asset},
		OpeningBalance: decimal.NewFromInt(100),
		Lines: []core.StatementLine{{
			EntryNumber:    "JE-2025-00004",
			Date:           time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
			Reference:      "-fee",
			Debit:          decimal.NewFromInt(50),
			RunningBalance: decimal.NewFromInt(150),
		}},
		ClosingBalance: decimal.NewFromInt(150),
	}

	var buf bytes.Buffer
	require.NoError(t, AccountStatementCSV(&buf, st))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "100.00", records[1][6])
	assert.Equal(t, []string{"2025-04-02", "JE-2025-00004", "'-fee", "", "50.00", "0.00", "150.00"}, records[2])
	assert.Equal(t, "150.00", records[3][6])
}

func TestFinancialsXLSX(t *testing.T) {
	pl := &core.PLReport{
		Range:        core.YearRange(2025),
		Revenue:      []core.AccountLine{{Code: "4000", Name: "Sales Revenue", Balance: decimal.NewFromInt(1500)}},
		Expenses:     []core.AccountLine{{Code: "5400", Name: "General Expense", Balance: decimal.RequireFromString("200.5")}},
		TotalRevenue: decimal.NewFromInt(1500),
		TotalExpense: decimal.RequireFromString("200.5"),
		NetIncome:    decimal.RequireFromString("1299.5"),
	}
	bs := &core.BSReport{
		AsOf:            time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Assets:          []core.AccountLine{{Code: "1002", Name: "Bank", Balance: decimal.RequireFromString("1299.5")}},
		TotalAssets:     decimal.RequireFromString("1299.5"),
		CurrentEarnings: decimal.RequireFromString("1299.5"),
		IsBalanced:      true,
	}

	var buf bytes.Buffer
	require.NoError(t, FinancialsXLSX(&buf, sampleTrialBalance(), pl, bs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetTrialBalance, sheetProfitLoss, sheetBalanceSheet}, f.GetSheetList())

	v, err := f.GetCellValue(sheetTrialBalance, "A2")
	require.NoError(t, err)
	assert.Equal(t, "1002", v)
	v, err = f.GetCellValue(sheetTrialBalance, "F2")
	require.NoError(t, err)
	got, err := decimal.NewFromString(v)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("1299.5")), v)

	v, err = f.GetCellValue(sheetProfitLoss, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01 to 2025-12-31", v)
}

func TestTrialBalanceXLSX_SingleSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TrialBalanceXLSX(&buf, sampleTrialBalance()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{sheetTrialBalance}, f.GetSheetList())
}
