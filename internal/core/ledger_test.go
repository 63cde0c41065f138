package core_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erp-ledger/internal/core"
)

func seedActivity(t *testing.T, f *fixture) {
	t.Helper()
	f.post(t, date(2025, 1, 1), "1002", "3000", "100000")
	f.post(t, date(2025, 2, 1), "1100", "4000", "30000")
	f.post(t, date(2025, 2, 15), "5100", "1002", "12000")
	f.post(t, date(2025, 3, 1), "5400", "1001", "500")
	f.post(t, date(2025, 3, 10), "1500", "1002", "40000")
	f.post(t, date(2025, 4, 1), "1002", "1100", "30000")
}

func TestTrialBalance_NetsToZero(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)

	tb, err := f.ledger.TrialBalance(f.ctx, f.tc)
	require.NoError(t, err)

	assert.True(t, tb.Balanced)
	assert.True(t, tb.Net().IsZero())
	assert.Len(t, tb.Rows, len(core.DefaultChart()))

	debitNormal := decimal.Zero
	creditNormal := decimal.Zero
	for _, r := range tb.Rows {
		if r.Type.DebitNormal() {
			debitNormal = debitNormal.Add(r.Balance)
		} else {
			creditNormal = creditNormal.Add(r.Balance)
		}
	}
	assert.True(t, debitNormal.Equal(creditNormal))
	assert.True(t, f.balance(t, "1002").Equal(dec("78000")))
	assert.True(t, f.balance(t, "1001").Equal(dec("-500")))
}

func TestTrialBalance_RowsOrderedByCode(t *testing.T) {
	f := newFixture(t)
	tb, err := f.ledger.TrialBalance(f.ctx, f.tc)
	require.NoError(t, err)
	for i := 1; i < len(tb.Rows); i++ {
		assert.Less(t, tb.Rows[i-1].Code, tb.Rows[i].Code)
	}
}

func TestProfitAndLoss_Range(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)

	pl, err := f.ledger.ProfitAndLoss(f.ctx, f.tc, core.DateRange{From: date(2025, 2, 1), To: date(2025, 2, 28)})
	require.NoError(t, err)
	assert.True(t, pl.TotalRevenue.Equal(dec("30000")))
	assert.True(t, pl.TotalExpense.Equal(dec("12000")))
	assert.True(t, pl.NetIncome.Equal(dec("18000")))

	pl, err = f.ledger.ProfitAndLoss(f.ctx, f.tc, core.YearRange(2025))
	require.NoError(t, err)
	assert.True(t, pl.NetIncome.Equal(dec("17500")))

	pl, err = f.ledger.ProfitAndLoss(f.ctx, f.tc, core.YearRange(2024))
	require.NoError(t, err)
	assert.True(t, pl.NetIncome.IsZero())
}

func TestBalanceSheet_Balances(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)

	bs, err := f.ledger.BalanceSheet(f.ctx, f.tc, date(2025, 3, 31))
	require.NoError(t, err)

	assert.True(t, bs.IsBalanced)
	assert.True(t, bs.CurrentEarnings.Equal(dec("17500")))
	assert.True(t, bs.TotalEquity.Equal(dec("100000")))
	// The 1 April collection is after the reporting date.
	assert.True(t, bs.TotalAssets.Equal(dec("117500")))
}

func TestAccountStatement_RunningBalance(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)

	stmt, err := f.ledger.AccountStatement(f.ctx, f.tc, "1002", core.DateRange{From: date(2025, 2, 1)})
	require.NoError(t, err)

	assert.True(t, stmt.OpeningBalance.Equal(dec("100000")))
	require.Len(t, stmt.Lines, 3)
	assert.True(t, stmt.Lines[0].RunningBalance.Equal(dec("88000")))
	assert.True(t, stmt.Lines[1].RunningBalance.Equal(dec("48000")))
	assert.True(t, stmt.Lines[2].RunningBalance.Equal(dec("78000")))
	assert.True(t, stmt.ClosingBalance.Equal(f.balance(t, "1002")))
}

func TestCheckIntegrity_Clean(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)
	id := f.post(t, date(2025, 5, 1), "5400", "1001", "20")
	_, err := f.journal.VoidEntry(f.ctx, f.tc, id, "")
	require.NoError(t, err)

	problems, err := f.ledger.CheckIntegrity(f.ctx, f.tc)
	require.NoError(t, err)
	assert.Empty(t, problems)
}
