package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erp-ledger/internal/core"
)

// fakeChart is an AccountLookup backed by a map, for resolving without a store.
type fakeChart map[string]core.Account

func (c fakeChart) GetAccountByCode(_ context.Context, _ string, code string) (*core.Account, error) {
	a, ok := c[code]
	if !ok {
		return nil, &core.NotFoundError{Kind: "account", ID: code}
	}
	return &a, nil
}

func TestResolver_MissingRole(t *testing.T) {
	r := core.NewAccountResolver(core.AccountMap{core.RoleCash: "1001"})
	_, err := r.Resolve(context.Background(), fakeChart{}, "t1", core.RoleBank)

	var me *core.MissingAccountError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "bank", me.Code)
}

func TestResolver_Overrides(t *testing.T) {
	codes := core.DefaultAccountMap().Merge(map[string]string{"cash": "1010"})
	r := core.NewAccountResolver(codes)
	chart := fakeChart{"1010": {ID: 7, Code: "1010", Name: "Petty Cash", Type: core.Asset}}

	acc, err := r.Resolve(context.Background(), chart, "t1", core.RoleCash)
	require.NoError(t, err)
	assert.Equal(t, int64(7), acc.ID)

	_, err = r.Resolve(context.Background(), chart, "t1", core.RoleBank)
	var me *core.MissingAccountError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "1002", me.Code)
}

func TestSalesInvoiceEntry_ThreeLines(t *testing.T) {
	chart := fakeChart{
		"1100": {ID: 1, Code: "1100", Type: core.Asset},
		"4000": {ID: 2, Code: "4000", Type: core.Revenue},
		"2100": {ID: 3, Code: "2100", Type: core.Liability},
	}
	posting := core.NewPostingService(nil, nil, nil)
	inv := &core.TaxInvoice{
		ID:            9,
		InvoiceNumber: "INV-2025-00009",
		IssueDate:     date(2025, 6, 1),
		Subtotal:      dec("1000"),
		VATAmount:     dec("150"),
		TotalAmount:   dec("1150"),
	}

	in, err := posting.SalesInvoiceEntry(context.Background(), chart, core.TenantContext{TenantID: "t1"}, inv)
	require.NoError(t, err)
	require.NoError(t, in.Validate())

	require.Len(t, in.Lines, 3)
	assert.Equal(t, int64(1), in.Lines[0].AccountID)
	assert.True(t, in.Lines[0].Debit.Equal(dec("1150")))
	assert.Equal(t, int64(2), in.Lines[1].AccountID)
	assert.True(t, in.Lines[1].Credit.Equal(dec("1000")))
	assert.Equal(t, int64(3), in.Lines[2].AccountID)
	assert.True(t, in.Lines[2].Credit.Equal(dec("150")))
	assert.Equal(t, "sales-invoice-9", in.SourceKey)
}

func TestPostExpense_PaymentMethodPicksSettlementAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.posting.PostExpense(f.ctx, f.tc, core.ExpenseEvent{
		ExpenseID: "E1", Date: date(2025, 5, 1), Amount: dec("75"), PaymentMethod: core.PaymentCard,
	})
	require.NoError(t, err)
	_, err = f.posting.PostExpense(f.ctx, f.tc, core.ExpenseEvent{
		ExpenseID: "E2", Date: date(2025, 5, 2), Amount: dec("25"), PaymentMethod: core.PaymentCash,
	})
	require.NoError(t, err)
	_, err = f.posting.PostExpense(f.ctx, f.tc, core.ExpenseEvent{
		ExpenseID: "E3", Date: date(2025, 5, 3), Amount: dec("10"), PaymentMethod: core.PaymentCheque,
	})
	require.NoError(t, err)

	assert.True(t, f.balance(t, "1002").Equal(dec("-75")))
	assert.True(t, f.balance(t, "1001").Equal(dec("-35")))
	assert.True(t, f.balance(t, "5400").Equal(dec("110")))
}

func TestPostExpense_AccountOverride(t *testing.T) {
	f := newFixture(t)
	_, err := f.posting.PostExpense(f.ctx, f.tc, core.ExpenseEvent{
		ExpenseID: "E1", Amount: dec("300"), PaymentMethod: core.PaymentBankTransfer, AccountCode: "5000",
	})
	require.NoError(t, err)
	assert.True(t, f.balance(t, "5000").Equal(dec("300")))
}

func TestPostExpense_SecondTriggerIsRejected(t *testing.T) {
	f := newFixture(t)
	ev := core.ExpenseEvent{ExpenseID: "E1", Amount: dec("50"), PaymentMethod: core.PaymentCash}

	first, err := f.posting.PostExpense(f.ctx, f.tc, ev)
	require.NoError(t, err)

	_, err = f.posting.PostExpense(f.ctx, f.tc, ev)
	var de *core.DuplicateEntryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, first, de.ExistingID)
	assert.True(t, f.balance(t, "5400").Equal(dec("50")))
}

func TestPostProduction_IsValueNeutral(t *testing.T) {
	f := newFixture(t)
	_, err := f.posting.PostProduction(f.ctx, f.tc, core.ProductionEvent{
		WorkOrderID: "WO-1", Date: date(2025, 5, 1), TotalStandardCost: dec("2400"),
	})
	require.NoError(t, err)

	assert.True(t, f.balance(t, "1200").Equal(dec("2400")))
	assert.True(t, f.balance(t, "5000").Equal(dec("-2400")))
	tb, err := f.ledger.TrialBalance(f.ctx, f.tc)
	require.NoError(t, err)
	assert.True(t, tb.Balanced)
}

func TestPostPayroll(t *testing.T) {
	f := newFixture(t)
	id, err := f.posting.PostPayroll(f.ctx, f.tc, core.PayrollEvent{
		RunID: "PR-2025-05", Date: date(2025, 5, 31), Period: "May 2025", TotalNet: dec("18250.50"), PaymentMethod: core.PaymentBankTransfer,
	})
	require.NoError(t, err)

	entry, err := f.journal.GetEntry(f.ctx, f.tc, id)
	require.NoError(t, err)
	assert.Equal(t, "payroll-run-PR-2025-05", entry.SourceKey)
	assert.True(t, f.balance(t, "5100").Equal(dec("18250.50")))
	assert.True(t, f.balance(t, "1002").Equal(dec("-18250.50")))
}

func TestPosting_MissingAccountLeavesNothing(t *testing.T) {
	var chart []core.Account
	for _, a := range core.DefaultChart() {
		if a.Code != "5100" {
			chart = append(chart, a)
		}
	}
	f := newFixtureWith(t, chart, nil)

	_, err := f.posting.PostPayroll(f.ctx, f.tc, core.PayrollEvent{RunID: "PR-1", TotalNet: dec("100")})
	var me *core.MissingAccountError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "5100", me.Code)

	entries, err := f.journal.ListEntries(f.ctx, f.tc, core.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPaymentMethod_SettlesThroughBank(t *testing.T) {
	assert.True(t, core.PaymentBankTransfer.SettlesThroughBank())
	assert.True(t, core.PaymentMethod("card").SettlesThroughBank())
	assert.False(t, core.PaymentCash.SettlesThroughBank())
	assert.False(t, core.PaymentCheque.SettlesThroughBank())
	assert.False(t, core.PaymentMethod("").SettlesThroughBank())
}
