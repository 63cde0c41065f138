package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erp-ledger/internal/core"
)

func TestComputeZakat(t *testing.T) {
	est := core.ComputeZakat(2025, dec("500000"), dec("80000"), dec("100000"))
	assert.True(t, est.Base.Equal(dec("480000")))
	assert.Equal(t, "12000.00", est.Amount.StringFixed(2))

	est = core.ComputeZakat(2025, dec("-500000"), dec("80000"), dec("100000"))
	assert.True(t, est.Base.Equal(dec("480000")), "equity enters as an absolute value")

	est = core.ComputeZakat(2025, dec("10000"), dec("-50000"), dec("100000"))
	assert.True(t, est.Base.IsNegative())
	assert.True(t, est.Amount.IsZero())
}

func TestZakatEstimate_FromLedger(t *testing.T) {
	f := newFixture(t)

	f.post(t, date(2024, 12, 1), "1002", "3000", "500000")
	f.post(t, date(2025, 1, 15), "1500", "1002", "100000")
	f.post(t, date(2025, 3, 1), "1100", "4000", "120000")
	f.post(t, date(2025, 6, 30), "5100", "1002", "40000")
	// Outside the year.
	f.post(t, date(2026, 1, 2), "1100", "4000", "999")

	est, err := f.compliance.ZakatEstimate(f.ctx, f.tc, 2025)
	require.NoError(t, err)
	assert.True(t, est.Equity.Equal(dec("500000")))
	assert.True(t, est.NetIncome.Equal(dec("80000")))
	assert.True(t, est.FixedAssets.Equal(dec("100000")))
	assert.True(t, est.Base.Equal(dec("480000")))
	assert.Equal(t, "12000.00", est.Amount.StringFixed(2))
}

func TestVATReport_RefundPosition(t *testing.T) {
	f := newFixture(t)

	inv, err := f.invoices.CreateInvoice(f.ctx, f.tc, sampleInvoice())
	require.NoError(t, err)
	_, err = f.invoices.ApproveInvoice(f.ctx, f.tc, inv.ID)
	require.NoError(t, err)
	_, err = f.invoices.PostInvoice(f.ctx, f.tc, inv.ID)
	require.NoError(t, err)

	simplified := sampleInvoice()
	simplified.Type = core.InvoiceTypeSimplified
	simplified.Items = simplified.Items[1:]
	inv2, err := f.invoices.CreateInvoice(f.ctx, f.tc, simplified)
	require.NoError(t, err)
	_, err = f.invoices.ApproveInvoice(f.ctx, f.tc, inv2.ID)
	require.NoError(t, err)
	_, err = f.invoices.PostInvoice(f.ctx, f.tc, inv2.ID)
	require.NoError(t, err)

	// Drafts never count.
	_, err = f.invoices.CreateInvoice(f.ctx, f.tc, sampleInvoice())
	require.NoError(t, err)

	// Input VAT on a large purchase exceeds output VAT.
	f.post(t, date(2025, 6, 10), "1300", "1002", "400")

	r := core.DateRange{From: date(2025, 6, 1), To: date(2025, 6, 30)}
	report, err := f.compliance.VATReport(f.ctx, f.tc, r)
	require.NoError(t, err)

	assert.Equal(t, 1, report.StandardCount)
	assert.Equal(t, 1, report.SimplifiedCount)
	assert.Equal(t, 2, report.InvoiceCount)
	assert.True(t, report.TaxableAmount.Equal(dec("1200")))
	assert.True(t, report.OutputVAT.Equal(dec("180")))
	assert.True(t, report.InputVAT.Equal(dec("400")))
	assert.True(t, report.NetPayable.Equal(dec("-220")))
	assert.True(t, report.NetPayable.Equal(report.OutputVAT.Sub(report.InputVAT)))
}

func TestVATReport_OutsideRange(t *testing.T) {
	f := newFixture(t)
	f.post(t, date(2025, 5, 31), "1300", "1002", "400")

	report, err := f.compliance.VATReport(f.ctx, f.tc, core.DateRange{From: date(2025, 6, 1), To: date(2025, 6, 30)})
	require.NoError(t, err)
	assert.Zero(t, report.InvoiceCount)
	assert.True(t, report.InputVAT.IsZero())
	assert.True(t, report.NetPayable.IsZero())
}

func TestVATReport_VoidedInputExcluded(t *testing.T) {
	f := newFixture(t)

	kept := f.post(t, date(2025, 6, 5), "1300", "1002", "100")
	voided := f.post(t, date(2025, 6, 10), "1300", "1002", "400")
	_, err := f.journal.VoidEntry(f.ctx, f.tc, voided, "wrong supplier")
	require.NoError(t, err)

	report, err := f.compliance.VATReport(f.ctx, f.tc, core.DateRange{From: date(2025, 6, 1), To: date(2025, 6, 30)})
	require.NoError(t, err)
	assert.True(t, report.InputVAT.Equal(dec("100")), "input VAT %s", report.InputVAT)
	assert.True(t, report.NetPayable.Equal(dec("-100")))

	// The reversal is dated today and credits 1300, so the current period carries nothing either.
	today := time.Now().UTC()
	report, err = f.compliance.VATReport(f.ctx, f.tc, core.YearRange(today.Year()))
	require.NoError(t, err)
	assert.True(t, report.InputVAT.IsZero())

	entry, err := f.journal.GetEntry(f.ctx, f.tc, kept)
	require.NoError(t, err)
	assert.Equal(t, core.EntryStatusPosted, entry.Status)
}

func TestVATReport_ReversalDebitIsNotInputVAT(t *testing.T) {
	f := newFixture(t)
	today := time.Now().UTC()

	// A refund of input VAT credits 1300; voiding it debits 1300 in the reversal.
	id := f.post(t, today, "1002", "1300", "50")
	_, err := f.journal.VoidEntry(f.ctx, f.tc, id, "")
	require.NoError(t, err)

	report, err := f.compliance.VATReport(f.ctx, f.tc, core.YearRange(today.Year()))
	require.NoError(t, err)
	assert.True(t, report.InputVAT.IsZero(), "input VAT %s", report.InputVAT)
	assert.True(t, f.balance(t, "1300").IsZero())
}

func TestZakatEstimate_VoidedEntryNetsOut(t *testing.T) {
	f := newFixture(t)
	today := time.Now().UTC()

	f.post(t, today, "1002", "3000", "500000")
	f.post(t, today, "1100", "4000", "120000")
	id := f.post(t, today, "5100", "1002", "40000")
	_, err := f.journal.VoidEntry(f.ctx, f.tc, id, "duplicate bill")
	require.NoError(t, err)

	est, err := f.compliance.ZakatEstimate(f.ctx, f.tc, today.Year())
	require.NoError(t, err)
	assert.True(t, est.Equity.Equal(dec("500000")))
	assert.True(t, est.NetIncome.Equal(dec("120000")), "net income %s", est.NetIncome)
	assert.True(t, est.Base.Equal(dec("620000")))
	assert.Equal(t, "15500.00", est.Amount.StringFixed(2))
}

func TestProfitAndLoss_PriorPeriodVoidLandsToday(t *testing.T) {
	f := newFixture(t)
	today := time.Now().UTC()
	march := core.DateRange{From: date(2025, 3, 1), To: date(2025, 3, 31)}

	f.post(t, date(2025, 3, 1), "1100", "4000", "2000")
	id := f.post(t, date(2025, 3, 5), "5400", "1001", "500")

	before, err := f.ledger.ProfitAndLoss(f.ctx, f.tc, march)
	require.NoError(t, err)
	assert.True(t, before.NetIncome.Equal(dec("1500")))

	_, err = f.journal.VoidEntry(f.ctx, f.tc, id, "")
	require.NoError(t, err)

	after, err := f.ledger.ProfitAndLoss(f.ctx, f.tc, march)
	require.NoError(t, err)
	assert.True(t, after.NetIncome.Equal(before.NetIncome), "closed period moved: %s", after.NetIncome)

	current, err := f.ledger.ProfitAndLoss(f.ctx, f.tc, core.YearRange(today.Year()))
	require.NoError(t, err)
	assert.True(t, current.TotalExpense.Equal(dec("-500")))
	assert.True(t, current.NetIncome.Equal(dec("500")))
}
