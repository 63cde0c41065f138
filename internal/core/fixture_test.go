package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"erp-ledger/internal/core"
	"erp-ledger/internal/store/memory"
)

type fixture struct {
	ctx        context.Context
	store      *memory.Store
	tc         core.TenantContext
	accounts   core.AccountService
	journal    core.JournalService
	ledger     core.LedgerService
	posting    core.PostingService
	invoices   core.InvoiceService
	compliance core.ComplianceService
	ids        map[string]int64
}

// newFixture seeds the default chart for a fresh tenant on an in-memory store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, core.DefaultChart(), nil)
}

func newFixtureWith(t *testing.T, chart []core.Account, policy core.TransitionPolicy) *fixture {
	t.Helper()

	store := memory.New()
	resolver := core.NewAccountResolver(nil)
	journal := core.NewJournalService(store, resolver, nil)
	ledger := core.NewLedgerService(store)
	posting := core.NewPostingService(store, journal, resolver)

	f := &fixture{
		ctx:   context.Background(),
		store: store,
		tc: core.TenantContext{
			TenantID: "tenant-" + uuid.NewString(),
			Actor:    core.Actor{ID: "alice", Roles: []string{"accountant"}},
		},
		accounts:   core.NewAccountService(store),
		journal:    journal,
		ledger:     ledger,
		posting:    posting,
		invoices:   core.NewInvoiceService(store, posting, policy, nil),
		compliance: core.NewComplianceService(store, ledger, resolver),
		ids:        make(map[string]int64),
	}

	_, err := f.accounts.SeedChartOfAccounts(f.ctx, f.tc, chart)
	require.NoError(t, err)

	accs, err := f.accounts.ListAccounts(f.ctx, f.tc)
	require.NoError(t, err)
	for _, a := range accs {
		f.ids[a.Code] = a.ID
	}
	return f
}

// post creates a posted two-line entry debiting one code and crediting another.
func (f *fixture) post(t *testing.T, on time.Time, debitCode, creditCode, amount string) int64 {
	t.Helper()
	id, err := f.journal.CreateEntry(f.ctx, f.tc, core.EntryInput{
		Date:      on,
		Reference: debitCode + "/" + creditCode,
		Lines: []core.LineInput{
			core.Debit(f.ids[debitCode], dec(amount), ""),
			core.Credit(f.ids[creditCode], dec(amount), ""),
		},
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) balance(t *testing.T, code string) decimal.Decimal {
	t.Helper()
	tb, err := f.ledger.TrialBalance(f.ctx, f.tc)
	require.NoError(t, err)
	row, ok := tb.Row(code)
	require.True(t, ok, "account %s not in trial balance", code)
	return row.Balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
