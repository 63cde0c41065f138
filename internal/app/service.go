package app

import (
	"context"

	"erp-ledger/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
//
// Dates in requests are YYYY-MM-DD strings; an empty string means unbounded, or
// today where a single date is needed.
type ApplicationService interface {
	// SeedAccounts inserts the configured chart of accounts for the tenant. Idempotent.
	SeedAccounts(ctx context.Context, tc core.TenantContext) (*SeedResult, error)
	ListAccounts(ctx context.Context, tc core.TenantContext) ([]core.Account, error)
	CreateAccount(ctx context.Context, tc core.TenantContext, req CreateAccountRequest) (*core.Account, error)
	// UpdateAccount renames the account and, when Code is set, changes its code.
	UpdateAccount(ctx context.Context, tc core.TenantContext, id int64, req UpdateAccountRequest) (*core.Account, error)
	DeleteAccount(ctx context.Context, tc core.TenantContext, id int64) error

	// CreateEntry posts a manual journal entry whose lines name accounts by code.
	CreateEntry(ctx context.Context, tc core.TenantContext, req CreateEntryRequest) (*core.JournalEntry, error)
	GetEntry(ctx context.Context, tc core.TenantContext, id int64) (*core.JournalEntry, error)
	ListEntries(ctx context.Context, tc core.TenantContext, q EntryQuery) ([]core.JournalEntry, error)
	PostEntry(ctx context.Context, tc core.TenantContext, id int64) (*core.JournalEntry, error)
	// VoidEntry reverses a posted entry; see core.JournalService.VoidEntry.
	VoidEntry(ctx context.Context, tc core.TenantContext, id int64, reason string) (*VoidResult, error)
	DeleteDraft(ctx context.Context, tc core.TenantContext, id int64) error

	CreateInvoice(ctx context.Context, tc core.TenantContext, req InvoiceRequest) (*core.TaxInvoice, error)
	UpdateInvoice(ctx context.Context, tc core.TenantContext, id int64, req InvoiceRequest) (*core.TaxInvoice, error)
	GetInvoice(ctx context.Context, tc core.TenantContext, id int64) (*core.TaxInvoice, error)
	ListInvoices(ctx context.Context, tc core.TenantContext, q InvoiceQuery) ([]core.TaxInvoice, error)
	ApproveInvoice(ctx context.Context, tc core.TenantContext, id int64) (*core.TaxInvoice, error)
	ReopenInvoice(ctx context.Context, tc core.TenantContext, id int64) (*core.TaxInvoice, error)
	PostInvoice(ctx context.Context, tc core.TenantContext, id int64) (*core.TaxInvoice, error)

	PostExpense(ctx context.Context, tc core.TenantContext, req ExpenseRequest) (*PostingResult, error)
	PostProduction(ctx context.Context, tc core.TenantContext, req ProductionRequest) (*PostingResult, error)
	PostPayroll(ctx context.Context, tc core.TenantContext, req PayrollRequest) (*PostingResult, error)

	GetTrialBalance(ctx context.Context, tc core.TenantContext, from, to string) (*core.TrialBalance, error)
	GetProfitAndLoss(ctx context.Context, tc core.TenantContext, from, to string) (*core.PLReport, error)
	// GetBalanceSheet returns the Balance Sheet as of the given date.
	// If asOfDate is empty, today's date is used.
	GetBalanceSheet(ctx context.Context, tc core.TenantContext, asOfDate string) (*core.BSReport, error)
	GetAccountStatement(ctx context.Context, tc core.TenantContext, accountCode, from, to string) (*core.AccountStatement, error)
	GetVATReport(ctx context.Context, tc core.TenantContext, from, to string) (*core.VATReport, error)
	GetZakatEstimate(ctx context.Context, tc core.TenantContext, year int) (*core.ZakatEstimate, error)
	// VerifyLedger re-checks every balance-affecting entry. An empty result means healthy.
	VerifyLedger(ctx context.Context, tc core.TenantContext) ([]core.IntegrityProblem, error)
}
