package core

import "context"

// AccountLookup resolves an account by code within one tenant.
// Satisfied by Store and by a Store transaction.
type AccountLookup interface {
	GetAccountByCode(ctx context.Context, tenantID, code string) (*Account, error)
}

// Store persists accounts, journal entries and invoices for all tenants.
// Every method is tenant-scoped; rows of other tenants are invisible.
//
// Each method is atomic on its own. WithTx groups several calls into one
// all-or-nothing unit; a header is never visible without its full line set.
// Lookups by id or code return *NotFoundError when nothing matches.
type Store interface {
	AccountLookup

	// WithTx runs fn inside a transaction. A nil return commits, an error rolls back.
	// Calling WithTx on a transaction store runs fn in the same transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// InsertAccount assigns a.ID. Returns ErrDuplicateAccount when the code exists.
	InsertAccount(ctx context.Context, tenantID string, a *Account) error
	GetAccount(ctx context.Context, tenantID string, id int64) (*Account, error)
	ListAccounts(ctx context.Context, tenantID string) ([]Account, error)
	// UpdateAccount rewrites code and name.
	UpdateAccount(ctx context.Context, tenantID string, a *Account) error
	DeleteAccount(ctx context.Context, tenantID string, id int64) error
	AccountReferenced(ctx context.Context, tenantID string, id int64) (bool, error)

	// NextSequence returns the next gapless number for (tenant, typeCode, year), starting at 1.
	NextSequence(ctx context.Context, tenantID, typeCode string, year int) (int64, error)

	// InsertEntry persists header and lines, assigning IDs. Returns *DuplicateEntryError
	// when e.SourceKey is already used by the tenant.
	InsertEntry(ctx context.Context, tenantID string, e *JournalEntry) error
	GetEntry(ctx context.Context, tenantID string, id int64) (*JournalEntry, error)
	ListEntries(ctx context.Context, tenantID string, f EntryFilter) ([]JournalEntry, error)
	UpdateEntryStatus(ctx context.Context, tenantID string, id int64, status EntryStatus, reversedBy *int64) error
	// DeleteEntry removes a DRAFT entry and its lines.
	DeleteEntry(ctx context.Context, tenantID string, id int64) error
	// SumLedgerLines totals debits and credits per account over entries that affect
	// balances (see JournalEntry.AffectsBalances) dated inside r.
	SumLedgerLines(ctx context.Context, tenantID string, r DateRange) ([]AccountTotals, error)

	InsertInvoice(ctx context.Context, tenantID string, inv *TaxInvoice) error
	// GetInvoice locks the row for update when called inside a transaction.
	GetInvoice(ctx context.Context, tenantID string, id int64) (*TaxInvoice, error)
	UpdateInvoice(ctx context.Context, tenantID string, inv *TaxInvoice) error
	ListInvoices(ctx context.Context, tenantID string, f InvoiceFilter) ([]TaxInvoice, error)
}
