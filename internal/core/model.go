package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Revenue   AccountType = "revenue"
	Expense   AccountType = "expense"
)

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// DebitNormal reports whether the account type carries a debit balance.
func (t AccountType) DebitNormal() bool {
	return t == Asset || t == Expense
}

// SignedBalance applies the account type's sign convention:
// Asset/Expense show debit - credit, everything else credit - debit.
func (t AccountType) SignedBalance(debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

type Account struct {
	ID       int64       `json:"id"`
	TenantID string      `json:"tenant_id"`
	Code     string      `json:"code"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	IsSystem bool        `json:"is_system"`
}

type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "DRAFT"
	EntryStatusPosted EntryStatus = "POSTED"
	EntryStatusVoided EntryStatus = "VOIDED"
)

// JournalEntry is a journal header with the lines it owns.
// ReversalOf is set on a reversal entry; ReversedBy is set on the voided original.
type JournalEntry struct {
	ID          int64         `json:"id"`
	TenantID    string        `json:"tenant_id"`
	EntryNumber string        `json:"entry_number"`
	Date        time.Time     `json:"date"`
	Reference   string        `json:"reference"`
	Description string        `json:"description"`
	Status      EntryStatus   `json:"status"`
	SourceKey   string        `json:"source_key,omitempty"`
	ReversalOf  *int64        `json:"reversal_of,omitempty"`
	ReversedBy  *int64        `json:"reversed_by,omitempty"`
	Lines       []JournalLine `json:"lines"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Totals returns the sum of debits and credits across the entry's lines.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// AffectsBalances reports whether the entry counts towards ledger balances.
// A voided original still counts when it has a reversal, so the pair nets to zero.
func (e JournalEntry) AffectsBalances() bool {
	switch e.Status {
	case EntryStatusPosted:
		return true
	case EntryStatusVoided:
		return e.ReversedBy != nil
	}
	return false
}

type JournalLine struct {
	ID          int64           `json:"id"`
	JournalID   int64           `json:"journal_id"`
	AccountID   int64           `json:"account_id"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// EntryInput is a proposed journal entry.
type EntryInput struct {
	Date        time.Time
	Reference   string
	Description string
	// Draft requests a Draft entry that needs a separate PostEntry call.
	Draft bool
	// SourceKey deduplicates postings of the same source document.
	SourceKey string
	Lines     []LineInput
}

type LineInput struct {
	AccountID   int64
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// DateRange is an inclusive range of calendar dates. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls inside the range, compared by calendar date.
func (r DateRange) Contains(d time.Time) bool {
	day := truncateDay(d)
	if !r.From.IsZero() && day.Before(truncateDay(r.From)) {
		return false
	}
	if !r.To.IsZero() && day.After(truncateDay(r.To)) {
		return false
	}
	return true
}

// YearRange returns 1 January through 31 December of year.
func YearRange(year int) DateRange {
	return DateRange{
		From: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AccountTotals is the raw debit/credit sum for one account.
type AccountTotals struct {
	AccountID   int64
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

type EntryFilter struct {
	Range  DateRange
	Status EntryStatus
}
