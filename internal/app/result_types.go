package app

import "erp-ledger/internal/core"

// SeedResult is returned by SeedAccounts.
type SeedResult struct {
	Added    int `json:"added"`
	Accounts int `json:"accounts"`
}

// VoidResult is returned by VoidEntry. ReversalID equals OriginalID for a voided draft.
type VoidResult struct {
	OriginalID int64              `json:"original_id"`
	ReversalID int64              `json:"reversal_id"`
	Reversal   *core.JournalEntry `json:"reversal,omitempty"`
}

// PostingResult is returned by the event posting operations.
type PostingResult struct {
	EntryID int64              `json:"entry_id"`
	Entry   *core.JournalEntry `json:"entry"`
}
