package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceTolerance is the largest debit/credit difference accepted as rounding.
// The journal books an accepted difference to the rounding account, so persisted
// entries always balance exactly.
var BalanceTolerance = decimal.RequireFromString("0.01")

// Normalize trims text fields and fills defaults: today's date and the reference as description.
func (in *EntryInput) Normalize(now time.Time) {
	in.Reference = strings.TrimSpace(in.Reference)
	in.Description = strings.TrimSpace(in.Description)
	in.SourceKey = strings.TrimSpace(in.SourceKey)
	if in.Date.IsZero() {
		in.Date = now
	}
	in.Date = truncateDay(in.Date)
	if in.Description == "" {
		in.Description = in.Reference
	}
	for i := range in.Lines {
		in.Lines[i].Description = strings.TrimSpace(in.Lines[i].Description)
	}
}

// Validate enforces the double-entry rules on a proposed entry:
// at least one line, every line a non-negative debit XOR credit against an account,
// and total debits equal to total credits within BalanceTolerance.
// Account existence is checked by the journal against the store.
func (in EntryInput) Validate() error {
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: entry must have at least one line", ErrInvalidEntry)
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero

	for i, line := range in.Lines {
		if line.AccountID <= 0 {
			return &InvalidLineError{Index: i, Reason: "account is required"}
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return &InvalidLineError{Index: i, Reason: "amounts cannot be negative"}
		}
		hasDebit := !line.Debit.IsZero()
		hasCredit := !line.Credit.IsZero()
		if hasDebit == hasCredit {
			return &InvalidLineError{Index: i, Reason: "line must have exactly one of debit or credit"}
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	if totalDebit.Sub(totalCredit).Abs().GreaterThan(BalanceTolerance) {
		return &UnbalancedEntryError{DebitTotal: totalDebit, CreditTotal: totalCredit}
	}
	return nil
}

// Totals returns the sum of debits and credits across the proposed lines.
func (in EntryInput) Totals() (debit, credit decimal.Decimal) {
	for _, l := range in.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Debit builds a debit line.
func Debit(accountID int64, amount decimal.Decimal, description string) LineInput {
	return LineInput{AccountID: accountID, Debit: amount, Description: description}
}

// Credit builds a credit line.
func Credit(accountID int64, amount decimal.Decimal, description string) LineInput {
	return LineInput{AccountID: accountID, Credit: amount, Description: description}
}
