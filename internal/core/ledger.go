package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one account's totals. Balance follows the account type's sign
// convention (see AccountType.SignedBalance).
type TrialBalanceRow struct {
	AccountID   int64           `json:"account_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalance lists every account of the tenant, ordered by code.
// Balanced holds when total debits equal total credits across all accounts.
type TrialBalance struct {
	Range       DateRange         `json:"range"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
}

// Net returns total debits minus total credits; zero for a balanced ledger.
func (tb *TrialBalance) Net() decimal.Decimal {
	return tb.TotalDebit.Sub(tb.TotalCredit)
}

// SumBalances adds the balances of every row of type typ.
func (tb *TrialBalance) SumBalances(typ AccountType) decimal.Decimal {
	total := decimal.Zero
	for _, r := range tb.Rows {
		if r.Type == typ {
			total = total.Add(r.Balance)
		}
	}
	return total
}

// Row returns the row for an account code.
func (tb *TrialBalance) Row(code string) (TrialBalanceRow, bool) {
	for _, r := range tb.Rows {
		if r.Code == code {
			return r, true
		}
	}
	return TrialBalanceRow{}, false
}

// AccountLine is a single account in a P&L or Balance Sheet section.
// Balance is positive for the section's normal side.
type AccountLine struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// PLReport is the Profit & Loss report for a date range.
type PLReport struct {
	Range        DateRange       `json:"range"`
	Revenue      []AccountLine   `json:"revenue"`
	Expenses     []AccountLine   `json:"expenses"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetIncome    decimal.Decimal `json:"net_income"`
}

// BSReport is the Balance Sheet as of a date. CurrentEarnings is revenue minus
// expense not yet closed to equity, so IsBalanced holds for any balanced ledger.
type BSReport struct {
	AsOf             time.Time       `json:"as_of"`
	Assets           []AccountLine   `json:"assets"`
	Liabilities      []AccountLine   `json:"liabilities"`
	Equity           []AccountLine   `json:"equity"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	CurrentEarnings  decimal.Decimal `json:"current_earnings"`
	IsBalanced       bool            `json:"is_balanced"`
}

// StatementLine is one journal line in an account statement. RunningBalance is
// the cumulative balance after this line in the account type's sign convention.
type StatementLine struct {
	EntryID        int64           `json:"entry_id"`
	EntryNumber    string          `json:"entry_number"`
	Date           time.Time       `json:"date"`
	Reference      string          `json:"reference"`
	Description    string          `json:"description"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// AccountStatement lists the balance-affecting lines of one account.
type AccountStatement struct {
	Account        Account         `json:"account"`
	Range          DateRange       `json:"range"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Lines          []StatementLine `json:"lines"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// IntegrityProblem is one violation found by CheckIntegrity.
type IntegrityProblem struct {
	EntryID     int64  `json:"entry_id,omitempty"`
	EntryNumber string `json:"entry_number,omitempty"`
	Description string `json:"description"`
}

// LedgerService aggregates balance-affecting journal lines into reports.
// All methods are read-only and see committed entries only.
type LedgerService interface {
	TrialBalance(ctx context.Context, tc TenantContext) (*TrialBalance, error)
	TrialBalanceBetween(ctx context.Context, tc TenantContext, r DateRange) (*TrialBalance, error)
	ProfitAndLoss(ctx context.Context, tc TenantContext, r DateRange) (*PLReport, error)
	BalanceSheet(ctx context.Context, tc TenantContext, asOf time.Time) (*BSReport, error)
	// AccountStatement returns the account's lines in r ordered by date then entry id.
	// The opening balance covers everything dated before r.From.
	AccountStatement(ctx context.Context, tc TenantContext, code string, r DateRange) (*AccountStatement, error)
	// PostedDebits sums the debit lines on an account of entries dated in r that are
	// still POSTED. Voided originals and reversal entries are left out.
	PostedDebits(ctx context.Context, tc TenantContext, accountID int64, r DateRange) (decimal.Decimal, error)
	// CheckIntegrity re-verifies every balance-affecting entry and the global balance.
	CheckIntegrity(ctx context.Context, tc TenantContext) ([]IntegrityProblem, error)
}

type ledgerService struct {
	store Store
}

func NewLedgerService(store Store) LedgerService {
	return &ledgerService{store: store}
}

func (s *ledgerService) TrialBalance(ctx context.Context, tc TenantContext) (*TrialBalance, error) {
	return s.TrialBalanceBetween(ctx, tc, DateRange{})
}

func (s *ledgerService) TrialBalanceBetween(ctx context.Context, tc TenantContext, r DateRange) (*TrialBalance, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}

	accounts, err := s.store.ListAccounts(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	totals, err := s.store.SumLedgerLines(ctx, tc.TenantID, r)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger lines: %w", err)
	}

	byAccount := make(map[int64]AccountTotals, len(totals))
	for _, t := range totals {
		byAccount[t.AccountID] = t
	}

	tb := &TrialBalance{Range: r}
	for _, a := range accounts {
		t := byAccount[a.ID]
		tb.Rows = append(tb.Rows, TrialBalanceRow{
			AccountID:   a.ID,
			Code:        a.Code,
			Name:        a.Name,
			Type:        a.Type,
			TotalDebit:  t.TotalDebit,
			TotalCredit: t.TotalCredit,
			Balance:     a.Type.SignedBalance(t.TotalDebit, t.TotalCredit),
		})
		tb.TotalDebit = tb.TotalDebit.Add(t.TotalDebit)
		tb.TotalCredit = tb.TotalCredit.Add(t.TotalCredit)
	}
	sort.Slice(tb.Rows, func(i, j int) bool { return tb.Rows[i].Code < tb.Rows[j].Code })
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb, nil
}

func (s *ledgerService) ProfitAndLoss(ctx context.Context, tc TenantContext, r DateRange) (*PLReport, error) {
	tb, err := s.TrialBalanceBetween(ctx, tc, r)
	if err != nil {
		return nil, err
	}

	report := &PLReport{Range: r}
	for _, row := range tb.Rows {
		switch row.Type {
		case Revenue:
			report.Revenue = append(report.Revenue, AccountLine{Code: row.Code, Name: row.Name, Balance: row.Balance})
			report.TotalRevenue = report.TotalRevenue.Add(row.Balance)
		case Expense:
			report.Expenses = append(report.Expenses, AccountLine{Code: row.Code, Name: row.Name, Balance: row.Balance})
			report.TotalExpense = report.TotalExpense.Add(row.Balance)
		}
	}
	report.NetIncome = report.TotalRevenue.Sub(report.TotalExpense)
	return report, nil
}

func (s *ledgerService) BalanceSheet(ctx context.Context, tc TenantContext, asOf time.Time) (*BSReport, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	asOf = truncateDay(asOf)

	tb, err := s.TrialBalanceBetween(ctx, tc, DateRange{To: asOf})
	if err != nil {
		return nil, err
	}

	report := &BSReport{AsOf: asOf}
	for _, row := range tb.Rows {
		line := AccountLine{Code: row.Code, Name: row.Name, Balance: row.Balance}
		switch row.Type {
		case Asset:
			report.Assets = append(report.Assets, line)
			report.TotalAssets = report.TotalAssets.Add(row.Balance)
		case Liability:
			report.Liabilities = append(report.Liabilities, line)
			report.TotalLiabilities = report.TotalLiabilities.Add(row.Balance)
		case Equity:
			report.Equity = append(report.Equity, line)
			report.TotalEquity = report.TotalEquity.Add(row.Balance)
		case Revenue:
			report.CurrentEarnings = report.CurrentEarnings.Add(row.Balance)
		case Expense:
			report.CurrentEarnings = report.CurrentEarnings.Sub(row.Balance)
		}
	}

	claims := report.TotalLiabilities.Add(report.TotalEquity).Add(report.CurrentEarnings)
	report.IsBalanced = report.TotalAssets.Equal(claims)
	return report, nil
}

func (s *ledgerService) AccountStatement(ctx context.Context, tc TenantContext, code string, r DateRange) (*AccountStatement, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	acc, err := s.store.GetAccountByCode(ctx, tc.TenantID, code)
	if err != nil {
		return nil, err
	}

	stmt := &AccountStatement{Account: *acc, Range: r}
	if !r.From.IsZero() {
		opening, err := s.TrialBalanceBetween(ctx, tc, DateRange{To: truncateDay(r.From).AddDate(0, 0, -1)})
		if err != nil {
			return nil, err
		}
		if row, ok := opening.Row(acc.Code); ok {
			stmt.OpeningBalance = row.Balance
		}
	}

	entries, err := s.store.ListEntries(ctx, tc.TenantID, EntryFilter{Range: r})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].ID < entries[j].ID
	})

	running := stmt.OpeningBalance
	for _, e := range entries {
		if !e.AffectsBalances() {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountID != acc.ID {
				continue
			}
			running = running.Add(acc.Type.SignedBalance(l.Debit, l.Credit))
			desc := l.Description
			if desc == "" {
				desc = e.Description
			}
			stmt.Lines = append(stmt.Lines, StatementLine{
				EntryID:        e.ID,
				EntryNumber:    e.EntryNumber,
				Date:           e.Date,
				Reference:      e.Reference,
				Description:    desc,
				Debit:          l.Debit,
				Credit:         l.Credit,
				RunningBalance: running,
			})
		}
	}
	stmt.ClosingBalance = running
	return stmt, nil
}

func (s *ledgerService) PostedDebits(ctx context.Context, tc TenantContext, accountID int64, r DateRange) (decimal.Decimal, error) {
	if err := tc.validate(); err != nil {
		return decimal.Zero, err
	}
	entries, err := s.store.ListEntries(ctx, tc.TenantID, EntryFilter{Range: r, Status: EntryStatusPosted})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list entries: %w", err)
	}
	total := decimal.Zero
	for _, e := range entries {
		if e.ReversalOf != nil {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountID == accountID {
				total = total.Add(l.Debit)
			}
		}
	}
	return total, nil
}

// CheckIntegrity requires every entry and the trial balance to balance exactly.
func (s *ledgerService) CheckIntegrity(ctx context.Context, tc TenantContext) ([]IntegrityProblem, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}

	entries, err := s.store.ListEntries(ctx, tc.TenantID, EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	var problems []IntegrityProblem
	for _, e := range entries {
		if !e.AffectsBalances() {
			continue
		}
		if len(e.Lines) == 0 {
			problems = append(problems, IntegrityProblem{EntryID: e.ID, EntryNumber: e.EntryNumber, Description: "entry has no lines"})
		}
		for i, l := range e.Lines {
			if l.Debit.IsZero() == l.Credit.IsZero() {
				problems = append(problems, IntegrityProblem{
					EntryID:     e.ID,
					EntryNumber: e.EntryNumber,
					Description: fmt.Sprintf("line %d must have exactly one of debit or credit", i+1),
				})
			}
		}
		debit, credit := e.Totals()
		if !debit.Equal(credit) {
			problems = append(problems, IntegrityProblem{
				EntryID:     e.ID,
				EntryNumber: e.EntryNumber,
				Description: fmt.Sprintf("debits %s != credits %s", debit.StringFixed(2), credit.StringFixed(2)),
			})
		}
		if e.Status == EntryStatusVoided && e.ReversedBy != nil {
			if _, err := s.store.GetEntry(ctx, tc.TenantID, *e.ReversedBy); err != nil {
				problems = append(problems, IntegrityProblem{
					EntryID:     e.ID,
					EntryNumber: e.EntryNumber,
					Description: fmt.Sprintf("reversal entry %d is missing", *e.ReversedBy),
				})
			}
		}
	}

	tb, err := s.TrialBalance(ctx, tc)
	if err != nil {
		return nil, err
	}
	if !tb.Balanced {
		problems = append(problems, IntegrityProblem{
			Description: fmt.Sprintf("trial balance out by %s", tb.Net().StringFixed(2)),
		})
	}
	return problems, nil
}
