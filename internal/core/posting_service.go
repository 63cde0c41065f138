package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// salesInvoiceSourcePrefix starts the source key of every sales invoice posting.
const salesInvoiceSourcePrefix = "sales-invoice-"

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCard         PaymentMethod = "CARD"
	PaymentCheque       PaymentMethod = "CHEQUE"
)

// SettlesThroughBank reports whether the method moves money through the bank account.
// Anything that is not a bank transfer or card settles through cash.
func (m PaymentMethod) SettlesThroughBank() bool {
	switch PaymentMethod(strings.ToUpper(strings.TrimSpace(string(m)))) {
	case PaymentBankTransfer, PaymentCard:
		return true
	}
	return false
}

// ExpenseEvent is an approved expense or disbursement.
// AccountCode overrides the General Expense account when set.
type ExpenseEvent struct {
	ExpenseID     string          `json:"expense_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	AccountCode   string          `json:"account_code,omitempty"`
}

// ProductionEvent is a completed work order valued at standard cost.
type ProductionEvent struct {
	WorkOrderID       string          `json:"work_order_id"`
	Date              time.Time       `json:"date"`
	Description       string          `json:"description"`
	TotalStandardCost decimal.Decimal `json:"total_standard_cost"`
}

// PayrollEvent is a payroll run marked paid.
type PayrollEvent struct {
	RunID         string          `json:"run_id"`
	Date          time.Time       `json:"date"`
	Period        string          `json:"period"`
	TotalNet      decimal.Decimal `json:"total_net"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

// PostingService turns business events into one balanced journal entry each.
// Every posting carries a source key derived from the source document id, so a
// re-triggered event fails with *DuplicateEntryError instead of posting twice.
type PostingService interface {
	SalesInvoiceEntry(ctx context.Context, lookup AccountLookup, tc TenantContext, inv *TaxInvoice) (EntryInput, error)
	ExpenseEntry(ctx context.Context, lookup AccountLookup, tc TenantContext, ev ExpenseEvent) (EntryInput, error)
	ProductionEntry(ctx context.Context, lookup AccountLookup, tc TenantContext, ev ProductionEvent) (EntryInput, error)
	PayrollEntry(ctx context.Context, lookup AccountLookup, tc TenantContext, ev PayrollEvent) (EntryInput, error)

	// PostSalesInvoiceTx posts an invoice inside a caller-owned transaction.
	PostSalesInvoiceTx(ctx context.Context, tx Store, tc TenantContext, inv *TaxInvoice) (*JournalEntry, error)
	PostExpense(ctx context.Context, tc TenantContext, ev ExpenseEvent) (int64, error)
	PostProduction(ctx context.Context, tc TenantContext, ev ProductionEvent) (int64, error)
	PostPayroll(ctx context.Context, tc TenantContext, ev PayrollEvent) (int64, error)
}

type postingService struct {
	store    Store
	journal  JournalService
	resolver AccountResolver
}

func NewPostingService(store Store, journal JournalService, resolver AccountResolver) PostingService {
	if resolver == nil {
		resolver = NewAccountResolver(nil)
	}
	return &postingService{store: store, journal: journal, resolver: resolver}
}

func (s *postingService) SalesInvoiceEntry(ctx context.Context, lookup AccountLookup, tc TenantContext, inv *TaxInvoice) (EntryInput, error) {
	if inv == nil || inv.ID == 0 {
		return EntryInput{}, fmt.Errorf("%w: invoice must be persisted before posting", ErrInvalidInput)
	}
	receivable, err := s.resolver.Resolve(ctx, lookup, tc.TenantID, RoleReceivable)
	if err != nil {
		return EntryInput{}, err
	}
	revenue, err := s.resolver.Resolve(ctx, lookup, tc.TenantID, RoleSalesRevenue)
	if err != nil {
		return EntryInput{}, err
	}
	vatOutput, err := s.resolver.Resolve(ctx, lookup, tc.TenantID, RoleVATOutput)
	if err != nil {
		return EntryInput{}, err
	}

	desc := fmt.Sprintf("Sales invoice %s", inv.InvoiceNumber)
	if inv.Buyer.Name != "" {
		desc = fmt.Sprintf("%s to %s", desc, inv.Buyer.Name)
	}
	lines := []LineInput{
		Debit(receivable.ID, inv.TotalAmount, "Receivable"),
		Credit(revenue.ID, inv.Subtotal, "Revenue"),
	}
	// A zero-rated invoice has no VAT line.
	if !inv.VATAmount.IsZero() {
		lines = append(lines, Credit(vatOutput.ID, inv.VATAmount, "VAT output"))
	}
	return EntryInput{
		Date:        inv.IssueDate,
		Reference:   inv.InvoiceNumber,
		Description: desc,
		SourceKey:   fmt.Sprintf("%s%d", salesInvoiceSourcePrefix, inv.ID),
		Lines:       lines,
	}, nil
}

func (s *postingService) ExpenseEntry(ctx context.Context, lookup AccountLookup, tc TenantContext, ev ExpenseEvent) (EntryInput, error) {
	if strings.TrimSpace(ev.ExpenseID) == "" {
		return EntryInput{}, fmt.Errorf("%w: expense id is required", ErrInvalidInput)
	}
	var expense *Account
	var err error
	if ev.AccountCode != "" {
		expense, err = s.resolver.ResolveCode(ctx, lookup, tc.TenantID, ev.AccountCode)
	} else {
		expense, err = s.resolver.Resolve(ctx, lookup, tc.TenantID, RoleGeneralExpense)
	}
	if err != nil {
		return EntryInput{}, err
	}
	settlement, err := s.settlementAccount(ctx, lookup, tc, ev.PaymentMethod)
	if err != nil {
		return EntryInput{}, err
	}

	desc := ev.Description
	if desc == "" {
		desc = fmt.Sprintf("Expense %s", ev.ExpenseID)
	}
	return EntryInput{
		Date:        ev.Date,
		Reference:   ev.ExpenseID,
		Description: desc,
		SourceKey:   "expense-" + ev.ExpenseID,
		Lines: []LineInput{
			Debit(expense.ID, ev.Amount, desc),
			Credit(settlement.ID, ev.Amount, string(ev.PaymentMethod)),
		},
	}, nil
}

func (s *postingService) ProductionEntry(ctx context.Context, lookup AccountLookup, tc TenantContext, ev ProductionEvent) (EntryInput, error) {
	if strings.TrimSpace(ev.WorkOrderID) == "" {
		return EntryInput{}, fmt.Errorf("%w: work order id is required", ErrInvalidInput)
	}
	inventory, err := s.resolver.Resolve(ctx, lookup, tc.TenantID, RoleInventory)
	if err != nil {
		return EntryInput{}, err
	}
	cogs, err := s.resolver.Resolve(ctx, lookup, tc.TenantID, RoleCOGS)
	if err != nil {
		return EntryInput{}, err
	}

	desc := ev.Description
	if desc == "" {
		desc = fmt.Sprintf("Work order %s completed", ev.WorkOrderID)
	}
	return EntryInput{
		Date:        ev.Date,
		Reference:   ev.WorkOrderID,
		Description: desc,
		SourceKey:   "work-order-" + ev.WorkOrderID,
		Lines: []LineInput{
			Debit(inventory.ID, ev.TotalStandardCost, "Finished goods"),
			Credit(cogs.ID, ev.TotalStandardCost, "Production cost offset"),
		},
	}, nil
}

func (s *postingService) PayrollEntry(ctx context.Context, lookup AccountLookup, tc TenantContext, ev PayrollEvent) (EntryInput, error) {
	if strings.TrimSpace(ev.RunID) == "" {
		return EntryInput{}, fmt.Errorf("%w: payroll run id is required", ErrInvalidInput)
	}
	salaries, err := s.resolver.Resolve(ctx, lookup, tc.TenantID, RoleSalaries)
	if err != nil {
		return EntryInput{}, err
	}
	settlement, err := s.settlementAccount(ctx, lookup, tc, ev.PaymentMethod)
	if err != nil {
		return EntryInput{}, err
	}

	desc := fmt.Sprintf("Payroll run %s", ev.RunID)
	if ev.Period != "" {
		desc = fmt.Sprintf("%s (%s)", desc, ev.Period)
	}
	return EntryInput{
		Date:        ev.Date,
		Reference:   ev.RunID,
		Description: desc,
		SourceKey:   "payroll-run-" + ev.RunID,
		Lines: []LineInput{
			Debit(salaries.ID, ev.TotalNet, "Net salaries"),
			Credit(settlement.ID, ev.TotalNet, string(ev.PaymentMethod)),
		},
	}, nil
}

func (s *postingService) settlementAccount(ctx context.Context, lookup AccountLookup, tc TenantContext, m PaymentMethod) (*Account, error) {
	if m.SettlesThroughBank() {
		return s.resolver.Resolve(ctx, lookup, tc.TenantID, RoleBank)
	}
	return s.resolver.Resolve(ctx, lookup, tc.TenantID, RoleCash)
}

func (s *postingService) PostSalesInvoiceTx(ctx context.Context, tx Store, tc TenantContext, inv *TaxInvoice) (*JournalEntry, error) {
	in, err := s.SalesInvoiceEntry(ctx, tx, tc, inv)
	if err != nil {
		return nil, err
	}
	return s.journal.CreateEntryTx(ctx, tx, tc, in)
}

func (s *postingService) PostExpense(ctx context.Context, tc TenantContext, ev ExpenseEvent) (int64, error) {
	return s.post(ctx, tc, func(tx Store) (EntryInput, error) {
		return s.ExpenseEntry(ctx, tx, tc, ev)
	})
}

func (s *postingService) PostProduction(ctx context.Context, tc TenantContext, ev ProductionEvent) (int64, error) {
	return s.post(ctx, tc, func(tx Store) (EntryInput, error) {
		return s.ProductionEntry(ctx, tx, tc, ev)
	})
}

func (s *postingService) PostPayroll(ctx context.Context, tc TenantContext, ev PayrollEvent) (int64, error) {
	return s.post(ctx, tc, func(tx Store) (EntryInput, error) {
		return s.PayrollEntry(ctx, tx, tc, ev)
	})
}

// post resolves accounts and writes the entry in one transaction.
func (s *postingService) post(ctx context.Context, tc TenantContext, build func(tx Store) (EntryInput, error)) (int64, error) {
	if err := tc.validate(); err != nil {
		return 0, err
	}
	var id int64
	err := s.store.WithTx(ctx, func(tx Store) error {
		in, err := build(tx)
		if err != nil {
			return err
		}
		entry, err := s.journal.CreateEntryTx(ctx, tx, tc, in)
		if err != nil {
			return err
		}
		id = entry.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
