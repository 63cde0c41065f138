package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"erp-ledger/internal/core"
)

const dateLayout = "2006-01-02"

// Options configures NewAppService. Zero values fall back to the core defaults.
type Options struct {
	AccountMap core.AccountMap
	Policy     core.TransitionPolicy
	// Chart is what SeedAccounts inserts; nil means core.DefaultChart().
	Chart  []core.Account
	Logger *zap.Logger
}

type appService struct {
	accounts   core.AccountService
	journal    core.JournalService
	ledger     core.LedgerService
	posting    core.PostingService
	invoices   core.InvoiceService
	compliance core.ComplianceService
	chart      []core.Account
	now        func() time.Time
}

// NewAppService wires the core services over store and returns the facade.
func NewAppService(store core.Store, opts Options) ApplicationService {
	resolver := core.NewAccountResolver(opts.AccountMap)
	journal := core.NewJournalService(store, resolver, opts.Logger)
	ledger := core.NewLedgerService(store)
	posting := core.NewPostingService(store, journal, resolver)

	chart := opts.Chart
	if chart == nil {
		chart = core.DefaultChart()
	}

	return &appService{
		accounts:   core.NewAccountService(store),
		journal:    journal,
		ledger:     ledger,
		posting:    posting,
		invoices:   core.NewInvoiceService(store, posting, opts.Policy, opts.Logger),
		compliance: core.NewComplianceService(store, ledger, resolver),
		chart:      chart,
		now:        time.Now,
	}
}

// ── Accounts ──────────────────────────────────────────────────────────────────

func (s *appService) SeedAccounts(ctx context.Context, tc core.TenantContext) (*SeedResult, error) {
	added, err := s.accounts.SeedChartOfAccounts(ctx, tc, s.chart)
	if err != nil {
		return nil, err
	}
	return &SeedResult{Added: added, Accounts: len(s.chart)}, nil
}

func (s *appService) ListAccounts(ctx context.Context, tc core.TenantContext) ([]core.Account, error) {
	return s.accounts.ListAccounts(ctx, tc)
}

func (s *appService) CreateAccount(ctx context.Context, tc core.TenantContext, req CreateAccountRequest) (*core.Account, error) {
	typ := core.AccountType(strings.ToLower(strings.TrimSpace(req.Type)))
	return s.accounts.CreateAccount(ctx, tc, req.Code, req.Name, typ)
}

func (s *appService) UpdateAccount(ctx context.Context, tc core.TenantContext, id int64, req UpdateAccountRequest) (*core.Account, error) {
	if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: name or code is required", core.ErrInvalidInput)
	}

	var acc *core.Account
	var err error
	if strings.TrimSpace(req.Code) != "" {
		if acc, err = s.accounts.ChangeAccountCode(ctx, tc, id, req.Code); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.Name) != "" {
		if acc, err = s.accounts.RenameAccount(ctx, tc, id, req.Name); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (s *appService) DeleteAccount(ctx context.Context, tc core.TenantContext, id int64) error {
	return s.accounts.DeleteAccount(ctx, tc, id)
}

// ── Journal ───────────────────────────────────────────────────────────────────

func (s *appService) CreateEntry(ctx context.Context, tc core.TenantContext, req CreateEntryRequest) (*core.JournalEntry, error) {
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	lines := make([]core.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		acc, err := s.accountByCode(ctx, tc, l.AccountCode)
		if err != nil {
			return nil, err
		}
		lines = append(lines, core.LineInput{
			AccountID:   acc.ID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	}

	id, err := s.journal.CreateEntry(ctx, tc, core.EntryInput{
		Date:        date,
		Reference:   req.Reference,
		Description: req.Description,
		Draft:       req.Draft,
		SourceKey:   req.SourceKey,
		Lines:       lines,
	})
	if err != nil {
		return nil, err
	}
	return s.journal.GetEntry(ctx, tc, id)
}

func (s *appService) GetEntry(ctx context.Context, tc core.TenantContext, id int64) (*core.JournalEntry, error) {
	return s.journal.GetEntry(ctx, tc, id)
}

func (s *appService) ListEntries(ctx context.Context, tc core.TenantContext, q EntryQuery) ([]core.JournalEntry, error) {
	r, err := parseRange(q.From, q.To)
	if err != nil {
		return nil, err
	}
	status := core.EntryStatus(strings.ToUpper(strings.TrimSpace(q.Status)))
	switch status {
	case "", core.EntryStatusDraft, core.EntryStatusPosted, core.EntryStatusVoided:
	default:
		return nil, fmt.Errorf("%w: unknown entry status %q", core.ErrInvalidInput, q.Status)
	}
	return s.journal.ListEntries(ctx, tc, core.EntryFilter{Range: r, Status: status})
}

func (s *appService) PostEntry(ctx context.Context, tc core.TenantContext, id int64) (*core.JournalEntry, error) {
	if err := s.journal.PostEntry(ctx, tc, id); err != nil {
		return nil, err
	}
	return s.journal.GetEntry(ctx, tc, id)
}

func (s *appService) VoidEntry(ctx context.Context, tc core.TenantContext, id int64, reason string) (*VoidResult, error) {
	reversalID, err := s.journal.VoidEntry(ctx, tc, id, reason)
	if err != nil {
		return nil, err
	}
	res := &VoidResult{OriginalID: id, ReversalID: reversalID}
	if reversalID != id {
		if res.Reversal, err = s.journal.GetEntry(ctx, tc, reversalID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *appService) DeleteDraft(ctx context.Context, tc core.TenantContext, id int64) error {
	return s.journal.DeleteDraft(ctx, tc, id)
}

// ── Invoices ──────────────────────────────────────────────────────────────────

func (s *appService) CreateInvoice(ctx context.Context, tc core.TenantContext, req InvoiceRequest) (*core.TaxInvoice, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.invoices.CreateInvoice(ctx, tc, in)
}

func (s *appService) UpdateInvoice(ctx context.Context, tc core.TenantContext, id int64, req InvoiceRequest) (*core.TaxInvoice, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.invoices.UpdateInvoice(ctx, tc, id, in)
}

func (s *appService) GetInvoice(ctx context.Context, tc core.TenantContext, id int64) (*core.TaxInvoice, error) {
	return s.invoices.GetInvoice(ctx, tc, id)
}

func (s *appService) ListInvoices(ctx context.Context, tc core.TenantContext, q InvoiceQuery) ([]core.TaxInvoice, error) {
	r, err := parseRange(q.From, q.To)
	if err != nil {
		return nil, err
	}
	f := core.InvoiceFilter{Range: r}
	for _, st := range q.Statuses {
		if st = strings.TrimSpace(st); st != "" {
			f.Statuses = append(f.Statuses, core.InvoiceStatus(strings.ToUpper(st)))
		}
	}
	return s.invoices.ListInvoices(ctx, tc, f)
}

func (s *appService) ApproveInvoice(ctx context.Context, tc core.TenantContext, id int64) (*core.TaxInvoice, error) {
	return s.invoices.ApproveInvoice(ctx, tc, id)
}

func (s *appService) ReopenInvoice(ctx context.Context, tc core.TenantContext, id int64) (*core.TaxInvoice, error) {
	return s.invoices.ReopenInvoice(ctx, tc, id)
}

func (s *appService) PostInvoice(ctx context.Context, tc core.TenantContext, id int64) (*core.TaxInvoice, error) {
	return s.invoices.PostInvoice(ctx, tc, id)
}

func (r InvoiceRequest) toInput() (core.InvoiceInput, error) {
	date, err := parseOptionalDate("issue_date", r.IssueDate)
	if err != nil {
		return core.InvoiceInput{}, err
	}
	in := core.InvoiceInput{
		InvoiceNumber: r.InvoiceNumber,
		Type:          core.InvoiceType(strings.ToUpper(strings.TrimSpace(r.Type))),
		IssueDate:     date,
		Seller:        core.Party(r.Seller),
		Buyer:         core.Party(r.Buyer),
		Items:         make([]core.LineItemInput, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, core.LineItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			VATRate:     it.VATRate,
		})
	}
	return in, nil
}

// ── Postings ──────────────────────────────────────────────────────────────────

func (s *appService) PostExpense(ctx context.Context, tc core.TenantContext, req ExpenseRequest) (*PostingResult, error) {
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	id, err := s.posting.PostExpense(ctx, tc, core.ExpenseEvent{
		ExpenseID:     req.ExpenseID,
		Date:          date,
		Description:   req.Description,
		Amount:        req.Amount,
		PaymentMethod: core.PaymentMethod(req.PaymentMethod),
		AccountCode:   req.AccountCode,
	})
	return s.postingResult(ctx, tc, id, err)
}

func (s *appService) PostProduction(ctx context.Context, tc core.TenantContext, req ProductionRequest) (*PostingResult, error) {
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	id, err := s.posting.PostProduction(ctx, tc, core.ProductionEvent{
		WorkOrderID:       req.WorkOrderID,
		Date:              date,
		Description:       req.Description,
		TotalStandardCost: req.TotalStandardCost,
	})
	return s.postingResult(ctx, tc, id, err)
}

func (s *appService) PostPayroll(ctx context.Context, tc core.TenantContext, req PayrollRequest) (*PostingResult, error) {
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	id, err := s.posting.PostPayroll(ctx, tc, core.PayrollEvent{
		RunID:         req.RunID,
		Date:          date,
		Period:        req.Period,
		TotalNet:      req.TotalNet,
		PaymentMethod: core.PaymentMethod(req.PaymentMethod),
	})
	return s.postingResult(ctx, tc, id, err)
}

func (s *appService) postingResult(ctx context.Context, tc core.TenantContext, id int64, err error) (*PostingResult, error) {
	if err != nil {
		return nil, err
	}
	entry, err := s.journal.GetEntry(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	return &PostingResult{EntryID: id, Entry: entry}, nil
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) GetTrialBalance(ctx context.Context, tc core.TenantContext, from, to string) (*core.TrialBalance, error) {
	r, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.ledger.TrialBalanceBetween(ctx, tc, r)
}

func (s *appService) GetProfitAndLoss(ctx context.Context, tc core.TenantContext, from, to string) (*core.PLReport, error) {
	r, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.ledger.ProfitAndLoss(ctx, tc, r)
}

func (s *appService) GetBalanceSheet(ctx context.Context, tc core.TenantContext, asOfDate string) (*core.BSReport, error) {
	asOf, err := parseOptionalDate("as_of", asOfDate)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	return s.ledger.BalanceSheet(ctx, tc, asOf)
}

func (s *appService) GetAccountStatement(ctx context.Context, tc core.TenantContext, accountCode, from, to string) (*core.AccountStatement, error) {
	r, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.ledger.AccountStatement(ctx, tc, accountCode, r)
}

func (s *appService) GetVATReport(ctx context.Context, tc core.TenantContext, from, to string) (*core.VATReport, error) {
	r, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.compliance.VATReport(ctx, tc, r)
}

func (s *appService) GetZakatEstimate(ctx context.Context, tc core.TenantContext, year int) (*core.ZakatEstimate, error) {
	if year == 0 {
		year = s.now().Year()
	}
	return s.compliance.ZakatEstimate(ctx, tc, year)
}

func (s *appService) VerifyLedger(ctx context.Context, tc core.TenantContext) ([]core.IntegrityProblem, error) {
	return s.ledger.CheckIntegrity(ctx, tc)
}

// ── private helpers ───────────────────────────────────────────────────────────

// accountByCode reports an unknown code as a missing account rather than a 404,
// since the request itself names it.
func (s *appService) accountByCode(ctx context.Context, tc core.TenantContext, code string) (*core.Account, error) {
	acc, err := s.accounts.GetAccountByCode(ctx, tc, code)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, &core.MissingAccountError{Code: code}
		}
		return nil, err
	}
	return acc, nil
}

func parseOptionalDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", core.ErrInvalidInput, field, s)
	}
	return t, nil
}

func parseRange(from, to string) (core.DateRange, error) {
	var r core.DateRange
	var err error
	if r.From, err = parseOptionalDate("from", from); err != nil {
		return r, err
	}
	if r.To, err = parseOptionalDate("to", to); err != nil {
		return r, err
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, fmt.Errorf("%w: range ends before it starts", core.ErrInvalidInput)
	}
	return r, nil
}
