package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ZakatRate is the share of the zakat base due each year.
var ZakatRate = decimal.RequireFromString("0.025")

// vatReportStatuses are the invoice statuses that count as issued for VAT.
var vatReportStatuses = []InvoiceStatus{
	InvoiceStatusPosted,
	InvoiceStatusSentToAuthority,
	InvoiceStatusPaid,
}

// VATReport summarises output and input VAT for a period.
// NetPayable is negative for a refund position.
type VATReport struct {
	Range           DateRange       `json:"range"`
	StandardCount   int             `json:"standard_count"`
	SimplifiedCount int             `json:"simplified_count"`
	InvoiceCount    int             `json:"invoice_count"`
	TaxableAmount   decimal.Decimal `json:"taxable_amount"`
	OutputVAT       decimal.Decimal `json:"output_vat"`
	InputVAT        decimal.Decimal `json:"input_vat"`
	NetPayable      decimal.Decimal `json:"net_payable"`
}

// ZakatEstimate reports the inputs, base and amount of the zakat estimate for a year.
type ZakatEstimate struct {
	Year        int             `json:"year"`
	Equity      decimal.Decimal `json:"equity"`
	NetIncome   decimal.Decimal `json:"net_income"`
	FixedAssets decimal.Decimal `json:"fixed_assets"`
	Base        decimal.Decimal `json:"base"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// ComputeZakat derives base and amount:
//
//	base   = |equity| + netIncome - fixedAssets
//	amount = max(0, base) * ZakatRate, rounded to 2 dp
func ComputeZakat(year int, equity, netIncome, fixedAssets decimal.Decimal) ZakatEstimate {
	base := equity.Abs().Add(netIncome).Sub(fixedAssets)
	amount := decimal.Zero
	if base.IsPositive() {
		amount = base.Mul(ZakatRate).Round(2)
	}
	return ZakatEstimate{
		Year:        year,
		Equity:      equity,
		NetIncome:   netIncome,
		FixedAssets: fixedAssets,
		Base:        base,
		Rate:        ZakatRate,
		Amount:      amount,
	}
}

// ComplianceService derives VAT and Zakat figures from invoices and the ledger.
// Nothing here mutates state.
type ComplianceService interface {
	VATReport(ctx context.Context, tc TenantContext, r DateRange) (*VATReport, error)
	ZakatEstimate(ctx context.Context, tc TenantContext, year int) (*ZakatEstimate, error)
}

type complianceService struct {
	store    Store
	ledger   LedgerService
	resolver AccountResolver
}

func NewComplianceService(store Store, ledger LedgerService, resolver AccountResolver) ComplianceService {
	if resolver == nil {
		resolver = NewAccountResolver(nil)
	}
	return &complianceService{store: store, ledger: ledger, resolver: resolver}
}

func (s *complianceService) VATReport(ctx context.Context, tc TenantContext, r DateRange) (*VATReport, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}

	invoices, err := s.store.ListInvoices(ctx, tc.TenantID, InvoiceFilter{Range: r, Statuses: vatReportStatuses})
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	report := &VATReport{Range: r}
	for _, inv := range invoices {
		switch inv.Type {
		case InvoiceTypeSimplified:
			report.SimplifiedCount++
		default:
			report.StandardCount++
		}
		report.TaxableAmount = report.TaxableAmount.Add(inv.Subtotal)
		report.OutputVAT = report.OutputVAT.Add(inv.VATAmount)
	}
	report.InvoiceCount = len(invoices)

	vatInput, err := s.resolver.Resolve(ctx, s.store, tc.TenantID, RoleVATInput)
	if err != nil {
		return nil, err
	}
	inputVAT, err := s.ledger.PostedDebits(ctx, tc, vatInput.ID, r)
	if err != nil {
		return nil, err
	}
	report.InputVAT = inputVAT

	report.NetPayable = report.OutputVAT.Sub(report.InputVAT)
	return report, nil
}

func (s *complianceService) ZakatEstimate(ctx context.Context, tc TenantContext, year int) (*ZakatEstimate, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	if year < 1 {
		return nil, fmt.Errorf("%w: year must be positive", ErrInvalidInput)
	}

	period := YearRange(year)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	fixedAssets, err := s.resolver.Resolve(ctx, s.store, tc.TenantID, RoleFixedAssets)
	if err != nil {
		return nil, err
	}

	position, err := s.ledger.TrialBalanceBetween(ctx, tc, DateRange{To: yearEnd})
	if err != nil {
		return nil, err
	}
	pl, err := s.ledger.ProfitAndLoss(ctx, tc, period)
	if err != nil {
		return nil, err
	}

	fixed := decimal.Zero
	if row, ok := position.Row(fixedAssets.Code); ok {
		fixed = row.Balance
	}

	est := ComputeZakat(year, position.SumBalances(Equity), pl.NetIncome, fixed)
	return &est, nil
}
