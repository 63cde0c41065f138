package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"erp-ledger/internal/core"
)

const ruleWidth = 62

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

func banner(w io.Writer, title string, details ...string) {
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
	fmt.Fprintf(w, "  %s\n", title)
	for _, d := range details {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
}

func printTrialBalance(w io.Writer, tenant string, tb *core.TrialBalance) error {
	banner(w, "TRIAL BALANCE", "Tenant : "+tenant, "Period : "+formatRange(tb.Range))
	tw := newTable(w)
	fmt.Fprintln(tw, "CODE\tNAME\tDEBIT\tCREDIT\tBALANCE\t")
	for _, r := range tb.Rows {
		if r.TotalDebit.IsZero() && r.TotalCredit.IsZero() {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", r.Code, r.Name,
			r.TotalDebit.StringFixed(2), r.TotalCredit.StringFixed(2), r.Balance.StringFixed(2))
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\t%s\t\t\n", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}
	if !tb.Balanced {
		fmt.Fprintf(w, "WARNING: ledger out of balance by %s\n", tb.Net().StringFixed(2))
	}
	return nil
}

func printSection(tw io.Writer, title string, lines []core.AccountLine, total decimal.Decimal) {
	fmt.Fprintf(tw, "%s\t\t\t\n", strings.ToUpper(title))
	for _, l := range lines {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t\n", l.Code, l.Name, l.Balance.StringFixed(2))
	}
	fmt.Fprintf(tw, "\tTotal %s\t%s\t\n", title, total.StringFixed(2))
}

func printProfitAndLoss(w io.Writer, pl *core.PLReport) error {
	banner(w, "PROFIT AND LOSS", "Period : "+formatRange(pl.Range))
	tw := newTable(w)
	printSection(tw, "Revenue", pl.Revenue, pl.TotalRevenue)
	printSection(tw, "Expenses", pl.Expenses, pl.TotalExpense)
	fmt.Fprintf(tw, "\tNET INCOME\t%s\t\n", pl.NetIncome.StringFixed(2))
	return tw.Flush()
}

func printBalanceSheet(w io.Writer, bs *core.BSReport) error {
	banner(w, "BALANCE SHEET", "As of : "+bs.AsOf.Format("2006-01-02"))
	tw := newTable(w)
	printSection(tw, "Assets", bs.Assets, bs.TotalAssets)
	printSection(tw, "Liabilities", bs.Liabilities, bs.TotalLiabilities)
	printSection(tw, "Equity", bs.Equity, bs.TotalEquity)
	fmt.Fprintf(tw, "\tCurrent earnings\t%s\t\n", bs.CurrentEarnings.StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}
	if !bs.IsBalanced {
		fmt.Fprintln(w, "WARNING: assets do not equal liabilities plus equity")
	}
	return nil
}

func printVATReport(w io.Writer, r *core.VATReport) error {
	banner(w, "VAT RETURN", "Period : "+formatRange(r.Range))
	tw := newTable(w)
	fmt.Fprintf(tw, "Invoices (standard / simplified)\t%d / %d\t\n", r.StandardCount, r.SimplifiedCount)
	fmt.Fprintf(tw, "Taxable amount\t%s\t\n", r.TaxableAmount.StringFixed(2))
	fmt.Fprintf(tw, "Output VAT\t%s\t\n", r.OutputVAT.StringFixed(2))
	fmt.Fprintf(tw, "Input VAT\t%s\t\n", r.InputVAT.StringFixed(2))
	fmt.Fprintf(tw, "Net payable\t%s\t\n", r.NetPayable.StringFixed(2))
	return tw.Flush()
}

func printZakat(w io.Writer, z *core.ZakatEstimate) error {
	banner(w, fmt.Sprintf("ZAKAT ESTIMATE %d", z.Year))
	tw := newTable(w)
	fmt.Fprintf(tw, "Equity\t%s\t\n", z.Equity.StringFixed(2))
	fmt.Fprintf(tw, "Net income\t%s\t\n", z.NetIncome.StringFixed(2))
	fmt.Fprintf(tw, "Fixed assets\t%s\t\n", z.FixedAssets.StringFixed(2))
	fmt.Fprintf(tw, "Zakat base\t%s\t\n", z.Base.StringFixed(2))
	fmt.Fprintf(tw, "Rate\t%s%%\t\n", z.Rate.Shift(2).String())
	fmt.Fprintf(tw, "Zakat due\t%s\t\n", z.Amount.StringFixed(2))
	return tw.Flush()
}

func printProblems(w io.Writer, problems []core.IntegrityProblem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tPROBLEM")
	for _, p := range problems {
		ref := p.EntryNumber
		if ref == "" && p.EntryID != 0 {
			ref = fmt.Sprintf("#%d", p.EntryID)
		}
		fmt.Fprintf(tw, "%s\t%s\n", ref, p.Description)
	}
	return tw.Flush()
}

func formatRange(r core.DateRange) string {
	from, to := "beginning", "today"
	if !r.From.IsZero() {
		from = r.From.Format("2006-01-02")
	}
	if !r.To.IsZero() {
		to = r.To.Format("2006-01-02")
	}
	return from + " to " + to
}
