package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"erp-ledger/internal/app"
	"erp-ledger/internal/core"
	"erp-ledger/internal/export"
	"erp-ledger/migrations"
)

func (r *runner) newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations (postgres)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.session(cmd, func(ctx context.Context, b *Backend, logger *zap.Logger) error {
				if b.Pool == nil {
					fmt.Fprintln(out(cmd), "Store manages its own schema; nothing to migrate.")
					return nil
				}
				applied, err := migrations.Apply(ctx, b.Pool, logger)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(out(cmd), "Schema is up to date.")
					return nil
				}
				for _, v := range applied {
					fmt.Fprintf(out(cmd), "applied %s\n", v)
				}
				return nil
			})
		},
	}
}

func (r *runner) newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the configured chart of accounts for the tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tenantSession(cmd, func(ctx context.Context, svc app.ApplicationService, tc core.TenantContext) error {
				res, err := svc.SeedAccounts(ctx, tc)
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Seeded %d new accounts (%d total) for tenant %s.\n", res.Added, res.Accounts, tc.TenantID)
				return nil
			})
		},
	}
}

type rangeFlags struct {
	from string
	to   string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "start date YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&f.to, "to", "", "end date YYYY-MM-DD (inclusive)")
}

func (r *runner) newTrialBalanceCommand() *cobra.Command {
	var rng rangeFlags
	cmd := &cobra.Command{
		Use:     "trial-balance",
		Aliases: []string{"tb", "bal"},
		Short:   "Print the trial balance",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tenantSession(cmd, func(ctx context.Context, svc app.ApplicationService, tc core.TenantContext) error {
				tb, err := svc.GetTrialBalance(ctx, tc, rng.from, rng.to)
				if err != nil {
					return err
				}
				return printTrialBalance(out(cmd), tc.TenantID, tb)
			})
		},
	}
	rng.register(cmd)
	return cmd
}

func (r *runner) newProfitAndLossCommand() *cobra.Command {
	var rng rangeFlags
	cmd := &cobra.Command{
		Use:   "pl",
		Short: "Print the profit and loss report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tenantSession(cmd, func(ctx context.Context, svc app.ApplicationService, tc core.TenantContext) error {
				pl, err := svc.GetProfitAndLoss(ctx, tc, rng.from, rng.to)
				if err != nil {
					return err
				}
				return printProfitAndLoss(out(cmd), pl)
			})
		},
	}
	rng.register(cmd)
	return cmd
}

func (r *runner) newBalanceSheetCommand() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Print the balance sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tenantSession(cmd, func(ctx context.Context, svc app.ApplicationService, tc core.TenantContext) error {
				bs, err := svc.GetBalanceSheet(ctx, tc, asOf)
				if err != nil {
					return err
				}
				return printBalanceSheet(out(cmd), bs)
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "date", "", "as-of date YYYY-MM-DD (default today)")
	return cmd
}

func (r *runner) newVATCommand() *cobra.Command {
	var rng rangeFlags
	cmd := &cobra.Command{
		Use:   "vat",
		Short: "Print the VAT return for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tenantSession(cmd, func(ctx context.Context, svc app.ApplicationService, tc core.TenantContext) error {
				rep, err := svc.GetVATReport(ctx, tc, rng.from, rng.to)
				if err != nil {
					return err
				}
				return printVATReport(out(cmd), rep)
			})
		},
	}
	rng.register(cmd)
	return cmd
}

func (r *runner) newZakatCommand() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "zakat",
		Short: "Print the zakat estimate for a fiscal year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tenantSession(cmd, func(ctx context.Context, svc app.ApplicationService, tc core.TenantContext) error {
				est, err := svc.GetZakatEstimate(ctx, tc, year)
				if err != nil {
					return err
				}
				return printZakat(out(cmd), est)
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "fiscal year (default current year)")
	return cmd
}

func (r *runner) newVoidCommand() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "void <entry-id>",
		Short: "Void a journal entry by posting its reversal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			return r.tenantSession(cmd, func(ctx context.Context, svc app.ApplicationService, tc core.TenantContext) error {
				res, err := svc.VoidEntry(ctx, tc, id, reason)
				if err != nil {
					return err
				}
				if res.Reversal == nil {
					fmt.Fprintf(out(cmd), "Draft entry %d voided.\n", res.OriginalID)
					return nil
				}
				fmt.Fprintf(out(cmd), "Entry %d voided by reversal %s (id %d).\n",
					res.OriginalID, res.Reversal.EntryNumber, res.ReversalID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded on the reversal")
	return cmd
}

func (r *runner) newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every balance-affecting entry is balanced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tenantSession(cmd, func(ctx context.Context, svc app.ApplicationService, tc core.TenantContext) error {
				problems, err := svc.VerifyLedger(ctx, tc)
				if err != nil {
					return err
				}
				if len(problems) == 0 {
					fmt.Fprintln(out(cmd), "Ledger OK.")
					return nil
				}
				if err := printProblems(out(cmd), problems); err != nil {
					return err
				}
				return fmt.Errorf("ledger verification found %d problem(s)", len(problems))
			})
		},
	}
}

func (r *runner) newExportCommand() *cobra.Command {
	var (
		rng     rangeFlags
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write trial balance, P&L and balance sheet to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tenantSession(cmd, func(ctx context.Context, svc app.ApplicationService, tc core.TenantContext) error {
				tb, err := svc.GetTrialBalance(ctx, tc, rng.from, rng.to)
				if err != nil {
					return err
				}
				pl, err := svc.GetProfitAndLoss(ctx, tc, rng.from, rng.to)
				if err != nil {
					return err
				}
				bs, err := svc.GetBalanceSheet(ctx, tc, rng.to)
				if err != nil {
					return err
				}

				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				if err := export.FinancialsXLSX(f, tb, pl, bs); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("failed to close %s: %w", outPath, err)
				}
				fmt.Fprintf(out(cmd), "Wrote %s\n", outPath)
				return nil
			})
		},
	}
	rng.register(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "financials.xlsx", "output file")
	return cmd
}
