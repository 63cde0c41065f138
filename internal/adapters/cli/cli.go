// Package cli is the ledger command line. Every command opens the configured
// store, runs one application operation for a single tenant, and prints a table.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"erp-ledger/internal/app"
	"erp-ledger/internal/config"
	"erp-ledger/internal/core"
	"erp-ledger/internal/db"
	"erp-ledger/internal/logging"
)

// Backend is what a command runs against. Pool is nil unless the store is postgres.
type Backend struct {
	Service app.ApplicationService
	Pool    *pgxpool.Pool
	Close   func() error
}

// Opener builds a Backend from the loaded configuration.
type Opener func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error)

// OpenBackend opens the configured store and wires the application service over it.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	chart, err := cfg.Chart()
	if err != nil {
		return nil, err
	}
	h, err := db.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	svc := app.NewAppService(h.Store, app.Options{
		AccountMap: cfg.AccountMap(),
		Policy:     cfg.TransitionPolicy(),
		Chart:      chart,
		Logger:     logger,
	})
	return &Backend{Service: svc, Pool: h.Pool, Close: h.Close}, nil
}

type runner struct {
	open    Opener
	cfgPath string
	tenant  string
	actor   string
	roles   []string
}

// NewRootCommand creates the ledger command with all subcommands registered.
// A nil opener means OpenBackend.
func NewRootCommand(open Opener) *cobra.Command {
	if open == nil {
		open = OpenBackend
	}
	r := &runner{open: open}

	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Multi-tenant double-entry ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&r.cfgPath, "config", "", "path to the YAML config file (default $LEDGER_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&r.tenant, "tenant", "", "tenant id (required by ledger commands)")
	rootCmd.PersistentFlags().StringVar(&r.actor, "actor", "cli", "actor recorded on created entries")
	rootCmd.PersistentFlags().StringSliceVar(&r.roles, "roles", nil, "actor roles")

	rootCmd.AddCommand(
		r.newMigrateCommand(),
		r.newSeedCommand(),
		r.newTrialBalanceCommand(),
		r.newProfitAndLossCommand(),
		r.newBalanceSheetCommand(),
		r.newVATCommand(),
		r.newZakatCommand(),
		r.newVoidCommand(),
		r.newVerifyCommand(),
		r.newExportCommand(),
	)
	return rootCmd
}

// session loads config, opens the backend and hands both to fn.
func (r *runner) session(cmd *cobra.Command, fn func(ctx context.Context, b *Backend, logger *zap.Logger) error) error {
	cfg, err := config.Load(r.cfgPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := r.open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if b.Close != nil {
			if err := b.Close(); err != nil {
				logger.Warn("failed to close store", zap.Error(err))
			}
		}
	}()
	return fn(ctx, b, logger)
}

// tenantSession is session plus the tenant context taken from the flags.
func (r *runner) tenantSession(cmd *cobra.Command, fn func(ctx context.Context, svc app.ApplicationService, tc core.TenantContext) error) error {
	if r.tenant == "" {
		return core.ErrTenantRequired
	}
	tc := core.TenantContext{TenantID: r.tenant, Actor: core.Actor{ID: r.actor, Roles: r.roles}}
	return r.session(cmd, func(ctx context.Context, b *Backend, _ *zap.Logger) error {
		return fn(ctx, b.Service, tc)
	})
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
