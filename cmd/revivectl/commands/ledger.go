package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"storefront/internal/domain"
	"storefront/internal/infra"
	"storefront/internal/ledger"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and migrate the order ledger",
	}
	cmd.AddCommand(ledgerMigrateCmd(), ledgerShowCmd())
	return cmd
}

func openLedger(cmd *cobra.Command) (*ledger.Ledger, func(), error) {
	if !cfg.Capabilities.LedgerEnabled {
		return nil, nil, fmt.Errorf("DATABASE_URL is not set")
	}
	pool, err := infra.NewDBPool(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return ledger.New(infra.NewSQLRunner(pool, logger), logger), pool.Close, nil
}

func ledgerMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the orders table when missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, closeFn, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := l.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "orders table ready")
			return nil
		},
	}
}

func ledgerShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <payment-intent-id>",
		Short: "Print the stored order for a payment intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, closeFn, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			rec, err := l.Lookup(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("no order recorded for %s", args[0])
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
}
