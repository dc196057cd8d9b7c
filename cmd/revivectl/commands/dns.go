package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/diagnostics"
	"storefront/internal/domain"
	resendprovider "storefront/internal/providers/resend"
)

func dnsCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "dns",
		Short: "Check MX, SPF, DKIM and DMARC records for the sending domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = cfg.SenderDomain
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			report := diagnostics.NewDNSChecker(name).Check(ctx)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d/%d checks passed\n", report.Domain, report.Summary.Passed, report.Summary.Total)
			for _, c := range report.Checks {
				fmt.Fprintf(out, "  [%s] %-4s %-32s %s\n", c.Status, c.Type, c.Name, c.Message)
			}
			for _, r := range report.Recommendations {
				fmt.Fprintf(out, "  - %s\n", r)
			}
			if report.Summary.Failed > 0 {
				return fmt.Errorf("%d dns checks failed", report.Summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "domain", "", "domain to check (default SENDER_DOMAIN)")
	return cmd
}

func senderDomainCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "sender-domain",
		Short: "Print the email provider's DNS records for the sending domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.Capabilities.EmailEnabled {
				return domain.ErrEmailDisabled
			}
			if name == "" {
				name = cfg.SenderDomain
			}
			client, err := resendprovider.NewClient(resendprovider.Options{APIKey: cfg.ResendAPIKey, RequestTimeout: 15 * time.Second})
			if err != nil {
				return err
			}
			report, err := diagnostics.SenderDomain(cmd.Context(), client, name)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%s (registered: %v)", report.Message, report.AvailableDomains)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&name, "domain", "", "domain to look up (default SENDER_DOMAIN)")
	return cmd
}
