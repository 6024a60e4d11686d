package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/spf13/cobra"
)

func accountCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "account [email]",
		Short: "Resolve the billing account for an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			acct, err := c.Account(ctx, args[0])
			if err != nil {
				if domain.IsNotFound(err) {
					fmt.Fprintf(cmd.OutOrStdout(), "No billing account for %s (new customer)\n", args[0])
					return nil
				}
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), acct)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", acct.ID, acct.Email)
			return nil
		},
	}
}

func subscriptionCmd(opts *globalOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "subscription [account-id]",
		Short: "Show the current subscription of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			out := cmd.OutOrStdout()
			if all {
				subs, err := c.AdminSubscriptions(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.asJSON {
					return writeJSON(out, subs)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATUS\tPLAN\tAMOUNT\tCREATED")
				for _, s := range subs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Status, s.PlanName, domain.FormatAmount(s.Amount, s.Currency), formatDate(s.CreatedAt))
				}
				return tw.Flush()
			}

			sub, err := c.Subscription(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(out, sub)
			}
			if sub == nil {
				fmt.Fprintln(out, "No current subscription")
				return nil
			}
			printSubscription(out, sub)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List every subscription record (admin token required)")
	return cmd
}

func printSubscription(w io.Writer, sub *domain.Subscription) {
	fmt.Fprintf(w, "%s  %s  %s / %s\n", sub.PlanName, sub.Status, domain.FormatAmount(sub.Amount, sub.Currency), sub.Interval)
	fmt.Fprintf(w, "  period:  %s -> %s\n", formatDate(sub.CurrentPeriodStart), formatDate(sub.CurrentPeriodEnd))
	if sub.CancelAtPeriodEnd {
		fmt.Fprintln(w, "  cancels at period end")
	}
	if sub.CanceledAt != nil {
		fmt.Fprintf(w, "  canceled: %s\n", formatDate(*sub.CanceledAt))
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}
