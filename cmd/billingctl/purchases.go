package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/spf13/cobra"
)

func purchasesCmd(opts *globalOptions) *cobra.Command {
	var status string
	var raw bool
	cmd := &cobra.Command{
		Use:   "purchases [account-id]",
		Short: "List one-time purchases of an account",
		Long: `List one-time purchases, enriched with their checkout sessions.

With --status the admin charge listing is used instead (any status,
including "all"); this requires an admin token. With --raw the plain
charge list is shown without session enrichment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			var purchases []domain.Purchase
			switch {
			case status != "":
				purchases, err = c.AdminCharges(ctx, args[0], status)
			case raw:
				purchases, err = c.Charges(ctx, args[0])
			default:
				purchases, err = c.Purchases(ctx, args[0])
			}
			if err != nil {
				return err
			}

			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), purchases)
			}
			return printPurchases(cmd.OutOrStdout(), purchases)
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Charge status filter: succeeded, pending, failed or all (admin)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Show charges without checkout session enrichment")
	return cmd
}

func printPurchases(w io.Writer, purchases []domain.Purchase) error {
	if len(purchases) == 0 {
		fmt.Fprintln(w, "No purchases")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tID\tAMOUNT\tSTATUS\tDESCRIPTION")
	for _, p := range purchases {
		desc := domain.StringValue(p.Description)
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", formatDate(p.Date), p.ID, domain.FormatAmount(p.Amount, p.Currency), p.Status, desc)
	}
	return tw.Flush()
}

func plansCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List purchasable plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			plans, err := c.Plans(ctx)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), plans)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRICE ID\tNAME\tPRICE\tINTERVAL")
			for _, p := range plans {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.PriceID, p.Name, domain.FormatAmount(p.Price, p.Currency), p.Interval)
			}
			return tw.Flush()
		},
	}
}
