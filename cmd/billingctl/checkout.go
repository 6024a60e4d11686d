package main

import (
	"fmt"

	"github.com/gamalabdu/trash-billing/internal/client"
	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/spf13/cobra"
)

func checkoutCmd(opts *globalOptions) *cobra.Command {
	var req domain.CheckoutRequest
	cmd := &cobra.Command{
		Use:   "checkout [price-id]",
		Short: "Create a hosted checkout session and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			req.PriceID = args[0]
			res, err := c.Checkout(ctx, req)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.AccountID, "account", "", "Existing account id")
	cmd.Flags().StringVar(&req.Email, "email", "", "Customer email (used when no account id is given)")
	cmd.Flags().StringVar(&req.SuccessURL, "success-url", "", "Redirect after payment")
	cmd.Flags().StringVar(&req.CancelURL, "cancel-url", "", "Redirect on cancel")
	_ = cmd.MarkFlagRequired("success-url")
	_ = cmd.MarkFlagRequired("cancel-url")
	return cmd
}

func portalCmd(opts *globalOptions) *cobra.Command {
	var returnURL string
	cmd := &cobra.Command{
		Use:   "portal [account-id]",
		Short: "Open a customer portal session and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			res, err := c.Portal(ctx, domain.PortalRequest{AccountID: args[0], ReturnURL: returnURL})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&returnURL, "return-url", "", "Where the portal sends the customer back")
	_ = cmd.MarkFlagRequired("return-url")
	return cmd
}

func waitCmd(opts *globalOptions) *cobra.Command {
	var wait client.WaitOptions
	cmd := &cobra.Command{
		Use:   "wait [account-id]",
		Short: "Wait until an account has a current subscription",
		Long: `Poll the account's subscription with exponential backoff, as the
site does after returning from checkout. Exits non-zero when the bound is
reached without a subscription.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			sub, err := c.WaitForSubscription(ctx, args[0], wait)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), sub)
			}
			printSubscription(cmd.OutOrStdout(), sub)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&wait.MaxAttempts, "attempts", 8, "Maximum polls")
	cmd.Flags().DurationVar(&wait.InitialInterval, "interval", 0, "First delay between polls")
	cmd.Flags().DurationVar(&wait.MaxInterval, "max-interval", 0, "Longest delay between polls")
	return cmd
}
