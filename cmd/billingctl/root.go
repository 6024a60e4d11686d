package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/gamalabdu/trash-billing/internal/client"
	"github.com/gamalabdu/trash-billing/internal/logging"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	apiURL   string
	origin   string
	token    string
	retries  uint64
	timeout  time.Duration
	asJSON   bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "billingctl",
		Short:         "billingctl - inspect and drive the billing proxy",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			fillFromEnv(cmd, "api-url", "BILLING_API_URL", &opts.apiURL)
			fillFromEnv(cmd, "origin", "BILLING_ORIGIN", &opts.origin)
			fillFromEnv(cmd, "token", "BILLING_ADMIN_TOKEN", &opts.token)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.apiURL, "api-url", "", "Billing API base URL (env BILLING_API_URL)")
	pf.StringVar(&opts.origin, "origin", "", "Site origin used to resolve a relative or empty API URL (env BILLING_ORIGIN)")
	pf.StringVar(&opts.token, "token", "", "Admin bearer token (env BILLING_ADMIN_TOKEN)")
	pf.Uint64Var(&opts.retries, "retries", 2, "Retries for reads after a transient failure")
	pf.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall command timeout")
	pf.BoolVarP(&opts.asJSON, "json", "j", false, "Output as JSON")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(accountCmd(opts))
	rootCmd.AddCommand(subscriptionCmd(opts))
	rootCmd.AddCommand(purchasesCmd(opts))
	rootCmd.AddCommand(plansCmd(opts))
	rootCmd.AddCommand(checkoutCmd(opts))
	rootCmd.AddCommand(portalCmd(opts))
	rootCmd.AddCommand(waitCmd(opts))
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}

func fillFromEnv(cmd *cobra.Command, flag, key string, dst *string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (o *globalOptions) client(cmd *cobra.Command) (*client.Client, error) {
	base, err := client.ResolveBaseURL(o.apiURL, o.origin)
	if err != nil {
		return nil, err
	}
	logger := logging.New(o.logLevel, false, cmd.ErrOrStderr())
	return client.New(base, client.Options{
		MaxRetries: o.retries,
		Token:      o.token,
		Logger:     logrus.NewEntry(logger),
	})
}

func (o *globalOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
