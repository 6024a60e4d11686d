package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/gamalabdu/trash-billing/internal/service"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := service.NewAuthService(os.Getenv("JWT_SECRET"))
			token, err := auth.IssueToken(subject, domain.RoleAdmin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "billingctl", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
