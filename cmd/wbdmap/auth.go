package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in to the feature service and cache the credentials",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.session.Authenticate(ctx); err != nil {
			return err
		}
		if _, err := a.session.Initialize(ctx); err != nil {
			return fmt.Errorf("credentials saved but not accepted: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "credentials saved to %s\n", cfg.CredentialsPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
