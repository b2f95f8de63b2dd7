package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of wbdmap",
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wbdmap %s", Version)
		if Revision != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), " (%s)", Revision)
		}
		if BuildDate != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), " built %s", BuildDate)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
