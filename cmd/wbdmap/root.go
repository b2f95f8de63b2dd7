package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/wbd-map/internal/backend"
	"github.com/mohammed-shakir/wbd-map/internal/core/config"
)

var cfg = config.FromEnv()

var rootCmd = &cobra.Command{
	Use:   "wbdmap",
	Short: "Render the USGS Watershed Boundary Dataset on a web map",
	Long: `wbdmap fetches the USGS Watershed Boundary Dataset at every HUC level from a
WFS feature service, styles each level and renders them as overlay layers on a
Leaflet map. In a hosted notebook environment the map is written to a single
HTML file; elsewhere it is served over HTTP.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMap(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfg.GeoServerURL, "geoserver", cfg.GeoServerURL, "base URL of the WFS feature service")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	f.BoolVar(&cfg.LogConsole, "log-console", cfg.LogConsole, "human readable log output")
	f.StringVar(&cfg.CredentialsPath, "credentials", cfg.CredentialsPath, "path of the cached credentials file")

	rf := rootCmd.Flags()
	rf.StringVar(&cfg.Backend, "backend", cfg.Backend,
		"force a backend ("+strings.Join(backend.Names(), ", ")+"); detected from the environment when empty")
	rf.StringVar(&cfg.PlanPath, "plan", cfg.PlanPath, "YAML file replacing the built-in layer plan")
	rf.StringVarP(&cfg.OutputPath, "output", "o", cfg.OutputPath, "output file of the static backend")
	rf.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address of the interactive backend")
	rf.StringVar(&cfg.AssetsDir, "assets-dir", cfg.AssetsDir, "where the mapping library is installed")
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
