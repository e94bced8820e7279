package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/installer-endpoint/internal/config"
	"github.com/oshokin/installer-endpoint/internal/service/server"
	"github.com/oshokin/installer-endpoint/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// scriptDir overrides the directory holding the script.
	scriptDir string
	// scriptName overrides the served file name.
	scriptName string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running the HTTP endpoint.
	rootCmd = &cobra.Command{
		Use:   "installer-server [listen-address]",
		Short: "Serve an installer script as plain text over HTTP.",
		Long: `Serves a local installer script (install.ps1 by default) with text/plain
and no-cache headers, for use in pipeline installs such as:

  irm https://example.com/scripts/itraffic | iex

The file is read on every request, so replacing it on disk takes effect
immediately. A missing file yields 404, an unreadable one 500.
By default the script is looked up next to the installer-server binary.
Listen address can be provided as argument to override config (e.g., :9090).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				ScriptDir:     scriptDir,
				ScriptName:    scriptName,
				LogLevel:      logLevel,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the installer-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	attachCheckCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&scriptDir, "script-dir", "d", "", "directory holding the script (default: next to the binary)")
	rootCmd.Flags().StringVarP(&scriptName, "script-name", "n", "", "file name of the script (default: install.ps1)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")
}
