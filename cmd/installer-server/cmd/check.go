package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/installer-endpoint/internal/service/checker"
)

// attachCheckCommand adds the `check` subcommand querying a running server.
func attachCheckCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "check [health-address]",
		Short: "Check whether a running server is serving the script.",
		Long: `Queries the gRPC health endpoint of a running installer-server and exits
with a non-zero status unless the script is present and being served.
The address defaults to health_addr from the configuration file.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var healthAddress string
			if len(args) > 0 {
				healthAddress = args[0]
			}

			return checker.Run(ctx, &checker.Options{
				ConfigPath:    configPath,
				HealthAddress: healthAddress,
			})
		},
	})
}
