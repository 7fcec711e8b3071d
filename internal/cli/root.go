package cli

import (
	"github.com/spf13/cobra"

	"pms/internal/platform/config"
)

// LoadConfig is replaced in tests.
var LoadConfig = config.Load

// NewRootCmd creates the top-level "pms" command. Running it without a
// subcommand starts the server.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pms",
		Short:         "Individual performance plan tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := newServeCmd()
	root.RunE = serve.RunE
	root.AddCommand(
		serve,
		newMigrateCmd(),
		newSeedCmd(),
		newTokenCmd(),
	)

	return root
}
