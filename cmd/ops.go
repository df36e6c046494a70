package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/feedforge/merchantfeed/internal/ops"
)

// newOpsCmd creates the 'ops' subcommand, a thin dispatcher over docker
// compose for operating the scraper container. It overrides the root
// PersistentPreRunE: operating the container must work on machines where the
// scraper configuration itself is not yet valid.
func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops [command]",
		Short: "Operates the scraper container (build, start, stop, logs, ...)",
		Long: `ops wraps docker compose for day-to-day container operation. With no
argument it prints the available commands. The run, start, dev, and monitor
commands require a .env file; when it is missing one is created from
.env.example and the command aborts so the settings can be filled in.`,

		Args: cobra.MaximumNArgs(1),

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			}

			wd, err := os.Getwd()
			if err != nil {
				return err
			}

			dispatcher := ops.New(ops.ExecRunner{}, wd, cmd.OutOrStdout())
			return dispatcher.Dispatch(cmd.Context(), token)
		},
	}
}
