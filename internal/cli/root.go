package cli

import (
	"os"

	"github.com/spf13/cobra"

	applog "finflow/internal/log"
)

var logger *applog.Logger

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); defaults to FINFLOW_LOG_LEVEL")
}

var rootCmd = &cobra.Command{
	Use:   "finflow",
	Short: "Weekly budget tracker",
	Long: `finflow tracks expenses against a weekly budget. The transaction log
resets at the start of every ISO week once you confirm it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		LoadEnvFile()
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = os.Getenv("FINFLOW_LOG_LEVEL")
		}
		logger = SetupLogger(level, cmd.ErrOrStderr())
	},
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return rootCmd.Execute()
}
