package cli

import (
	"log/slog"
	"os"

	"github.com/me/godag/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking GODAG_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("GODAG_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the godag CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "godag",
		Short: "GoDag — DAG scheduler with dependency-gated task execution",
		Long:  "GoDag registers DAGs, triggers runs, and inspects why a task instance can or cannot run.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(flagLogLevel, flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "GoDag server URL (or GODAG_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newSubmitCmd(),
		newListCmd(),
		newRunsCmd(),
		newTriggerCmd(),
		newStatusCmd(),
		newDepsCmd(),
		newTransferCmd(),
	)

	return root
}
