package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nbme-dashboard",
	Short: "NBME exam results dashboard",
	Long: `nbme-dashboard serves a web dashboard over the NBME exam-results API.

It offers a query builder for every API endpoint and an at-risk dataset
that flags students scoring below the national mean on SE-1.

Run without a subcommand to start the web server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (default $DASHBOARD_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	queryCmd.Flags().StringVar(&queryEndpoint, "endpoint", "exam-stats", "endpoint to query")
	queryCmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key (default $NBME_API_KEY)")
	queryCmd.Flags().StringVar(&schoolFlag, "school", "", "school ID (master key only)")
	queryCmd.Flags().StringVar(&queryStudentIDs, "student-ids", "", "comma-separated student IDs")
	queryCmd.Flags().StringSliceVar(&queryTestIDs, "test-ids", nil, "test IDs for the score endpoints")

	reportCmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key (default $NBME_API_KEY)")
	reportCmd.Flags().StringVar(&schoolFlag, "school", "", "school ID (master key only)")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", ".", "directory the dataset is written to")
	reportCmd.Flags().BoolVar(&reportXLSX, "xlsx", false, "also write the Excel workbook")

	rootCmd.AddCommand(serveCmd, queryCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
