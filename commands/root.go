package commands

import (
	"context"

	"github.com/spf13/cobra"

	"car-scraper/config"
	"car-scraper/storage"
	"car-scraper/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger

	storePath string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "carscraper",
	Short: "carscraper gathers dealership vehicle listings into a CSV record store.",
	Long: "carscraper scrapes the Response Motors inventory page, upserts every listing into a\n" +
		"flat CSV store keyed by a hash of its URL, and reports on the run.\n" +
		"Running it without a subcommand is the same as `carscraper scrape`.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if storePath != "" {
			cfg.CSVStorePath = storePath
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger = utils.NewLoggerWithLevel(cmd.ErrOrStderr(), cfg.LogLevel)
		return nil
	},
	RunE: runScrape,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Path to the CSV store (overrides CSV_STORE_PATH).")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL).")
}

// ExecuteContext runs the CLI with ctx, which is cancelled on interrupt.
// The returned error has already been printed.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		rootCmd.PrintErrln("Error:", err)
	}
	return err
}

func openStore() (*storage.CSVStore, error) {
	return storage.OpenCSVStore(cfg.CSVStorePath, logger)
}
