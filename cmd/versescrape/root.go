package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pevans/versescrape/config"
	"github.com/pevans/versescrape/logging"
)

var (
	cfgFile string

	// cfg and logger are set before any subcommand runs.
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "versescrape",
	Short: "Extract ordered, addressable verse records from a scripture website",
	Long: `versescrape walks every chapter of every book of a scripture version,
turns each chapter page into verse records with stable numeric IDs and
headings attached, and writes one file per book.

Configuration is read from ~/.versescrape/config.yaml (or --config), then
VERSESCRAPE_* environment variables, then flags.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		logger, err = logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ~/.versescrape/config.yaml)",
	)
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("bible-version", "", "version code used for the output directory")

	rootCmd.AddCommand(scrapeCmd, booksCmd, parseCmd, validateCmd, serveCmd, configCmd, versionCmd)
}
