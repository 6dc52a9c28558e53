package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pevans/versescrape/chapter"
	"github.com/pevans/versescrape/dom"
)

var (
	parseBook     int
	parseChapter  string
	parseSelector string
	parseJSON     bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.html>",
	Short: "Parse a saved chapter page and print its verses",
	Long: `Parse one chapter page saved to disk, without touching the network. Useful
for checking how a page's headings and split verses are assembled.

Examples:
  versescrape parse GEN.1.html
  versescrape parse PSA.119.html --book 19 --chapter 119 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		selector := parseSelector
		if selector == "" {
			selector = cfg.Site.Chapter.ContainerSelector
		}

		container, err := dom.Parse(f, selector)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		result, err := chapter.ParseChapter(container, parseBook, parseChapter, 0)
		if err != nil {
			return err
		}
		logger.Debug("chapter parsed", "file", args[0], "verses", result.Count())

		if parseJSON {
			return printJSON(cmd.OutOrStdout(), result.Verses)
		}
		printVerses(cmd.OutOrStdout(), result.Verses)
		return nil
	},
}

func init() {
	parseCmd.Flags().IntVar(&parseBook, "book", 1, "book number used for verse IDs")
	parseCmd.Flags().StringVar(&parseChapter, "chapter", "1", "chapter token, e.g. 3 or 1_1")
	parseCmd.Flags().StringVar(&parseSelector, "selector", "", "chapter container selector (default from config)")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print the result as JSON")
}
