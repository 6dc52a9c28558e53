package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pevans/versescrape/discovery"
	"github.com/pevans/versescrape/harvest"
	"github.com/pevans/versescrape/output"
	"github.com/pevans/versescrape/store"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape every book of the configured version",
	Long: `Discover the books of the configured version, walk their chapters with a
pool of tabs and write one file per book.

Examples:
  versescrape scrape                          # all books, settings from config
  versescrape scrape --books GEN,EXO --tabs 2 # two books, two tabs
  versescrape scrape --format wrapped --numeric-ids`,
	RunE: runScrape,
}

func init() {
	f := scrapeCmd.Flags()
	f.Int("tabs", 4, "number of concurrent tabs")
	f.Uint("attempts", 3, "attempts per book before it is marked failed")
	f.StringSlice("books", nil, "only scrape these book codes (e.g. GEN,EXO)")
	f.String("book-list-url", "", "page listing the books of the version")
	f.Int("max-chapters", 200, "stop a book after this many chapter pages")
	f.Duration("content-timeout", 15*time.Second, "wait for chapter content before skipping it")
	f.String("out", "output", "output directory")
	f.String("format", "flat", "output format: flat, wrapped or yaml")
	f.Bool("numeric-ids", false, "write verse IDs as numbers")
	f.Bool("aggregate", true, "also write counts.json and all.json")
	f.String("db", "versescrape.db", "SQLite database path")
	f.Bool("store", true, "save results to the SQLite database")
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := &http.Client{}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	writer, err := output.NewWriter(output.Options{
		Dir:        cfg.Output.Dir,
		Version:    cfg.Site.Version,
		Format:     format,
		NumericIDs: cfg.Output.NumericIDs,
	})
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.Store.Enabled {
		st, err = store.NewStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	books, err := discovery.DiscoverBooks(ctx, client, &cfg.Site)
	if err != nil {
		return err
	}
	books, err = filterBooks(books, cfg.Harvest.Books)
	if err != nil {
		return err
	}
	logger.Info("books discovered", "count", len(books), "version", cfg.Site.Version)

	tabs := make([]discovery.Tab, 0, cfg.Harvest.Tabs)
	for i := 0; i < cfg.Harvest.Tabs; i++ {
		tab, err := discovery.NewHTTPTab(i+1, &cfg.Site, client, discovery.TabOptions{
			ContentTimeout: cfg.Harvest.ContentTimeout,
			NextTimeout:    cfg.Harvest.NextTimeout,
			RequestsPerSec: cfg.Harvest.RequestsPerSec,
			Burst:          cfg.Harvest.Burst,
		})
		if err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
		defer tab.Close()
		tabs = append(tabs, tab)
	}

	pool := harvest.NewPool(tabs, harvest.Options{
		Attempts:    cfg.Harvest.Attempts,
		Delay:       cfg.Harvest.RetryDelay,
		MaxDelay:    cfg.Harvest.MaxRetryDelay,
		MaxChapters: cfg.Site.Chapter.MaxChapters,
	}, logger)

	report, runErr := pool.Run(ctx, books)
	if report == nil {
		return runErr
	}

	if err := saveReport(report, books, writer, st); err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), report, writer.Dir())

	if runErr != nil {
		return runErr
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d books failed", len(report.Failed), len(books))
	}
	return nil
}

// saveReport writes every finished book to disk and, when enabled, the
// store.
func saveReport(report *harvest.Report, books []discovery.Book, writer *output.Writer, st *store.Store) error {
	byIndex := make(map[int]discovery.Book, len(books))
	for _, b := range books {
		byIndex[b.Index] = b
	}

	if st != nil {
		if err := st.CreateRun(report.RunID, cfg.Site.Version, report.StartedAt); err != nil {
			return err
		}
	}

	for _, result := range report.Books {
		path, err := writer.WriteBook(result)
		if err != nil {
			return err
		}
		logger.Debug("book written", "book", result.Book, "path", path)

		if st != nil {
			if err := st.SaveBook(report.RunID, byIndex[result.Book], result); err != nil {
				return err
			}
		}
	}

	if st != nil {
		for _, f := range report.Failed {
			if err := st.MarkBookFailed(report.RunID, f.Book, f.Err); err != nil {
				return err
			}
		}
		if err := st.FinishRun(report.RunID, report.FinishedAt, len(report.Books), len(report.Failed), report.VerseCount()); err != nil {
			return err
		}
	}

	if cfg.Output.Aggregate {
		if _, err := writer.WriteCounts(report.Books); err != nil {
			return err
		}
		if _, err := writer.WriteAll(report.Books); err != nil {
			return err
		}
	}

	return nil
}

// filterBooks keeps the books whose codes are listed, preserving discovery
// order and indexes. An empty list keeps every book.
func filterBooks(books []discovery.Book, codes []string) ([]discovery.Book, error) {
	if len(codes) == 0 {
		return books, nil
	}

	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[strings.ToUpper(strings.TrimSpace(c))] = true
	}

	var kept []discovery.Book
	for _, b := range books {
		if want[b.Code] {
			kept = append(kept, b)
			delete(want, b.Code)
		}
	}

	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for c := range want {
			missing = append(missing, c)
		}
		return nil, fmt.Errorf("unknown book codes: %s", strings.Join(missing, ", "))
	}
	if len(kept) == 0 {
		return nil, errors.New("no books selected")
	}
	return kept, nil
}
