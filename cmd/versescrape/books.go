package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pevans/versescrape/discovery"
)

var booksJSON bool

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List the books of the configured version",
	Long: `Fetch the book list page and print every book in discovery order with
its code and the number of chapters the page links to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		books, err := discovery.DiscoverBooks(cmd.Context(), &http.Client{}, &cfg.Site)
		if err != nil {
			return err
		}
		books, err = filterBooks(books, cfg.Harvest.Books)
		if err != nil {
			return err
		}

		if booksJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"version": cfg.Site.Version,
				"books":   books,
				"total":   len(books),
			})
		}
		printBooksTable(cmd.OutOrStdout(), books)
		return nil
	},
}

func init() {
	booksCmd.Flags().BoolVar(&booksJSON, "json", false, "print books as JSON")
	booksCmd.Flags().String("book-list-url", "", "page listing the books of the version")
	booksCmd.Flags().StringSlice("books", nil, "only list these book codes")
}
