package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pevans/versescrape/discovery"
	"github.com/pevans/versescrape/harvest"
	"github.com/pevans/versescrape/verse"
)

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printBooksTable prints discovered books in human-readable form
func printBooksTable(w io.Writer, books []discovery.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}

	for _, b := range books {
		chapters := "?"
		if b.ExpectedChapters > 0 {
			chapters = fmt.Sprintf("%d", b.ExpectedChapters)
		}
		fmt.Fprintf(w, "%3d  %-4s %-24s %4s chapters\n", b.Index, b.Code, b.Name, chapters)
	}
	fmt.Fprintf(w, "\n%d books\n", len(books))
}

// printReport summarizes a finished run
func printReport(w io.Writer, report *harvest.Report, dir string) {
	elapsed := report.FinishedAt.Sub(report.StartedAt).Round(time.Second)

	fmt.Fprintf(w, "Run %s finished in %s\n", report.RunID, elapsed)
	fmt.Fprintf(w, "  Books:    %d ok, %d failed\n", len(report.Books), len(report.Failed))
	fmt.Fprintf(w, "  Verses:   %d\n", report.VerseCount())
	fmt.Fprintf(w, "  Output:   %s\n", dir)

	if len(report.Failed) > 0 {
		fmt.Fprintln(w, "\nFailed books:")
		for _, f := range report.Failed {
			fmt.Fprintf(w, "  %s (%s): %v\n", f.Book.Code, f.Book.Name, f.Err)
		}
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(report.Warnings))
		for _, warn := range report.Warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
	}
}

// printVerses prints verses one per line, headings on their own line
func printVerses(w io.Writer, verses []verse.Verse) {
	for _, v := range verses {
		if v.Heading != "" {
			fmt.Fprintf(w, "\n## %s\n", v.Heading)
		}
		label := ""
		if v.Label != "" {
			label = " [" + v.Label + "]"
		}
		fmt.Fprintf(w, "%s %d:%d%s %s\n", v.ID, v.Chapter, v.VerseNumber, label, truncate(v.Text, 100))
	}
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
