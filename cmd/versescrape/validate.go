package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pevans/versescrape/output"
	"github.com/pevans/versescrape/verse"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check written book files for ID, order and count problems",
	Long: `Read every book file under <out>/<version> and check that verse IDs are
unique and match their book, chapter and order, that orders have no gaps and
that the totals agree with counts.json when it is present.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := filepath.Join(cfg.Output.Dir, cfg.Site.Version)
		out := cmd.OutOrStdout()

		files, err := output.BookFiles(dir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no book files in %s", dir)
		}

		counts, err := output.ReadCounts(filepath.Join(dir, output.CountsFile))
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("counts file missing, skipping count checks", "dir", dir)
			counts = nil
		} else if err != nil {
			return err
		}

		total := 0
		for _, path := range files {
			verses, err := output.ReadBook(path)
			if err != nil {
				return err
			}

			var c *verse.ChapterVerseCount
			if len(verses) > 0 && counts != nil {
				if bc, ok := counts[verses[0].Book]; ok {
					c = &bc
				}
			}

			problems := output.Verify(verses, c)
			total += len(problems)

			name := filepath.Base(path)
			if len(problems) == 0 {
				fmt.Fprintf(out, "ok    %s (%d verses)\n", name, len(verses))
				continue
			}
			fmt.Fprintf(out, "FAIL  %s (%d problems)\n", name, len(problems))
			for _, p := range problems {
				fmt.Fprintf(out, "      %s\n", p)
			}
		}

		if total > 0 {
			return fmt.Errorf("%d problems in %s", total, dir)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().String("out", "output", "output directory")
}
