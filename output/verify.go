package output

import (
	"fmt"

	"github.com/pevans/versescrape/verse"
)

// Problem is an inconsistency found in a written book.
type Problem struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.ID != "" {
		return p.ID + ": " + p.Message
	}
	return p.Message
}

// Verify checks a book's verses for duplicate or malformed IDs, gaps in
// the order sequence of each chapter and empty text. counts, when non-nil,
// is compared with the number of verses per chapter page.
func Verify(verses []verse.Verse, counts *verse.ChapterVerseCount) []Problem {
	var problems []Problem
	seen := make(map[string]bool, len(verses))
	lastOrder := make(map[int]int)

	for _, v := range verses {
		if seen[v.ID] {
			problems = append(problems, Problem{ID: v.ID, Message: "duplicate id"})
		}
		seen[v.ID] = true

		if want := verse.MakeID(v.Book, v.Chapter, v.Order); v.ID != want {
			problems = append(problems, Problem{ID: v.ID, Message: fmt.Sprintf("id does not match book, chapter and order (want %s)", want)})
		}

		if prev := lastOrder[v.Chapter]; v.Order != prev+1 {
			problems = append(problems, Problem{ID: v.ID, Message: fmt.Sprintf("order %d follows %d in chapter %d", v.Order, prev, v.Chapter)})
		}
		lastOrder[v.Chapter] = v.Order

		if v.Text == "" {
			problems = append(problems, Problem{ID: v.ID, Message: "empty text"})
		}
	}

	if counts != nil {
		total := 0
		for _, n := range counts.VerseCounts {
			total += n
		}
		if total != len(verses) {
			problems = append(problems, Problem{Message: fmt.Sprintf("counts list %d verses, file has %d", total, len(verses))})
		}
		if counts.Chapter != len(counts.VerseCounts) {
			problems = append(problems, Problem{Message: fmt.Sprintf("counts report %d chapters but list %d", counts.Chapter, len(counts.VerseCounts))})
		}
	}

	return problems
}
