package verse

import "sort"

// Verse is one emitted scripture unit. A Verse is a value: once finalized it
// is never modified, and every copy is independent of the scratch state that
// produced it.
type Verse struct {
	ID          string `json:"id" yaml:"id"`
	Book        int    `json:"book" yaml:"book"`
	Chapter     int    `json:"chapter" yaml:"chapter"`
	VerseNumber int    `json:"verse" yaml:"verse"`
	Text        string `json:"text" yaml:"text"`
	Heading     string `json:"heading" yaml:"heading"`
	Order       int    `json:"order" yaml:"order"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
}

// ChapterVerseCount records how many verses each processed numeric chapter of
// a book produced, in the order the chapters were first reached. Pages that
// share a numeric chapter ("1" and "1_1") are counted together.
type ChapterVerseCount struct {
	Chapter     int   `json:"chapter" yaml:"chapter"`
	VerseCounts []int `json:"verse_counts" yaml:"verse_counts"`
}

// BookResult collects the verses of one book in emission order.
type BookResult struct {
	Book    int               `json:"book"`
	Name    string            `json:"name,omitempty"`
	Verses  []Verse           `json:"verses"`
	Counts  ChapterVerseCount `json:"counts"`

	running  map[int]int
	chapters []int
}

// NewBookResult creates an empty result for the book with the given
// discovery index.
func NewBookResult(book int, name string) *BookResult {
	return &BookResult{
		Book:    book,
		Name:    name,
		Verses:  []Verse{},
		Counts:  ChapterVerseCount{VerseCounts: []int{}},
		running: make(map[int]int),
	}
}

// NextOrder returns the order already reached for a numeric chapter. Chapter
// pages that share a numeric chapter ("1" and "1_1") continue counting from
// here so their IDs never collide.
func (br *BookResult) NextOrder(chapter int) int {
	return br.running[chapter]
}

// Append adds the verses of one processed chapter page to the book and
// rebuilds Counts from the running per-chapter tally.
func (br *BookResult) Append(chapter int, verses []Verse) {
	br.Verses = append(br.Verses, verses...)
	if _, seen := br.running[chapter]; !seen {
		br.chapters = append(br.chapters, chapter)
	}
	br.running[chapter] += len(verses)

	counts := make([]int, len(br.chapters))
	for i, c := range br.chapters {
		counts[i] = br.running[c]
	}
	br.Counts = ChapterVerseCount{Chapter: len(counts), VerseCounts: counts}
}

// ChaptersProcessed returns the number of distinct numeric chapters appended
// so far.
func (br *BookResult) ChaptersProcessed() int {
	return len(br.chapters)
}

// SortBooks orders results by book discovery index.
func SortBooks(results []*BookResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Book < results[j].Book
	})
}
