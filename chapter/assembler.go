package chapter

import (
	"strings"

	"github.com/pevans/versescrape/classify"
	"github.com/pevans/versescrape/verse"
)

// Part is one nested span inside a fragment.
type Part struct {
	Category string
	Text     string
}

// Fragment is one inline span of a chapter group, already classified.
type Fragment struct {
	Category string
	// Ref is the raw verse reference attribute, empty when absent.
	Ref   string
	Text  string
	Parts []Part
}

type state int

const (
	noActiveVerse state = iota
	accumulatingVerse
)

// scratch is the mutable working copy of the verse being accumulated.
type scratch struct {
	ref         string
	label       string
	chapter     int
	verseNumber int
	text        strings.Builder
}

// Assembler turns the ordered fragments of one chapter into verses. It is
// synchronous and owned by a single chapter walk.
type Assembler struct {
	book    int
	chapter int
	headers *HeaderAccumulator

	state     state
	finalized int
	current   scratch
	verses    []verse.Verse
}

// NewAssembler creates an assembler for one chapter page. startOrder is the
// order already used by earlier pages of the same numeric chapter.
func NewAssembler(book, chapter, startOrder int, headers *HeaderAccumulator) *Assembler {
	return &Assembler{
		book:      book,
		chapter:   chapter,
		headers:   headers,
		finalized: startOrder,
	}
}

// Order returns the order of the last finalized verse.
func (a *Assembler) Order() int {
	return a.finalized
}

// Active reports whether a verse is being accumulated.
func (a *Assembler) Active() bool {
	return a.state == accumulatingVerse
}

// HeadingTarget returns the order of the next verse to begin, which is the
// verse a heading seen now introduces.
func (a *Assembler) HeadingTarget() int {
	if a.state == accumulatingVerse {
		return a.finalized + 2
	}
	return a.finalized + 1
}

// Verses returns the verses finalized so far, in emission order.
func (a *Assembler) Verses() []verse.Verse {
	out := make([]verse.Verse, len(a.verses))
	copy(out, a.verses)
	return out
}

// Feed consumes the next fragment in document order.
func (a *Assembler) Feed(f Fragment) {
	switch f.Category {
	case classify.Verse:
		a.feedVerse(f)
	case classify.Heading:
		a.headers.RecordHeading(a.HeadingTarget(), f.Text, false)
	case classify.Note, classify.Label, "":
	default:
		// Loose content between verse spans belongs to the open verse.
		if a.state == accumulatingVerse {
			a.appendText(f.Category, f.Text)
		}
	}
}

func (a *Assembler) feedVerse(f Fragment) {
	label := fragmentLabel(f)

	ref, err := verse.ParseRef(f.Ref)
	if err == nil {
		switch {
		case a.state == noActiveVerse:
			a.begin(f.Ref, label)
		case f.Ref != a.current.ref:
			a.finalize(false)
			a.begin(f.Ref, label)
		case label != "" && label != a.current.label:
			// Split verse: same reference, new sub-label.
			a.finalize(false)
			a.begin(f.Ref, label)
		}

		// Later fragments may restate the reference; last write wins.
		a.current.chapter = ref.Chapter
		a.current.verseNumber = ref.Verse
	}

	if a.state == noActiveVerse {
		return
	}

	if len(f.Parts) == 0 {
		a.appendText(classify.Content, f.Text)
		return
	}
	for _, p := range f.Parts {
		a.appendPart(p)
	}
}

func (a *Assembler) appendPart(p Part) {
	switch p.Category {
	case classify.Note, classify.Label, "":
	case classify.Heading:
		a.headers.RecordHeading(a.HeadingTarget(), p.Text, false)
	default:
		a.appendText(p.Category, p.Text)
	}
}

func (a *Assembler) appendText(category, text string) {
	if classify.IsUppercased(category) {
		a.current.text.WriteString(verse.Upper(text))
		return
	}
	a.current.text.WriteString(" ")
	a.current.text.WriteString(text)
}

func (a *Assembler) begin(ref, label string) {
	a.state = accumulatingVerse
	a.current = scratch{
		ref:     ref,
		label:   label,
		chapter: a.chapter,
	}
}

// FinishChapter finalizes the open verse at the end of a chapter. A heading
// queued for the order after it is attached as well, because nothing follows
// to claim it. It is safe to call more than once.
func (a *Assembler) FinishChapter() {
	if a.state != accumulatingVerse {
		return
	}
	a.finalize(true)
}

func (a *Assembler) finalize(endOfChapter bool) {
	order := a.finalized + 1

	var heading string
	if endOfChapter {
		heading, _ = a.headers.TakeEither(order, order+1)
	} else {
		heading, _ = a.headers.Take(order)
	}

	a.verses = append(a.verses, verse.Verse{
		ID:          verse.MakeID(a.book, a.current.chapter, order),
		Book:        a.book,
		Chapter:     a.current.chapter,
		VerseNumber: a.current.verseNumber,
		Text:        verse.CleanText(a.current.text.String()),
		Heading:     heading,
		Order:       order,
		Label:       a.current.label,
	})

	a.finalized = order
	a.state = noActiveVerse
	a.current = scratch{}
}

// fragmentLabel returns the sub-verse label carried by a verse fragment.
func fragmentLabel(f Fragment) string {
	for _, p := range f.Parts {
		if p.Category == classify.Label {
			return strings.TrimSpace(p.Text)
		}
	}
	return ""
}
