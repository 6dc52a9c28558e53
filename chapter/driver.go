// Package chapter turns the rendered markup of a chapter page into ordered
// verse records. The Driver walks the page's groups, the Assembler decides
// where verses begin and end, and the HeaderAccumulator holds headings until
// the verse they introduce is finalized.
package chapter

import (
	"errors"
	"fmt"

	"github.com/pevans/versescrape/classify"
	"github.com/pevans/versescrape/dom"
	"github.com/pevans/versescrape/verse"
)

// ErrContentUnavailable is returned when a chapter page has no renderable
// content. The chapter is skipped and contributes no verses.
var ErrContentUnavailable = errors.New("chapter content unavailable")

// Result holds the verses parsed from one chapter page.
type Result struct {
	Book         int
	Chapter      int
	ChapterToken string
	Verses       []verse.Verse
}

// Count returns the number of verses emitted for the page.
func (r *Result) Count() int {
	return len(r.Verses)
}

// ParseChapter walks a chapter container and returns its verses in document
// order. startOrder is the last order already emitted for the same numeric
// chapter, usually zero.
func ParseChapter(container dom.Node, book int, chapterToken string, startOrder int) (*Result, error) {
	if container == nil || classify.IsUnavailable(container.Tag()) {
		return nil, ErrContentUnavailable
	}

	chapterNum, err := verse.ChapterNumber(chapterToken)
	if err != nil {
		return nil, fmt.Errorf("invalid chapter %q: %w", chapterToken, err)
	}

	headers := NewHeaderAccumulator()
	asm := NewAssembler(book, chapterNum, startOrder, headers)

	groups := container.Children(dom.Groups)
	for _, group := range groups {
		if classify.IsUnavailable(group.Tag()) {
			return nil, ErrContentUnavailable
		}
	}
	for gi, group := range groups {
		category := classify.Classify(group.Tag())
		lastGroup := gi == len(groups)-1

		// A trailing blank paragraph closes the chapter on its own.
		if category == classify.Blank && lastGroup {
			asm.FinishChapter()
			continue
		}

		var spans []dom.Node
		if category == classify.Table {
			spans = group.Children(dom.TableSpans)
		} else {
			spans = group.Children(dom.Spans)
		}

		headingGroup := classify.IsTopLevelHeading(category)
		if headingGroup {
			// Keep headings from separate containers on separate lines.
			headers.AppendSeparator(asm.HeadingTarget())
		}

		for si, span := range spans {
			f := fragmentOf(span)
			// Descriptive titles sometimes carry verse spans of their own.
			if headingGroup && f.Category != classify.Verse {
				recordHeading(headers, asm.HeadingTarget(), f)
			} else {
				asm.Feed(f)
			}

			if lastGroup && si == len(spans)-1 {
				asm.FinishChapter()
			}
		}
	}

	// Groups after the last verse span (empty paragraphs, trailing
	// headings) never reach the per-fragment close above.
	asm.FinishChapter()

	return &Result{
		Book:         book,
		Chapter:      chapterNum,
		ChapterToken: chapterToken,
		Verses:       asm.Verses(),
	}, nil
}

// ParseInto parses a chapter page and appends its verses to the book,
// continuing the order of any earlier page with the same numeric chapter.
func ParseInto(book *verse.BookResult, container dom.Node, chapterToken string) (*Result, error) {
	chapterNum, err := verse.ChapterNumber(chapterToken)
	if err != nil {
		return nil, fmt.Errorf("invalid chapter %q: %w", chapterToken, err)
	}

	result, err := ParseChapter(container, book.Book, chapterToken, book.NextOrder(chapterNum))
	if err != nil {
		return nil, err
	}

	book.Append(chapterNum, result.Verses)
	return result, nil
}

// fragmentOf classifies a span and its direct sub-spans.
func fragmentOf(span dom.Node) Fragment {
	ref, _ := span.Attr(dom.RefAttr)
	f := Fragment{
		Category: classify.Classify(span.Tag()),
		Ref:      ref,
		Text:     span.Text(),
	}
	for _, sub := range span.Children(dom.SubSpans) {
		f.Parts = append(f.Parts, Part{
			Category: classify.Classify(sub.Tag()),
			Text:     sub.Text(),
		})
	}
	return f
}

// recordHeading adds the text of a span inside a heading container. Notes,
// labels and unstyled spans are skipped; small-capital runs are upper-cased.
func recordHeading(headers *HeaderAccumulator, target int, f Fragment) {
	switch f.Category {
	case classify.Note, classify.Label, "":
		return
	}
	headers.RecordHeading(target, f.Text, classify.IsUppercased(f.Category))
}
