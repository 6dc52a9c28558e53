package chapter

import (
	"strings"

	"github.com/pevans/versescrape/verse"
)

// HeaderItem is heading text waiting for the verse it introduces.
type HeaderItem struct {
	TargetOrder int
	Text        string
}

// HeaderAccumulator buffers heading text keyed by the order of the verse it
// will attach to. It lives for one chapter walk; anything still pending at
// the end of the chapter is dropped.
type HeaderAccumulator struct {
	items []HeaderItem
}

// NewHeaderAccumulator returns an empty accumulator.
func NewHeaderAccumulator() *HeaderAccumulator {
	return &HeaderAccumulator{}
}

// RecordHeading appends heading text for targetOrder, creating the pending
// item if there is none yet. Small-capital runs pass uppercase so the text
// keeps the rendered casing.
func (h *HeaderAccumulator) RecordHeading(targetOrder int, text string, uppercase bool) {
	if uppercase {
		text = verse.Upper(text)
	}

	if i := h.index(targetOrder); i >= 0 {
		h.items[i].Text += text
		return
	}
	h.items = append(h.items, HeaderItem{TargetOrder: targetOrder, Text: text})
}

// AppendSeparator adds a line break to the pending item at targetOrder so
// text from the next heading container starts on its own line. It does
// nothing when no item is pending there.
func (h *HeaderAccumulator) AppendSeparator(targetOrder int) {
	if i := h.index(targetOrder); i >= 0 {
		h.items[i].Text += "\n"
	}
}

// Pending reports whether heading text is waiting for targetOrder.
func (h *HeaderAccumulator) Pending(targetOrder int) bool {
	return h.index(targetOrder) >= 0
}

// Take removes and returns the heading for targetOrder.
func (h *HeaderAccumulator) Take(targetOrder int) (string, bool) {
	i := h.index(targetOrder)
	if i < 0 {
		return "", false
	}

	text := h.items[i].Text
	h.items = append(h.items[:i], h.items[i+1:]...)
	return strings.TrimSpace(text), true
}

// TakeEither tries Take(a) and then Take(b). It is only used when a chapter
// ends: a heading that trails the last verse is queued one order ahead of it.
func (h *HeaderAccumulator) TakeEither(a, b int) (string, bool) {
	if text, ok := h.Take(a); ok {
		return text, true
	}
	return h.Take(b)
}

// Len returns the number of pending headings.
func (h *HeaderAccumulator) Len() int {
	return len(h.items)
}

func (h *HeaderAccumulator) index(targetOrder int) int {
	for i, item := range h.items {
		if item.TargetOrder == targetOrder {
			return i
		}
	}
	return -1
}
