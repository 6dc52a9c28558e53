package chapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/versescrape/classify"
)

// verseFrag builds a verse fragment with an optional label and one content run.
func verseFrag(ref, label, text string) Fragment {
	var parts []Part
	if label != "" {
		parts = append(parts, Part{Category: classify.Label, Text: label})
	}
	parts = append(parts, Part{Category: classify.Content, Text: text})
	return Fragment{Category: classify.Verse, Ref: ref, Parts: parts}
}

func newTestAssembler() (*Assembler, *HeaderAccumulator) {
	h := NewHeaderAccumulator()
	return NewAssembler(1, 1, 0, h), h
}

// TestAssembler_TwoVerses verifies a reference change closes the open verse
func TestAssembler_TwoVerses(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(verseFrag("B.1.1", "", "In the beginning"))
	assert.Empty(t, a.Verses(), "first verse stays open")

	a.Feed(verseFrag("B.1.2", "", "the earth was formless"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 2)
	assert.Equal(t, 1, verses[0].Order)
	assert.Equal(t, "In the beginning", verses[0].Text)
	assert.Equal(t, "1001001", verses[0].ID)
	assert.Equal(t, 2, verses[1].Order)
	assert.Equal(t, "the earth was formless", verses[1].Text)
	assert.Equal(t, 2, verses[1].VerseNumber)
}

// TestAssembler_HeadingAttachesToOrder verifies heading attachment by order
func TestAssembler_HeadingAttachesToOrder(t *testing.T) {
	a, h := newTestAssembler()
	h.RecordHeading(1, "Creation", false)

	a.Feed(verseFrag("B.1.1", "", "In the beginning"))
	a.Feed(verseFrag("B.1.2", "", "the earth was formless"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 2)
	assert.Equal(t, "Creation", verses[0].Heading)
	assert.Equal(t, "", verses[1].Heading)
}

// TestAssembler_HeadingTarget verifies headings target the next verse to begin
func TestAssembler_HeadingTarget(t *testing.T) {
	a, _ := newTestAssembler()
	assert.Equal(t, 1, a.HeadingTarget())

	a.Feed(verseFrag("B.1.1", "", "one"))
	assert.Equal(t, 2, a.HeadingTarget(), "verse 1 is open, next to begin is 2")

	a.Feed(verseFrag("B.1.2", "", "two"))
	assert.Equal(t, 3, a.HeadingTarget())

	a.FinishChapter()
	assert.Equal(t, 3, a.HeadingTarget())
	assert.False(t, a.Active())
}

// TestAssembler_HeadingFragmentBetweenVerses verifies inline heading spans
func TestAssembler_HeadingFragmentBetweenVerses(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(verseFrag("B.1.1", "", "one"))
	a.Feed(Fragment{Category: classify.Heading, Text: "Second Section"})
	a.Feed(verseFrag("B.1.2", "", "two"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 2)
	assert.Equal(t, "", verses[0].Heading)
	assert.Equal(t, "Second Section", verses[1].Heading)
}

// TestAssembler_SplitLabel verifies same-reference verses with new labels split
func TestAssembler_SplitLabel(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(verseFrag("B.4.3", "3", "before"))
	a.Feed(verseFrag("B.4.4", "a", "first half"))
	a.Feed(verseFrag("B.4.4", "b", "second half"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 3)

	assert.Equal(t, 2, verses[1].Order)
	assert.Equal(t, 4, verses[1].VerseNumber)
	assert.Equal(t, "a", verses[1].Label)
	assert.Equal(t, "first half", verses[1].Text)

	assert.Equal(t, 3, verses[2].Order)
	assert.Equal(t, 4, verses[2].VerseNumber)
	assert.Equal(t, "b", verses[2].Label)
	assert.Equal(t, "second half", verses[2].Text)
}

// TestAssembler_SameRefContinues verifies restated references keep one verse
func TestAssembler_SameRefContinues(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(verseFrag("B.1.1", "1", "line one"))
	a.Feed(verseFrag("B.1.1", "", "line two"))
	a.Feed(verseFrag("B.1.1", "1", "line three"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 1)
	assert.Equal(t, "line one line two line three", verses[0].Text)
	assert.Equal(t, "1", verses[0].Label)
}

// TestAssembler_LabelSurvivesHeading verifies label state across a heading
func TestAssembler_LabelSurvivesHeading(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(verseFrag("B.4.4", "a", "first half"))
	a.Feed(Fragment{Category: classify.Heading, Text: "Interlude"})
	a.Feed(verseFrag("B.4.4", "", "still first half"))
	a.Feed(verseFrag("B.4.4", "b", "second half"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 2)
	assert.Equal(t, "first half still first half", verses[0].Text)
	assert.Equal(t, "second half", verses[1].Text)
	assert.Equal(t, "Interlude", verses[1].Heading)
}

// TestAssembler_LabelAfterUnlabeledRun verifies a label arriving on a run
// that had none starts a new verse
func TestAssembler_LabelAfterUnlabeledRun(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(verseFrag("B.4.4", "", "unlabeled run"))
	a.Feed(verseFrag("B.4.4", "b", "second half"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 2)
	assert.Equal(t, "unlabeled run", verses[0].Text)
	assert.Equal(t, "", verses[0].Label)
	assert.Equal(t, "second half", verses[1].Text)
	assert.Equal(t, "b", verses[1].Label)
	assert.Equal(t, 4, verses[1].VerseNumber)
}

// TestAssembler_UnstyledSpansIgnored verifies spans without a category add no text
func TestAssembler_UnstyledSpansIgnored(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(Fragment{
		Category: classify.Verse,
		Ref:      "B.1.1",
		Parts: []Part{
			{Category: classify.Label, Text: "1"},
			{Category: classify.Content, Text: "In the beginning"},
			{Category: classify.Classify("x-unstyled"), Text: "JUNK"},
		},
	})
	a.Feed(Fragment{Category: classify.Classify(""), Text: "LOOSE"})
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 1)
	assert.Equal(t, "In the beginning", verses[0].Text)
}

// TestAssembler_ContentCategories verifies per-category text handling
func TestAssembler_ContentCategories(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(Fragment{
		Category: classify.Verse,
		Ref:      "B.2.4",
		Parts: []Part{
			{Category: classify.Label, Text: "4"},
			{Category: classify.Content, Text: "when the "},
			{Category: classify.NameEmphasis, Text: "Lord"},
			{Category: classify.Content, Text: " God made"},
			{Category: classify.Note, Text: "# Or the heavens"},
			{Category: classify.SmallCaps, Text: "x"},
			{Category: "wj", Text: "the earth ."},
		},
	})
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 1)
	assert.Equal(t, "when the LORD God madeX the earth.", verses[0].Text)
	assert.Equal(t, "4", verses[0].Label)
	assert.NotContains(t, verses[0].Text, "Or the heavens")
}

// TestAssembler_TextWithoutParts verifies bare verse spans keep their text
func TestAssembler_TextWithoutParts(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(Fragment{Category: classify.Verse, Ref: "B.1.1", Text: "bare text"})
	a.Feed(Fragment{Category: classify.Content, Text: "loose content"})
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 1)
	assert.Equal(t, "bare text loose content", verses[0].Text)
}

// TestAssembler_MalformedRef verifies unparsable references do not split
func TestAssembler_MalformedRef(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(Fragment{Category: classify.Verse, Ref: "garbage", Text: "dropped before any verse"})
	a.Feed(verseFrag("B.1.1", "", "In the beginning"))
	a.Feed(verseFrag("not-a-ref", "", "more"))
	a.Feed(verseFrag("", "", "and more"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 1)
	assert.Equal(t, "In the beginning more and more", verses[0].Text)
}

// TestAssembler_CompoundRef verifies combined citations keep the first pair
func TestAssembler_CompoundRef(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(verseFrag("B.1.1+B.1.2", "1-2", "combined text"))
	a.Feed(verseFrag("B.1.3", "3", "next"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 2)
	assert.Equal(t, 1, verses[0].VerseNumber)
	assert.Equal(t, "combined text", verses[0].Text)
	assert.Equal(t, 3, verses[1].VerseNumber)
	assert.Equal(t, 2, verses[1].Order)
}

// TestAssembler_UnderscoreChapter verifies compound chapter tokens in refs
func TestAssembler_UnderscoreChapter(t *testing.T) {
	a := NewAssembler(17, 1, 0, NewHeaderAccumulator())

	a.Feed(verseFrag("EST.1_1.1", "1", "text"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 1)
	assert.Equal(t, 1, verses[0].Chapter)
	assert.Equal(t, "17001001", verses[0].ID)
}

// TestAssembler_StartOrder verifies numbering continues from earlier pages
func TestAssembler_StartOrder(t *testing.T) {
	a := NewAssembler(17, 1, 22, NewHeaderAccumulator())

	a.Feed(verseFrag("EST.1_1.1", "", "continuation"))
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 1)
	assert.Equal(t, 23, verses[0].Order)
	assert.Equal(t, "17001023", verses[0].ID)
}

// TestAssembler_FinishChapterTwice verifies the final verse is emitted once
func TestAssembler_FinishChapterTwice(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(verseFrag("B.1.1", "", "only"))
	a.FinishChapter()
	a.FinishChapter()

	assert.Len(t, a.Verses(), 1)
	assert.Equal(t, 1, a.Order())
}

// TestAssembler_NoFragments verifies an empty chapter emits nothing
func TestAssembler_NoFragments(t *testing.T) {
	a, h := newTestAssembler()
	h.RecordHeading(1, "Orphan", false)

	a.FinishChapter()

	assert.Empty(t, a.Verses())
}

// TestAssembler_TrailingHeadingQuirk verifies the end-of-chapter lookup one
// order ahead. This is a heuristic for headings that follow the last verse,
// not a general attachment rule.
func TestAssembler_TrailingHeadingQuirk(t *testing.T) {
	a, h := newTestAssembler()

	a.Feed(verseFrag("B.1.1", "", "one"))
	a.Feed(verseFrag("B.1.2", "", "two"))
	h.RecordHeading(a.HeadingTarget(), "Closing", false)
	assert.Equal(t, 3, a.HeadingTarget())

	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 2)
	assert.Equal(t, "", verses[0].Heading)
	assert.Equal(t, "Closing", verses[1].Heading)
}

// TestAssembler_VersesAreCopies verifies emitted verses do not alias state
func TestAssembler_VersesAreCopies(t *testing.T) {
	a, _ := newTestAssembler()

	a.Feed(verseFrag("B.1.1", "", "one"))
	a.FinishChapter()

	first := a.Verses()
	first[0].Text = "changed"

	assert.Equal(t, "one", a.Verses()[0].Text)
}

// TestAssembler_OrderMonotonic verifies strictly increasing orders and IDs
func TestAssembler_OrderMonotonic(t *testing.T) {
	a, _ := newTestAssembler()

	refs := []string{"B.1.1", "B.1.2", "B.1.2", "B.1.3", "B.1.4", "B.1.4", "B.1.5"}
	for _, ref := range refs {
		a.Feed(verseFrag(ref, "", "text"))
	}
	a.FinishChapter()

	verses := a.Verses()
	require.Len(t, verses, 5)
	for i := 1; i < len(verses); i++ {
		assert.Equal(t, verses[i-1].Order+1, verses[i].Order)
		assert.Less(t, verses[i-1].ID, verses[i].ID)
	}
}
