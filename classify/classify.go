// Package classify maps the generated style classes of the source markup to
// semantic categories. Classes follow the pattern
// "<namespace>_<category>__<hash>", e.g. "ChapterContent_verse__57FIw".
package classify

import (
	"regexp"
	"strings"
)

// Categories the chapter walk cares about. Anything else is treated as plain
// content.
const (
	Verse   = "verse"
	Label   = "label"
	Content = "content"
	Heading = "heading"
	Note    = "note"
	Blank   = "b"
	Table   = "table"

	// NameEmphasis marks divine names set in small capitals ("nd").
	NameEmphasis = "nd"
	// SmallCaps marks other small-capital runs.
	SmallCaps = "sc"
)

var (
	classPattern      = regexp.MustCompile(`^[a-z0-9]+_([a-z0-9]+)__[a-z0-9_-]+$`)
	topLevelHeadingRe = regexp.MustCompile(`^(mt|ms|mr|s|sr|r|d|sp|qa|cl)\d?$`)
	unavailableRe     = regexp.MustCompile(`^[a-z0-9]+_not-available__[a-z0-9_-]+$`)
)

// Classify returns the category encoded in a raw class attribute, or "" when
// no class matches the pattern. With several classes the first match wins.
func Classify(rawTag string) string {
	for _, class := range strings.Fields(strings.ToLower(rawTag)) {
		if m := classPattern.FindStringSubmatch(class); m != nil {
			return m[1]
		}
	}
	return ""
}

// IsTopLevelHeading reports whether a group category is one of the heading
// containers: titles, section headings, section references, parallel
// references, descriptive titles, speakers, acrostic headings and chapter
// labels, each optionally followed by a level digit.
func IsTopLevelHeading(category string) bool {
	return topLevelHeadingRe.MatchString(category)
}

// IsUppercased reports whether text in this category is rendered in small
// capitals and must be upper-cased.
func IsUppercased(category string) bool {
	return category == NameEmphasis || category == SmallCaps
}

// IsUnavailable reports whether a class attribute carries the marker the
// source renders in place of a chapter it cannot show.
func IsUnavailable(rawTag string) bool {
	for _, class := range strings.Fields(strings.ToLower(rawTag)) {
		if unavailableRe.MatchString(class) {
			return true
		}
	}
	return false
}
