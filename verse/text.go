package verse

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun    = regexp.MustCompile(`[\s\p{Zs}]+`)
	spaceBeforePunct = regexp.MustCompile(` +([.,])`)
)

// CleanText normalizes accumulated verse text: trims it, collapses
// whitespace runs to a single space and drops spaces in front of "." and ",".
// Applying it twice gives the same result as applying it once.
func CleanText(s string) string {
	s = norm.NFC.String(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// Upper upper-cases text rendered in small capitals, such as divine names.
func Upper(s string) string {
	// A Caser keeps state, so each call gets its own.
	return cases.Upper(language.Und).String(s)
}
