package verse

import "fmt"

// maxPadded is the largest chapter or order value that fits the fixed-width
// ID fields.
const maxPadded = 999

// MakeID derives the stable composite ID of a verse: the book number without
// padding, followed by the chapter and the order each padded to three digits.
// Values above 999 are written in full rather than truncated, which breaks the
// fixed width; use FitsID to detect that case.
func MakeID(book, chapter, order int) string {
	return fmt.Sprintf("%d%03d%03d", book, chapter, order)
}

// FitsID reports whether chapter and order fit in the three-digit ID fields.
func FitsID(chapter, order int) bool {
	return chapter >= 0 && chapter <= maxPadded && order >= 0 && order <= maxPadded
}
