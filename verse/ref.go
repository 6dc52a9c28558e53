package verse

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedRef is returned when a source reference cannot be parsed into a
// book, chapter and verse.
var ErrMalformedRef = errors.New("malformed verse reference")

// Ref is a parsed source reference such as "GEN.1.1".
type Ref struct {
	Book         string
	ChapterToken string
	Chapter      int
	Verse        int
}

// ParseRef parses a source reference. Compound references that join several
// citations with "+" (e.g. "GEN.1.1+GEN.1.2") keep only the first one.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if first, _, ok := strings.Cut(raw, "+"); ok {
		raw = strings.TrimSpace(first)
	}

	parts := strings.Split(raw, ".")
	if len(parts) < 3 {
		return Ref{}, ErrMalformedRef
	}

	book := parts[0]
	chapterToken := parts[1]
	if book == "" || chapterToken == "" {
		return Ref{}, ErrMalformedRef
	}

	chapter, err := ChapterNumber(chapterToken)
	if err != nil {
		return Ref{}, err
	}

	verseNumber, err := strconv.Atoi(parts[2])
	if err != nil {
		return Ref{}, ErrMalformedRef
	}

	return Ref{
		Book:         book,
		ChapterToken: chapterToken,
		Chapter:      chapter,
		Verse:        verseNumber,
	}, nil
}

// ChapterNumber extracts the numeric chapter from a chapter token. Compound
// tokens such as "23_1" yield the number before the underscore.
func ChapterNumber(token string) (int, error) {
	token = strings.TrimSpace(token)
	if prefix, _, ok := strings.Cut(token, "_"); ok {
		token = prefix
	}

	n, err := strconv.Atoi(token)
	if err != nil || n < 0 {
		return 0, ErrMalformedRef
	}
	return n, nil
}
