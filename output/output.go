// Package output writes harvested books to disk, one file per book, plus
// aggregate files for the whole run.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/pevans/versescrape/verse"
)

// Format selects the per-book file layout.
type Format string

const (
	// Flat writes a JSON array of verses.
	Flat Format = "flat"
	// Wrapped writes a JSON object {"id": <book>, "verses": [...]}.
	Wrapped Format = "wrapped"
	// YAML writes a YAML sequence of verses.
	YAML Format = "yaml"
)

// CountsFile and AllFile are the aggregate files written next to the books.
const (
	CountsFile = "counts.json"
	AllFile    = "all.json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Flat, Wrapped, YAML:
		return f, nil
	case "":
		return Flat, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want flat, wrapped or yaml)", s)
	}
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	if f == YAML {
		return "yaml"
	}
	return "json"
}

// Options controls where and how books are written.
type Options struct {
	Dir        string
	Version    string
	Format     Format
	NumericIDs bool
}

// Writer writes book files under <dir>/<version>/.
type Writer struct {
	dir  string
	opts Options
}

// record is a verse as written to disk. ID is a string or, with NumericIDs,
// an integer.
type record struct {
	ID          any    `json:"id" yaml:"id"`
	Book        int    `json:"book" yaml:"book"`
	Chapter     int    `json:"chapter" yaml:"chapter"`
	VerseNumber int    `json:"verse" yaml:"verse"`
	Text        string `json:"text" yaml:"text"`
	Heading     string `json:"heading" yaml:"heading"`
	Order       int    `json:"order" yaml:"order"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
}

type wrappedBook struct {
	ID     int      `json:"id"`
	Verses []record `json:"verses"`
}

// NewWriter creates the version directory and returns a writer for it.
func NewWriter(opts Options) (*Writer, error) {
	if opts.Format == "" {
		opts.Format = Flat
	}
	if opts.Version == "" {
		return nil, errors.New("version is required")
	}

	dir := filepath.Join(opts.Dir, opts.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Writer{dir: dir, opts: opts}, nil
}

// Dir returns the version directory files are written to.
func (w *Writer) Dir() string {
	return w.dir
}

// FileName returns the book file name, e.g. "01_genesis.json".
func (w *Writer) FileName(b *verse.BookResult) string {
	slug := Slugify(b.Name)
	if slug == "" {
		slug = "book"
	}
	return fmt.Sprintf("%02d_%s.%s", b.Book, slug, w.opts.Format.Ext())
}

// WriteBook writes one book and returns the file path.
func (w *Writer) WriteBook(b *verse.BookResult) (string, error) {
	records, err := toRecords(b.Verses, w.opts.NumericIDs)
	if err != nil {
		return "", err
	}

	var data []byte
	switch w.opts.Format {
	case Wrapped:
		data, err = json.MarshalIndent(wrappedBook{ID: b.Book, Verses: records}, "", "  ")
	case YAML:
		data, err = yaml.Marshal(records)
	default:
		data, err = json.MarshalIndent(records, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal book %d: %w", b.Book, err)
	}

	path := filepath.Join(w.dir, w.FileName(b))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write book %d: %w", b.Book, err)
	}
	return path, nil
}

// WriteCounts writes every book's per-chapter verse counts, keyed by book
// number.
func (w *Writer) WriteCounts(books []*verse.BookResult) (string, error) {
	counts := make(map[string]verse.ChapterVerseCount, len(books))
	for _, b := range books {
		counts[strconv.Itoa(b.Book)] = b.Counts
	}

	data, err := json.MarshalIndent(counts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal counts: %w", err)
	}

	path := filepath.Join(w.dir, CountsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write counts: %w", err)
	}
	return path, nil
}

// WriteAll writes every verse of every book to one JSON array ordered by
// book, chapter and order.
func (w *Writer) WriteAll(books []*verse.BookResult) (string, error) {
	var all []verse.Verse
	for _, b := range books {
		all = append(all, b.Verses...)
	}
	SortVerses(all)

	records, err := toRecords(all, w.opts.NumericIDs)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal verses: %w", err)
	}

	path := filepath.Join(w.dir, AllFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write verses: %w", err)
	}
	return path, nil
}

// ReadBook reads a book file written in any format.
func ReadBook(path string) ([]verse.Verse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read book file: %w", err)
	}

	var records []record
	switch {
	case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")):
		var wb struct {
			Verses []record `json:"verses"`
		}
		if err := decodeJSON(data, &wb); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		records = wb.Verses
	default:
		if err := decodeJSON(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	verses := make([]verse.Verse, len(records))
	for i, r := range records {
		verses[i] = verse.Verse{
			ID:          fmt.Sprint(r.ID),
			Book:        r.Book,
			Chapter:     r.Chapter,
			VerseNumber: r.VerseNumber,
			Text:        r.Text,
			Heading:     r.Heading,
			Order:       r.Order,
			Label:       r.Label,
		}
	}
	return verses, nil
}

// ReadCounts reads a counts file written by WriteCounts, keyed by book
// number.
func ReadCounts(path string) (map[int]verse.ChapterVerseCount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read counts file: %w", err)
	}

	var raw map[string]verse.ChapterVerseCount
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	counts := make(map[int]verse.ChapterVerseCount, len(raw))
	for key, c := range raw {
		book, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid book key %q in %s", key, path)
		}
		counts[book] = c
	}
	return counts, nil
}

var bookFile = regexp.MustCompile(`^[0-9]{2,}_.+\.(json|yaml)$`)

// BookFiles lists the book files in dir in book order, skipping the
// aggregate files.
func BookFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !bookFile.MatchString(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// SortVerses orders verses by book, chapter and order.
func SortVerses(verses []verse.Verse) {
	sort.SliceStable(verses, func(i, j int) bool {
		a, b := verses[i], verses[j]
		if a.Book != b.Book {
			return a.Book < b.Book
		}
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		return a.Order < b.Order
	})
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify converts a book name to a file-name-safe slug.
// "Song of Songs" -> "song-of-songs", "Ésaïe" -> "esaie".
func Slugify(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = nonAlphanumeric.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

func toRecords(verses []verse.Verse, numericIDs bool) ([]record, error) {
	records := make([]record, len(verses))
	for i, v := range verses {
		var id any = v.ID
		if numericIDs {
			n, err := strconv.ParseInt(v.ID, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to convert verse ID %q: %w", v.ID, err)
			}
			id = n
		}
		records[i] = record{
			ID:          id,
			Book:        v.Book,
			Chapter:     v.Chapter,
			VerseNumber: v.VerseNumber,
			Text:        v.Text,
			Heading:     v.Heading,
			Order:       v.Order,
			Label:       v.Label,
		}
	}
	return records, nil
}

// decodeJSON keeps numeric IDs exact instead of going through float64.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
