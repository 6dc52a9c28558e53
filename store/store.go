package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pevans/versescrape/discovery"
	"github.com/pevans/versescrape/verse"
)

// Custom errors for store operations
var (
	ErrNotFound = errors.New("not found")
)

// Book status values.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Store keeps harvested verses, per-book progress and run history in
// SQLite.
type Store struct {
	db *sql.DB
}

// Run is one harvest run.
type Run struct {
	RunID       string     `json:"run_id"`
	Version     string     `json:"version"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	BooksOK     int        `json:"books_ok"`
	BooksFailed int        `json:"books_failed"`
	Verses      int        `json:"verses"`
}

// Book is the stored state of one book.
type Book struct {
	Book              int       `json:"book"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	Status            string    `json:"status"`
	ExpectedChapters  int       `json:"expected_chapters"`
	ProcessedChapters int       `json:"processed_chapters"`
	VerseCounts       []int     `json:"verse_counts"`
	VerseCount        int       `json:"verse_count"`
	LastError         *string   `json:"last_error,omitempty"`
	RunID             string    `json:"run_id"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewStore opens (or creates) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		version TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		books_ok INTEGER DEFAULT 0,
		books_failed INTEGER DEFAULT 0,
		verses INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS books (
		book INTEGER PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		expected_chapters INTEGER DEFAULT 0,
		processed_chapters INTEGER DEFAULT 0,
		verse_counts TEXT NOT NULL DEFAULT '[]',
		verse_count INTEGER DEFAULT 0,
		last_error TEXT,
		run_id TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS verses (
		id TEXT PRIMARY KEY,
		book INTEGER NOT NULL,
		chapter INTEGER NOT NULL,
		verse INTEGER NOT NULL,
		ord INTEGER NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		heading TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS verses_book_chapter ON verses (book, chapter, ord);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun records the start of a run.
func (s *Store) CreateRun(runID, version string, startedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, version, started_at) VALUES (?, ?, ?)`,
		runID, version, formatTime(&startedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records the totals of a finished run.
func (s *Store) FinishRun(runID string, finishedAt time.Time, booksOK, booksFailed, verses int) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, books_ok = ?, books_failed = ?, verses = ? WHERE run_id = ?`,
		formatTime(&finishedAt), booksOK, booksFailed, verses, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(runID string) (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt sql.NullString

	err := s.db.QueryRow(
		`SELECT run_id, version, started_at, finished_at, books_ok, books_failed, verses
		 FROM runs WHERE run_id = ?`, runID,
	).Scan(&run.RunID, &run.Version, &startedAt, &finishedAt, &run.BooksOK, &run.BooksFailed, &run.Verses)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		t := parseTime(finishedAt.String)
		run.FinishedAt = &t
	}
	return &run, nil
}

// SaveBook replaces the stored verses of a book and marks it complete.
func (s *Store) SaveBook(runID string, book discovery.Book, result *verse.BookResult) error {
	counts, err := json.Marshal(result.Counts.VerseCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal verse counts: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM verses WHERE book = ?`, book.Index); err != nil {
		return fmt.Errorf("failed to clear verses: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO verses (id, book, chapter, verse, ord, label, text, heading)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range result.Verses {
		if _, err := stmt.Exec(v.ID, v.Book, v.Chapter, v.VerseNumber, v.Order, v.Label, v.Text, v.Heading); err != nil {
			return fmt.Errorf("failed to insert verse %s: %w", v.ID, err)
		}
	}

	now := time.Now()
	if err := upsertBook(tx, Book{
		Book:              book.Index,
		Code:              book.Code,
		Name:              book.Name,
		Status:            StatusComplete,
		ExpectedChapters:  book.ExpectedChapters,
		ProcessedChapters: result.ChaptersProcessed(),
		VerseCount:        len(result.Verses),
		RunID:             runID,
		UpdatedAt:         now,
	}, string(counts)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit book: %w", err)
	}
	return nil
}

// MarkBookFailed records a failed book. Verses from an earlier successful
// run are kept.
func (s *Store) MarkBookFailed(runID string, book discovery.Book, cause error) error {
	msg := cause.Error()
	_, err := s.db.Exec(`
		INSERT INTO books (book, code, name, status, expected_chapters, last_error, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(book) DO UPDATE SET
			status = excluded.status,
			last_error = excluded.last_error,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`,
		book.Index, book.Code, book.Name, StatusFailed, book.ExpectedChapters, msg, runID, formatTime(ptr(time.Now())),
	)
	if err != nil {
		return fmt.Errorf("failed to mark book failed: %w", err)
	}
	return nil
}

// ListBooks lists stored books by book number.
func (s *Store) ListBooks() ([]Book, error) {
	rows, err := s.db.Query(bookColumns + ` ORDER BY book`)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// GetBook retrieves a book by number.
func (s *Store) GetBook(book int) (*Book, error) {
	b, err := scanBook(s.db.QueryRow(bookColumns+` WHERE book = ?`, book))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListVerses returns every verse of a book in chapter and order sequence.
func (s *Store) ListVerses(book int) ([]verse.Verse, error) {
	return s.queryVerses(verseColumns+` WHERE book = ? ORDER BY chapter, ord`, book)
}

// ListChapter returns the verses of one chapter in order.
func (s *Store) ListChapter(book, chapter int) ([]verse.Verse, error) {
	return s.queryVerses(verseColumns+` WHERE book = ? AND chapter = ? ORDER BY ord`, book, chapter)
}

// GetVerse retrieves a verse by ID.
func (s *Store) GetVerse(id string) (*verse.Verse, error) {
	verses, err := s.queryVerses(verseColumns+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(verses) == 0 {
		return nil, ErrNotFound
	}
	return &verses[0], nil
}

const (
	bookColumns = `
		SELECT book, code, name, status, expected_chapters, processed_chapters,
		       verse_counts, verse_count, last_error, run_id, updated_at
		FROM books`
	verseColumns = `
		SELECT id, book, chapter, verse, ord, label, text, heading
		FROM verses`
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*Book, error) {
	var b Book
	var counts, updatedAt string
	var lastError sql.NullString

	err := row.Scan(
		&b.Book, &b.Code, &b.Name, &b.Status, &b.ExpectedChapters, &b.ProcessedChapters,
		&counts, &b.VerseCount, &lastError, &b.RunID, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan book: %w", err)
	}

	if err := json.Unmarshal([]byte(counts), &b.VerseCounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verse counts: %w", err)
	}
	if lastError.Valid {
		b.LastError = &lastError.String
	}
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func (s *Store) queryVerses(query string, args ...any) ([]verse.Verse, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verses: %w", err)
	}
	defer rows.Close()

	verses := []verse.Verse{}
	for rows.Next() {
		var v verse.Verse
		if err := rows.Scan(&v.ID, &v.Book, &v.Chapter, &v.VerseNumber, &v.Order, &v.Label, &v.Text, &v.Heading); err != nil {
			return nil, fmt.Errorf("failed to scan verse: %w", err)
		}
		verses = append(verses, v)
	}
	return verses, rows.Err()
}

func upsertBook(tx *sql.Tx, b Book, counts string) error {
	_, err := tx.Exec(`
		INSERT INTO books (book, code, name, status, expected_chapters, processed_chapters,
		                   verse_counts, verse_count, last_error, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT(book) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			status = excluded.status,
			expected_chapters = excluded.expected_chapters,
			processed_chapters = excluded.processed_chapters,
			verse_counts = excluded.verse_counts,
			verse_count = excluded.verse_count,
			last_error = NULL,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`,
		b.Book, b.Code, b.Name, b.Status, b.ExpectedChapters, b.ProcessedChapters,
		counts, b.VerseCount, b.RunID, formatTime(&b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save book: %w", err)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
