// Package harvest drives a pool of tabs over the discovered books. Each tab
// claims the next unprocessed book, walks its chapters in order and hands the
// pages to the chapter parser. Books are retried with backoff; chapters that
// cannot be read are skipped with a warning.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/pevans/versescrape/chapter"
	"github.com/pevans/versescrape/discovery"
	"github.com/pevans/versescrape/verse"
)

// ErrBookFailed wraps the last error of a book whose retries ran out.
var ErrBookFailed = errors.New("book failed")

// Warning kinds.
const (
	ChapterSkipped = "chapter_skipped"
	CountMismatch  = "count_mismatch"
	IDOverflow     = "id_overflow"
)

// Warning is a non-fatal problem found while processing a book.
type Warning struct {
	Kind    string `json:"kind"`
	Book    int    `json:"book"`
	Chapter string `json:"chapter,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Chapter != "" {
		return fmt.Sprintf("%s: book %d chapter %s: %s", w.Kind, w.Book, w.Chapter, w.Message)
	}
	return fmt.Sprintf("%s: book %d: %s", w.Kind, w.Book, w.Message)
}

// Failure records a book that could not be processed.
type Failure struct {
	Book discovery.Book
	Err  error
}

// Report is the outcome of a run. Books is sorted by discovery index.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Books      []*verse.BookResult
	Failed     []Failure
	Warnings   []Warning
}

// VerseCount returns the total number of verses across all books.
func (r *Report) VerseCount() int {
	n := 0
	for _, b := range r.Books {
		n += len(b.Verses)
	}
	return n
}

// Options controls retries and chapter limits.
type Options struct {
	Attempts    uint
	Delay       time.Duration
	MaxDelay    time.Duration
	MaxChapters int
}

// DefaultOptions returns the retry policy used when none is configured.
func DefaultOptions() Options {
	return Options{
		Attempts:    3,
		Delay:       2 * time.Second,
		MaxDelay:    30 * time.Second,
		MaxChapters: 200,
	}
}

// Pool runs books across a fixed set of tabs.
type Pool struct {
	tabs   []discovery.Tab
	opts   Options
	logger *slog.Logger
}

// NewPool creates a pool. Every tab is owned by exactly one worker.
func NewPool(tabs []discovery.Tab, opts Options, logger *slog.Logger) *Pool {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{tabs: tabs, opts: opts, logger: logger}
}

// Run processes every book and returns the aggregated report. Book failures
// are recorded in the report; Run only fails when no tabs are available.
func (p *Pool) Run(ctx context.Context, books []discovery.Book) (*Report, error) {
	if len(p.tabs) == 0 {
		return nil, errors.New("no tabs available")
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := p.logger.With("run_id", report.RunID)
	logger.Info("run started", "books", len(books), "tabs", len(p.tabs))

	var (
		cursor atomic.Int64
		mu     sync.Mutex
		wg     sync.WaitGroup
	)

	for _, tab := range p.tabs {
		tab := tab
		wg.Add(1)
		go func() {
			defer wg.Done()
			tabLog := logger.With("tab", tab.ID())

			for ctx.Err() == nil {
				i := int(cursor.Add(1)) - 1
				if i >= len(books) {
					return
				}
				book := books[i]
				bookLog := tabLog.With("book", book.Index, "code", book.Code)

				result, warnings, err := p.processWithRetry(ctx, tab, book, bookLog)

				mu.Lock()
				report.Warnings = append(report.Warnings, warnings...)
				if err != nil {
					report.Failed = append(report.Failed, Failure{Book: book, Err: err})
				} else {
					report.Books = append(report.Books, result)
				}
				mu.Unlock()

				if err != nil {
					bookLog.Error("book failed", "error", err)
				} else {
					bookLog.Info("book complete",
						"chapters", result.ChaptersProcessed(),
						"verses", len(result.Verses))
				}
			}
		}()
	}
	wg.Wait()

	verse.SortBooks(report.Books)
	sort.SliceStable(report.Failed, func(i, j int) bool {
		return report.Failed[i].Book.Index < report.Failed[j].Book.Index
	})
	sort.SliceStable(report.Warnings, func(i, j int) bool {
		return report.Warnings[i].Book < report.Warnings[j].Book
	})
	report.FinishedAt = time.Now()

	logger.Info("run finished",
		"books", len(report.Books),
		"failed", len(report.Failed),
		"verses", report.VerseCount(),
		"warnings", len(report.Warnings),
		"elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	return report, ctx.Err()
}

// processWithRetry processes a book, starting over from its first chapter
// on each attempt.
func (p *Pool) processWithRetry(ctx context.Context, tab discovery.Tab, book discovery.Book, logger *slog.Logger) (*verse.BookResult, []Warning, error) {
	var (
		result   *verse.BookResult
		warnings []Warning
	)

	err := retry.Do(
		func() error {
			r, w, err := p.processBook(ctx, tab, book, logger)
			if err != nil {
				return err
			}
			result, warnings = r, w
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(p.opts.Attempts),
		retry.Delay(p.opts.Delay),
		retry.MaxDelay(p.opts.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("retrying book", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrBookFailed, book.Code, err)
	}

	return result, warnings, nil
}

// processBook walks one book from its first chapter until the tab reports
// no next chapter.
func (p *Pool) processBook(ctx context.Context, tab discovery.Tab, book discovery.Book, logger *slog.Logger) (*verse.BookResult, []Warning, error) {
	result := verse.NewBookResult(book.Index, book.Name)
	var warnings []Warning

	warn := func(w Warning) {
		warnings = append(warnings, w)
		logger.Warn(w.Message, "kind", w.Kind, "chapter", w.Chapter)
	}

	if err := tab.Open(ctx, book.URL); err != nil {
		return nil, nil, fmt.Errorf("failed to open book: %w", err)
	}

	for n := 0; p.opts.MaxChapters <= 0 || n < p.opts.MaxChapters; n++ {
		container, token, err := tab.Chapter(ctx)
		if err == nil {
			var parsed *chapter.Result
			parsed, err = chapter.ParseInto(result, container, token)
			if err == nil {
				if w, overflow := checkIDs(book.Index, token, parsed); overflow {
					warn(w)
				}
				logger.Debug("chapter parsed", "chapter", token, "verses", parsed.Count())
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, chapter.ErrContentUnavailable),
			errors.Is(err, discovery.ErrStructuralMiss),
			errors.Is(err, verse.ErrMalformedRef):
			warn(Warning{
				Kind:    ChapterSkipped,
				Book:    book.Index,
				Chapter: token,
				Message: fmt.Sprintf("chapter skipped: %v", err),
			})
		default:
			return nil, nil, fmt.Errorf("failed to read chapter %q: %w", token, err)
		}

		if err := tab.Next(ctx); err != nil {
			if errors.Is(err, discovery.ErrNoNextChapter) {
				break
			}
			return nil, nil, fmt.Errorf("failed to move past chapter %q: %w", token, err)
		}
	}

	if w := ValidateCounts(book, result); w != nil {
		warn(*w)
	}

	return result, warnings, nil
}

// ValidateCounts compares the processed chapter count with the count the
// book list advertised. Books with an unknown expected count always pass.
func ValidateCounts(book discovery.Book, result *verse.BookResult) *Warning {
	if book.ExpectedChapters <= 0 {
		return nil
	}
	got := result.ChaptersProcessed()
	if got == book.ExpectedChapters {
		return nil
	}
	return &Warning{
		Kind:    CountMismatch,
		Book:    book.Index,
		Message: fmt.Sprintf("processed %d chapters, expected %d", got, book.ExpectedChapters),
	}
}

// checkIDs reports the first verse whose chapter or order does not fit the
// fixed-width identifier.
func checkIDs(book int, token string, parsed *chapter.Result) (Warning, bool) {
	for _, v := range parsed.Verses {
		if !verse.FitsID(v.Chapter, v.Order) {
			return Warning{
				Kind:    IDOverflow,
				Book:    book,
				Chapter: token,
				Message: fmt.Sprintf("verse %s exceeds three-digit chapter or order", v.ID),
			}, true
		}
	}
	return Warning{}, false
}
