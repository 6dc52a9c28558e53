package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/pevans/versescrape/chapter"
	"github.com/pevans/versescrape/dom"
	"github.com/pevans/versescrape/scraper"
)

// ErrNoNextChapter is returned by Next when the current chapter is the last
// one of its book, or when the next-chapter control never appears.
var ErrNoNextChapter = errors.New("no next chapter")

// Tab is one browsing session. A tab holds one current page at a time and is
// used by a single worker.
type Tab interface {
	ID() int
	// Open makes url the current chapter page.
	Open(ctx context.Context, url string) error
	// Chapter returns the content container of the current page and its
	// chapter token. It returns chapter.ErrContentUnavailable when the page
	// has no renderable content and ErrStructuralMiss when the container
	// cannot be located.
	Chapter(ctx context.Context) (dom.Node, string, error)
	// Next moves to the following chapter of the same book, or returns
	// ErrNoNextChapter.
	Next(ctx context.Context) error
	Close() error
}

// TabOptions controls per-operation timeouts and request pacing.
type TabOptions struct {
	ContentTimeout time.Duration
	NextTimeout    time.Duration
	RequestsPerSec float64
	Burst          int
}

// DefaultTabOptions returns the timeouts and pacing used when none are
// configured.
func DefaultTabOptions() TabOptions {
	return TabOptions{
		ContentTimeout: 15 * time.Second,
		NextTimeout:    10 * time.Second,
		RequestsPerSec: 2,
		Burst:          1,
	}
}

// HTTPTab is a Tab backed by plain HTTP requests and goquery parsing.
type HTTPTab struct {
	id      int
	site    *scraper.SiteConfig
	client  *http.Client
	opts    TabOptions
	limiter *rate.Limiter
	pattern *regexp.Regexp

	url  string
	book string
	doc  *goquery.Document
}

// NewHTTPTab creates a tab for the given site profile.
func NewHTTPTab(id int, site *scraper.SiteConfig, client *http.Client, opts TabOptions) (*HTTPTab, error) {
	pattern, err := regexp.Compile(site.Chapter.URLPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid chapter URL pattern: %w", err)
	}
	if client == nil {
		client = &http.Client{}
	}

	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &HTTPTab{
		id:      id,
		site:    site,
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		pattern: pattern,
	}, nil
}

// ID returns the tab number.
func (t *HTTPTab) ID() int {
	return t.id
}

// URL returns the current page URL.
func (t *HTTPTab) URL() string {
	return t.url
}

func (t *HTTPTab) Open(_ context.Context, pageURL string) error {
	book, _, ok := SplitChapterURL(pageURL, t.pattern)
	if !ok {
		return fmt.Errorf("%w: not a chapter URL: %s", ErrStructuralMiss, pageURL)
	}
	t.url = pageURL
	t.book = book
	t.doc = nil
	return nil
}

func (t *HTTPTab) Chapter(ctx context.Context) (dom.Node, string, error) {
	_, token, ok := SplitChapterURL(t.url, t.pattern)
	if !ok {
		return nil, "", fmt.Errorf("%w: not a chapter URL: %s", ErrStructuralMiss, t.url)
	}

	if err := t.load(ctx, t.opts.ContentTimeout); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, token, fmt.Errorf("%w: timed out: %v", chapter.ErrContentUnavailable, err)
		}
		return nil, token, err
	}

	if sel := t.site.Chapter.UnavailableSelector; sel != "" && t.doc.Find(sel).Length() > 0 {
		return nil, token, chapter.ErrContentUnavailable
	}

	container, err := dom.Find(t.doc, t.site.Chapter.ContainerSelector)
	if err != nil {
		return nil, token, fmt.Errorf("%w: %v", ErrStructuralMiss, err)
	}
	return container, token, nil
}

func (t *HTTPTab) Next(ctx context.Context) error {
	if err := t.load(ctx, t.opts.NextTimeout); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: timed out: %v", ErrNoNextChapter, err)
		}
		return err
	}

	href, ok := t.doc.Find(t.site.Chapter.NextSelector).First().Attr("href")
	if !ok || href == "" {
		return ErrNoNextChapter
	}

	base, err := url.Parse(t.url)
	if err != nil {
		return fmt.Errorf("invalid current URL: %w", err)
	}
	next, err := Resolve(base, href)
	if err != nil {
		return fmt.Errorf("invalid next link %q: %w", href, err)
	}
	if err := ValidateChapterURL(next, t.url); err != nil {
		return fmt.Errorf("%w: %v", ErrNoNextChapter, err)
	}

	book, _, ok := SplitChapterURL(next, t.pattern)
	if !ok || book != t.book || next == t.url {
		return ErrNoNextChapter
	}

	t.url = next
	t.doc = nil
	return nil
}

// Close drops the current page.
func (t *HTTPTab) Close() error {
	t.doc = nil
	return nil
}

// load fetches the current page once, bounded by timeout.
func (t *HTTPTab) load(ctx context.Context, timeout time.Duration) error {
	if t.doc != nil {
		return nil
	}
	if t.url == "" {
		return fmt.Errorf("%w: no page open", ErrStructuralMiss)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	doc, err := FetchHTML(ctx, t.client, t.url, t.site.UserAgent)
	if err != nil {
		return err
	}
	t.doc = doc
	return nil
}
