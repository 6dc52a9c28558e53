package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/versescrape/scraper"
)

var (
	// ErrStructuralMiss is returned when a page loads but lacks the element
	// a selector expects.
	ErrStructuralMiss = errors.New("page structure not recognized")
	// ErrNoBooks is returned when the book list yields nothing usable.
	ErrNoBooks = errors.New("no books discovered")
)

// Book is one book found on the book list page. Index is the 1-based
// discovery position and becomes the book number in verse IDs.
type Book struct {
	Index            int    `json:"index"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	URL              string `json:"url"`
	ExpectedChapters int    `json:"expected_chapters"`
}

// FetchHTML fetches and parses the page at the given URL.
func FetchHTML(ctx context.Context, client *http.Client, pageURL, userAgent string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc, nil
}

// ExtractBooks reads the book list from a parsed page. Links that leave the
// source domain or do not look like chapter URLs are skipped.
func ExtractBooks(doc *goquery.Document, cfg scraper.BookListConfig, pattern *regexp.Regexp, pageURL string) ([]Book, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	var books []Book
	seen := make(map[string]bool)

	doc.Find(cfg.BookSelector).Each(func(_ int, item *goquery.Selection) {
		link := item
		if cfg.LinkSelector != "" {
			link = item.Find(cfg.LinkSelector).First()
		}
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		bookURL, err := Resolve(base, href)
		if err != nil || ValidateChapterURL(bookURL, pageURL) != nil {
			return
		}

		code, _, ok := SplitChapterURL(bookURL, pattern)
		if !ok || seen[code] {
			return
		}
		seen[code] = true

		name := item.Text()
		if cfg.NameSelector != "" {
			if n := item.Find(cfg.NameSelector).First(); n.Length() > 0 {
				name = n.Text()
			}
		}

		expected := 0
		if cfg.ChapterSelector != "" {
			expected = item.Find(cfg.ChapterSelector).Length()
		}

		books = append(books, Book{
			Index:            len(books) + 1,
			Code:             code,
			Name:             strings.Join(strings.Fields(name), " "),
			URL:              bookURL,
			ExpectedChapters: expected,
		})
	})

	if len(books) == 0 {
		return nil, ErrNoBooks
	}
	return books, nil
}

// DiscoverBooks fetches the site's book list and extracts the books in page
// order.
func DiscoverBooks(ctx context.Context, client *http.Client, site *scraper.SiteConfig) ([]Book, error) {
	pattern, err := regexp.Compile(site.Chapter.URLPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid chapter URL pattern: %w", err)
	}

	doc, err := FetchHTML(ctx, client, site.BookListURL, site.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch book list: %w", err)
	}

	return ExtractBooks(doc, site.BookList, pattern, site.BookListURL)
}

// SplitChapterURL extracts the book code and chapter token from a chapter
// URL. Only the path is matched so host names never look like references.
func SplitChapterURL(chapterURL string, pattern *regexp.Regexp) (book, chapter string, ok bool) {
	u, err := url.Parse(chapterURL)
	if err != nil {
		return "", "", false
	}
	m := pattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", false
	}
	book = m[pattern.SubexpIndex("book")]
	chapter = m[pattern.SubexpIndex("chapter")]
	return book, chapter, book != "" && chapter != ""
}

// Resolve turns a possibly relative link into an absolute URL.
func Resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// ValidateChapterURL checks that a chapter URL is an http(s) URL on the same
// host as the source.
func ValidateChapterURL(chapterURL, sourceURL string) error {
	u, err := url.Parse(chapterURL)
	if err != nil {
		return fmt.Errorf("invalid chapter URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("chapter URL must use http or https scheme")
	}

	src, err := url.Parse(sourceURL)
	if err != nil {
		return fmt.Errorf("invalid source URL: %w", err)
	}
	if u.Host != src.Host {
		return fmt.Errorf("chapter URL domain (%s) does not match source domain (%s)",
			u.Host, src.Host)
	}

	return nil
}
