package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/versescrape/chapter"
	"github.com/pevans/versescrape/scraper"
)

const bookListPage = `<html><body>
<ul data-testid="book-list">
  <li><span data-testid="book-name">Genesis</span><a href="/bible/1/GEN.1.TST">Genesis</a>
    <div data-testid="chapter-list"><a href="/bible/1/GEN.1.TST">1</a><a href="/bible/1/GEN.2.TST">2</a></div></li>
  <li><span data-testid="book-name">  Song of
    Songs </span><a href="/bible/1/SNG.1.TST">Song</a>
    <div data-testid="chapter-list"><a href="/bible/1/SNG.1.TST">1</a></div></li>
  <li><a href="https://elsewhere.example/bible/1/LEV.1.TST">Off-site</a></li>
  <li><a href="/about">About</a></li>
  <li><span data-testid="book-name">Genesis again</span><a href="/bible/1/GEN.1.TST">dup</a></li>
</ul>
</body></html>`

func chapterPage(ref, text, next string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="ChapterContent_chapter__uvbXo">`)
	b.WriteString(`<div class="ChapterContent_p__dVKHb"><span class="ChapterContent_verse__57FIw" data-usfm="` + ref + `">`)
	b.WriteString(`<span class="ChapterContent_content__RrUqA">` + text + `</span></span></div></div>`)
	if next != "" {
		b.WriteString(`<a data-testid="next-chapter" href="` + next + `">Next</a>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// newTestSite starts a fake scripture site and returns a matching profile.
func newTestSite(t *testing.T) (*httptest.Server, *scraper.SiteConfig) {
	t.Helper()

	pages := map[string]string{
		"/bible/books":       bookListPage,
		"/bible/1/GEN.1.TST": chapterPage("GEN.1.1", "In the beginning", "/bible/1/GEN.2.TST"),
		"/bible/1/GEN.2.TST": chapterPage("GEN.2.1", "Thus the heavens", "/bible/1/EXO.1.TST"),
		"/bible/1/SNG.1.TST": `<html><body><div class="ChapterContent_not-available__Q1"></div>` +
			`<a data-testid="next-chapter" href="/bible/1/SNG.2.TST">Next</a></body></html>`,
		"/bible/1/SNG.2.TST": `<html><body><p>nothing here</p></body></html>`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "versescrape-test", r.Header.Get("User-Agent"))
		if r.URL.Path == "/bible/1/JOB.1.TST" {
			time.Sleep(200 * time.Millisecond)
		}
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	site := scraper.DefaultSiteConfig()
	site.Version = "TST"
	site.BaseURL = server.URL
	site.BookListURL = server.URL + "/bible/books"
	site.UserAgent = "versescrape-test"
	return server, site
}

func newTestTab(t *testing.T, site *scraper.SiteConfig) *HTTPTab {
	t.Helper()
	tab, err := NewHTTPTab(1, site, nil, TabOptions{
		ContentTimeout: 2 * time.Second,
		NextTimeout:    2 * time.Second,
	})
	require.NoError(t, err)
	return tab
}

// TestFetchHTML_Success verifies pages are fetched and parsed
func TestFetchHTML_Success(t *testing.T) {
	server, site := newTestSite(t)

	doc, err := FetchHTML(context.Background(), server.Client(), server.URL+"/bible/1/GEN.1.TST", site.UserAgent)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("[data-testid='next-chapter']").Length())
}

// TestFetchHTML_NotFound verifies HTTP errors are reported
func TestFetchHTML_NotFound(t *testing.T) {
	server, site := newTestSite(t)

	_, err := FetchHTML(context.Background(), server.Client(), server.URL+"/missing", site.UserAgent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

// TestDiscoverBooks verifies book extraction in page order
func TestDiscoverBooks(t *testing.T) {
	server, site := newTestSite(t)

	books, err := DiscoverBooks(context.Background(), server.Client(), site)
	require.NoError(t, err)
	require.Len(t, books, 2, "off-site, non-chapter and duplicate links are skipped")

	assert.Equal(t, 1, books[0].Index)
	assert.Equal(t, "GEN", books[0].Code)
	assert.Equal(t, "Genesis", books[0].Name)
	assert.Equal(t, server.URL+"/bible/1/GEN.1.TST", books[0].URL)
	assert.Equal(t, 2, books[0].ExpectedChapters)

	assert.Equal(t, 2, books[1].Index)
	assert.Equal(t, "SNG", books[1].Code)
	assert.Equal(t, "Song of Songs", books[1].Name)
	assert.Equal(t, 1, books[1].ExpectedChapters)
}

// TestExtractBooks_Empty verifies an unrecognized list page is an error
func TestExtractBooks_Empty(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)

	pattern := regexp.MustCompile(scraper.DefaultURLPattern)
	_, err = ExtractBooks(doc, scraper.DefaultSiteConfig().BookList, pattern, "https://example.com/books")
	assert.ErrorIs(t, err, ErrNoBooks)
}

// TestSplitChapterURL verifies host names are never read as references
func TestSplitChapterURL(t *testing.T) {
	pattern := regexp.MustCompile(scraper.DefaultURLPattern)

	book, token, ok := SplitChapterURL("http://127.0.0.1:8080/bible/1/EST.1_1.TST", pattern)
	require.True(t, ok)
	assert.Equal(t, "EST", book)
	assert.Equal(t, "1_1", token)

	_, _, ok = SplitChapterURL("http://127.0.0.1:8080/about", pattern)
	assert.False(t, ok)
}

// TestValidateChapterURL verifies scheme and domain checks
func TestValidateChapterURL(t *testing.T) {
	src := "https://example.com/bible/books"

	assert.NoError(t, ValidateChapterURL("https://example.com/bible/1/GEN.1.TST", src))
	assert.Error(t, ValidateChapterURL("ftp://example.com/bible/1/GEN.1.TST", src))
	assert.Error(t, ValidateChapterURL("https://other.com/bible/1/GEN.1.TST", src))
	assert.Error(t, ValidateChapterURL("://bad", src))
}

// TestHTTPTab_WalkBook verifies chapter extraction and navigation within a book
func TestHTTPTab_WalkBook(t *testing.T) {
	server, site := newTestSite(t)
	tab := newTestTab(t, site)
	ctx := context.Background()

	require.NoError(t, tab.Open(ctx, server.URL+"/bible/1/GEN.1.TST"))

	container, token, err := tab.Chapter(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", token)

	result, err := chapter.ParseChapter(container, 1, token, 0)
	require.NoError(t, err)
	require.Len(t, result.Verses, 1)
	assert.Equal(t, "In the beginning", result.Verses[0].Text)

	require.NoError(t, tab.Next(ctx))
	assert.Equal(t, server.URL+"/bible/1/GEN.2.TST", tab.URL())

	_, token, err = tab.Chapter(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", token)

	err = tab.Next(ctx)
	assert.ErrorIs(t, err, ErrNoNextChapter, "next link leaves the book")
	require.NoError(t, tab.Close())
}

// TestHTTPTab_Unavailable verifies the not-available marker skips a chapter
func TestHTTPTab_Unavailable(t *testing.T) {
	server, site := newTestSite(t)
	tab := newTestTab(t, site)
	ctx := context.Background()

	require.NoError(t, tab.Open(ctx, server.URL+"/bible/1/SNG.1.TST"))
	_, token, err := tab.Chapter(ctx)
	assert.ErrorIs(t, err, chapter.ErrContentUnavailable)
	assert.Equal(t, "1", token)

	require.NoError(t, tab.Next(ctx), "navigation still works on skipped chapters")

	_, _, err = tab.Chapter(ctx)
	assert.ErrorIs(t, err, ErrStructuralMiss)

	assert.ErrorIs(t, tab.Next(ctx), ErrNoNextChapter)
}

// TestHTTPTab_ContentTimeout verifies a slow page is treated as unavailable
func TestHTTPTab_ContentTimeout(t *testing.T) {
	server, site := newTestSite(t)
	tab, err := NewHTTPTab(2, site, nil, TabOptions{
		ContentTimeout: 20 * time.Millisecond,
		NextTimeout:    20 * time.Millisecond,
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, tab.Open(ctx, server.URL+"/bible/1/JOB.1.TST"))
	_, _, err = tab.Chapter(ctx)
	assert.ErrorIs(t, err, chapter.ErrContentUnavailable)

	err = tab.Next(ctx)
	assert.ErrorIs(t, err, ErrNoNextChapter, "a timed-out next control completes the book")
}

// TestHTTPTab_HTTPError verifies server failures are returned for retry
func TestHTTPTab_HTTPError(t *testing.T) {
	server, site := newTestSite(t)
	tab := newTestTab(t, site)
	ctx := context.Background()

	require.NoError(t, tab.Open(ctx, server.URL+"/bible/1/EXO.1.TST"))
	_, _, err := tab.Chapter(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, chapter.ErrContentUnavailable))
	assert.False(t, errors.Is(err, ErrStructuralMiss))
}

// TestHTTPTab_OpenRejectsNonChapter verifies Open validates the URL
func TestHTTPTab_OpenRejectsNonChapter(t *testing.T) {
	_, site := newTestSite(t)
	tab := newTestTab(t, site)

	err := tab.Open(context.Background(), "https://example.com/about")
	assert.ErrorIs(t, err, ErrStructuralMiss)
	assert.Equal(t, 1, tab.ID())
}
