package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// SiteConfig defines how to acquire chapters of one version from a scripture
// site: where the book list lives and which selectors locate books, chapter
// content and the next-chapter link.
type SiteConfig struct {
	Version     string         `yaml:"version" mapstructure:"version" json:"version"`
	BaseURL     string         `yaml:"base_url" mapstructure:"base_url" json:"base_url"`
	BookListURL string         `yaml:"book_list_url" mapstructure:"book_list_url" json:"book_list_url"`
	UserAgent   string         `yaml:"user_agent" mapstructure:"user_agent" json:"user_agent"`
	BookList    BookListConfig `yaml:"book_list" mapstructure:"book_list" json:"book_list"`
	Chapter     ChapterConfig  `yaml:"chapter" mapstructure:"chapter" json:"chapter"`
}

// BookListConfig defines how to discover books from the book list page.
type BookListConfig struct {
	BookSelector    string `yaml:"book_selector" mapstructure:"book_selector" json:"book_selector"`
	NameSelector    string `yaml:"name_selector,omitempty" mapstructure:"name_selector" json:"name_selector,omitempty"`
	LinkSelector    string `yaml:"link_selector,omitempty" mapstructure:"link_selector" json:"link_selector,omitempty"`
	ChapterSelector string `yaml:"chapter_selector,omitempty" mapstructure:"chapter_selector" json:"chapter_selector,omitempty"`
}

// ChapterConfig defines how to extract a chapter and move to the next one.
type ChapterConfig struct {
	ContainerSelector   string `yaml:"container_selector" mapstructure:"container_selector" json:"container_selector"`
	UnavailableSelector string `yaml:"unavailable_selector,omitempty" mapstructure:"unavailable_selector" json:"unavailable_selector,omitempty"`
	NextSelector        string `yaml:"next_selector" mapstructure:"next_selector" json:"next_selector"`
	// URLPattern must capture the book code in group "book" and the chapter
	// token in group "chapter".
	URLPattern  string `yaml:"url_pattern" mapstructure:"url_pattern" json:"url_pattern"`
	MaxChapters int    `yaml:"max_chapters" mapstructure:"max_chapters" json:"max_chapters"`
}

// DefaultURLPattern matches chapter URLs such as /bible/111/GEN.1.NIV and
// /bible/111/EST.1_1.NIV.
const DefaultURLPattern = `/(?P<book>[A-Z0-9]{3})\.(?P<chapter>[0-9]+(?:_[0-9]+)?)(?:\.|$|\?)`

// NewChapterConfig creates a chapter configuration with default values.
func NewChapterConfig(containerSelector string) *ChapterConfig {
	return &ChapterConfig{
		ContainerSelector:   containerSelector,
		UnavailableSelector: "[class*='ChapterContent_not-available']",
		NextSelector:        "a[data-testid='next-chapter']",
		URLPattern:          DefaultURLPattern,
		MaxChapters:         200, // Psalms has 150 plus any split pages
	}
}

// DefaultSiteConfig returns a profile for sites that render chapters with
// generated ChapterContent_* classes.
func DefaultSiteConfig() *SiteConfig {
	return &SiteConfig{
		Version:     "NIV",
		BaseURL:     "https://www.bible.com",
		BookListURL: "https://www.bible.com/bible/111/GEN.1.NIV",
		UserAgent:   "versescrape/1.0 (scripture verse extraction)",
		BookList: BookListConfig{
			BookSelector:    "[data-testid='book-list'] li",
			NameSelector:    "[data-testid='book-name']",
			LinkSelector:    "a",
			ChapterSelector: "[data-testid='chapter-list'] a",
		},
		Chapter: *NewChapterConfig("div[class*='ChapterContent_chapter']"),
	}
}

// Validate checks that the profile can drive a scrape.
func (c *SiteConfig) Validate() error {
	if c.Version == "" {
		return errors.New("version is required")
	}
	if _, err := url.ParseRequestURI(c.BookListURL); err != nil {
		return fmt.Errorf("invalid book_list_url: %w", err)
	}
	if c.BookList.BookSelector == "" {
		return errors.New("book_list.book_selector is required")
	}
	if c.Chapter.ContainerSelector == "" {
		return errors.New("chapter.container_selector is required")
	}
	if c.Chapter.NextSelector == "" {
		return errors.New("chapter.next_selector is required")
	}

	re, err := regexp.Compile(c.Chapter.URLPattern)
	if err != nil {
		return fmt.Errorf("invalid chapter.url_pattern: %w", err)
	}
	if re.SubexpIndex("book") < 0 || re.SubexpIndex("chapter") < 0 {
		return errors.New("chapter.url_pattern must define groups \"book\" and \"chapter\"")
	}
	return nil
}
