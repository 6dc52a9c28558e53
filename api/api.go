// Package api serves harvested verses over a read-only HTTP API.
package api

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pevans/versescrape/store"
	"github.com/pevans/versescrape/verse"
)

// Reader is the part of the store the API needs.
type Reader interface {
	ListBooks() ([]store.Book, error)
	GetBook(book int) (*store.Book, error)
	ListChapter(book, chapter int) ([]verse.Verse, error)
	GetVerse(id string) (*verse.Verse, error)
}

// Server represents the HTTP API server.
type Server struct {
	store Reader
}

// NewServer creates a new API server over the given store.
func NewServer(store Reader) *Server {
	return &Server{store: store}
}

// SetupRouter configures the Gin router with all verse API routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	api.GET("/books", s.HandleListBooks)
	api.GET("/books/:book", s.HandleGetBook)
	api.GET("/books/:book/chapters/:chapter", s.HandleGetChapter)
	api.GET("/verses/:id", s.HandleGetVerse)

	return router
}

// ListBooksResponse represents the response for GET /api/v1/books.
type ListBooksResponse struct {
	Books []store.Book `json:"books"`
	Total int          `json:"total"`
}

// ChapterResponse represents the response for
// GET /api/v1/books/:book/chapters/:chapter.
type ChapterResponse struct {
	Book    int           `json:"book"`
	Chapter int           `json:"chapter"`
	Verses  []verse.Verse `json:"verses"`
	Total   int           `json:"total"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var verseIDPattern = regexp.MustCompile(`^[0-9]{7,}$`)

// HandleListBooks handles GET /api/v1/books.
func (s *Server) HandleListBooks(c *gin.Context) {
	books, err := s.store.ListBooks()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to list books: "+err.Error())
		return
	}

	// Filter by status (optional)
	if status := c.Query("status"); status != "" {
		filtered := []store.Book{}
		for _, b := range books {
			if b.Status == status {
				filtered = append(filtered, b)
			}
		}
		books = filtered
	}

	c.JSON(http.StatusOK, ListBooksResponse{Books: books, Total: len(books)})
}

// HandleGetBook handles GET /api/v1/books/:book.
func (s *Server) HandleGetBook(c *gin.Context) {
	book, ok := positiveParam(c, "book")
	if !ok {
		return
	}

	b, err := s.store.GetBook(book)
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "Book not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to get book: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, b)
}

// HandleGetChapter handles GET /api/v1/books/:book/chapters/:chapter.
func (s *Server) HandleGetChapter(c *gin.Context) {
	book, ok := positiveParam(c, "book")
	if !ok {
		return
	}
	chapter, ok := positiveParam(c, "chapter")
	if !ok {
		return
	}

	verses, err := s.store.ListChapter(book, chapter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to list chapter: "+err.Error())
		return
	}
	if len(verses) == 0 {
		respondError(c, http.StatusNotFound, "not_found", "Chapter not found")
		return
	}

	c.JSON(http.StatusOK, ChapterResponse{
		Book:    book,
		Chapter: chapter,
		Verses:  verses,
		Total:   len(verses),
	})
}

// HandleGetVerse handles GET /api/v1/verses/:id.
func (s *Server) HandleGetVerse(c *gin.Context) {
	id := c.Param("id")
	if !verseIDPattern.MatchString(id) {
		respondError(c, http.StatusBadRequest, "invalid_parameter", "Invalid verse ID")
		return
	}

	v, err := s.store.GetVerse(id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "Verse not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to get verse: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, v)
}

// positiveParam reads a positive integer path parameter, writing a 400
// response when it is invalid.
func positiveParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 1 {
		respondError(c, http.StatusBadRequest, "invalid_parameter", "Invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
