package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/versescrape/discovery"
	"github.com/pevans/versescrape/store"
	"github.com/pevans/versescrape/verse"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Test helper: create a router over a populated store
func setupTestRouter(t *testing.T) *gin.Engine {
	st, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	gen := verse.NewBookResult(1, "Genesis")
	gen.Append(1, []verse.Verse{
		{ID: "1001001", Book: 1, Chapter: 1, VerseNumber: 1, Text: "In the beginning", Heading: "Creation", Order: 1},
		{ID: "1001002", Book: 1, Chapter: 1, VerseNumber: 2, Text: "Now the earth", Order: 2},
	})
	require.NoError(t, st.SaveBook("run-1", discovery.Book{Index: 1, Code: "GEN", Name: "Genesis", ExpectedChapters: 50}, gen))
	require.NoError(t, st.MarkBookFailed("run-1", discovery.Book{Index: 2, Code: "EXO", Name: "Exodus"}, errors.New("timeout")))

	return NewServer(st).SetupRouter()
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

// TestHandleListBooks verifies book listing
func TestHandleListBooks(t *testing.T) {
	router := setupTestRouter(t)

	w := get(router, "/api/v1/books")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp ListBooksResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "GEN", resp.Books[0].Code)
}

// TestHandleListBooks_StatusFilter verifies filtering by status
func TestHandleListBooks_StatusFilter(t *testing.T) {
	router := setupTestRouter(t)

	w := get(router, "/api/v1/books?status=failed")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp ListBooksResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "EXO", resp.Books[0].Code)
}

// TestHandleGetBook verifies book lookup and errors
func TestHandleGetBook(t *testing.T) {
	router := setupTestRouter(t)

	w := get(router, "/api/v1/books/1")
	assert.Equal(t, http.StatusOK, w.Code)

	var book store.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
	assert.Equal(t, "Genesis", book.Name)
	assert.Equal(t, 50, book.ExpectedChapters)

	w = get(router, "/api/v1/books/9")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))

	w = get(router, "/api/v1/books/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_parameter", errorCode(t, w))
}

// TestHandleGetChapter verifies chapter listing
func TestHandleGetChapter(t *testing.T) {
	router := setupTestRouter(t)

	w := get(router, "/api/v1/books/1/chapters/1")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp ChapterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "Creation", resp.Verses[0].Heading)

	w = get(router, "/api/v1/books/1/chapters/2")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(router, "/api/v1/books/1/chapters/0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleGetVerse verifies verse lookup by ID
func TestHandleGetVerse(t *testing.T) {
	router := setupTestRouter(t)

	w := get(router, "/api/v1/verses/1001002")
	assert.Equal(t, http.StatusOK, w.Code)

	var v verse.Verse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "Now the earth", v.Text)
	assert.Equal(t, 2, v.VerseNumber)

	w = get(router, "/api/v1/verses/1009009")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(router, "/api/v1/verses/GEN.1.1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestCORS verifies preflight requests
func TestCORS(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/books", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
