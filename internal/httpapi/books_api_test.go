package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/bookhaven/bookorders/internal/db"
	"github.com/bookhaven/bookorders/internal/repo"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBooksRouter(t *testing.T) *mux.Router {
	t.Helper()
	log := zap.NewNop()
	bookRepo := repo.NewBookRepository(testDatabase(t), log)
	api := NewBooksAPI(bookRepo, nil, log)
	return newTestRouter(t, api.Register)
}

func bookBody(mutate func(map[string]interface{})) *bytes.Buffer {
	body := map[string]interface{}{
		"title":    "Test Book",
		"author":   "Test Author",
		"price":    1999,
		"category": "Fiction",
		"stock":    5,
	}
	if mutate != nil {
		mutate(body)
	}
	buf := &bytes.Buffer{}
	_ = json.NewEncoder(buf).Encode(body)
	return buf
}

func TestCreateBookEndpoint(t *testing.T) {
	router := newBooksRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/books", bookBody(nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var book db.Book
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&book))
	assert.Equal(t, "BOOK-001", book.SKU)
	assert.Equal(t, "USD", book.Currency)
	assert.True(t, book.Active)
}

func TestCreateBookEndpointRejectsEmptyTitle(t *testing.T) {
	router := newBooksRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/books", bookBody(func(b map[string]interface{}) {
		b["title"] = "   "
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookEndpointDuplicate(t *testing.T) {
	router := newBooksRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/books", bookBody(nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/books", bookBody(nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetBookEndpoint(t *testing.T) {
	router := newBooksRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/books", bookBody(nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/books/BOOK-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var book db.Book
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&book))
	assert.Equal(t, "Test Book", book.Title)

	rec = doRequest(router, http.MethodGet, "/api/books/BOOK-999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateBookEndpoint(t *testing.T) {
	router := newBooksRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/books", bookBody(nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, http.MethodPut, "/api/books/BOOK-001", bookBody(func(b map[string]interface{}) {
		b["price"] = 2999
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var book db.Book
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&book))
	assert.Equal(t, int64(2999), book.Price)

	rec = doRequest(router, http.MethodPut, "/api/books/BOOK-001", bookBody(func(b map[string]interface{}) {
		b["sku"] = "BOOK-002"
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteBookEndpoint(t *testing.T) {
	router := newBooksRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/books", bookBody(nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/api/books/BOOK-001", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Soft delete: the book stays readable but inactive.
	rec = doRequest(router, http.MethodGet, "/api/books/BOOK-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var book db.Book
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&book))
	assert.False(t, book.Active)

	rec = doRequest(router, http.MethodDelete, "/api/books/BOOK-999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBooksEndpoint(t *testing.T) {
	router := newBooksRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/books", bookBody(nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(router, http.MethodPost, "/api/books", bookBody(func(b map[string]interface{}) {
		b["title"] = "Pricey Tech"
		b["author"] = "Grace Hopper"
		b["category"] = "Technical"
		b["price"] = 4500
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/books?category=Technical", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []db.Book `json:"items"`
		Total int64     `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(1), body.Total)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Pricey Tech", body.Items[0].Title)
}
