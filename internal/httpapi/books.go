package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bookhaven/bookorders/internal/apperrors"
	"github.com/bookhaven/bookorders/internal/db"
	"github.com/bookhaven/bookorders/internal/events"
	"github.com/bookhaven/bookorders/internal/repo"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// BooksAPI exposes the book catalog CRUD endpoints.
type BooksAPI struct {
	repo      *repo.BookRepository
	publisher *events.Publisher
	log       *zap.Logger
}

// NewBooksAPI creates the book catalog API.
func NewBooksAPI(bookRepo *repo.BookRepository, publisher *events.Publisher, log *zap.Logger) *BooksAPI {
	return &BooksAPI{repo: bookRepo, publisher: publisher, log: log}
}

// Register mounts the book routes on r.
func (api *BooksAPI) Register(r *mux.Router) {
	r.HandleFunc("/api/books", api.list).Methods(http.MethodGet)
	r.HandleFunc("/api/books", api.create).Methods(http.MethodPost)
	r.HandleFunc("/api/books/{sku}", api.get).Methods(http.MethodGet)
	r.HandleFunc("/api/books/{sku}", api.update).Methods(http.MethodPut)
	r.HandleFunc("/api/books/{sku}", api.delete).Methods(http.MethodDelete)
}

// listResponse is the paginated listing envelope shared by both list endpoints.
type listResponse struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	Total      int64       `json:"total"`
	TotalPages int64       `json:"total_pages"`
}

func totalPages(total int64, pageSize int) int64 {
	pages := total / int64(pageSize)
	if total%int64(pageSize) > 0 {
		pages++
	}
	return pages
}

func (api *BooksAPI) list(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	query := repo.BookQuery{
		Category:   readString(qs, "category", ""),
		Author:     readString(qs, "author", ""),
		ActiveOnly: readBool(qs, "active_only", false),
		MinPrice:   readInt64(qs, "min_price", 0),
		MaxPrice:   readInt64(qs, "max_price", 0),
		SortBy:     readString(qs, "sort", ""),
		Descending: readBool(qs, "desc", false),
		Page:       readInt(qs, "page", 1),
		PageSize:   readInt(qs, "page_size", 10),
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 10
	}

	books, total, err := api.repo.List(r.Context(), query)
	if err != nil {
		writeError(w, r, api.log, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:      books,
		Page:       query.Page,
		PageSize:   query.PageSize,
		Total:      total,
		TotalPages: totalPages(total, query.PageSize),
	})
}

func (api *BooksAPI) get(w http.ResponseWriter, r *http.Request) {
	sku := mux.Vars(r)["sku"]
	book, err := api.repo.Get(r.Context(), sku)
	if err != nil {
		writeError(w, r, api.log, repo.AsAppError(err))
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (api *BooksAPI) create(w http.ResponseWriter, r *http.Request) {
	var book db.Book
	if err := decodeJSON(r, &book); err != nil {
		writeError(w, r, api.log, err)
		return
	}

	if strings.TrimSpace(book.Title) == "" {
		writeError(w, r, api.log, apperrors.InvalidArgumentf("title cannot be empty"))
		return
	}
	if strings.TrimSpace(book.Author) == "" {
		writeError(w, r, api.log, apperrors.InvalidArgumentf("author cannot be empty"))
		return
	}
	if book.Currency == "" {
		book.Currency = "USD"
	}
	book.Active = true

	if err := api.repo.Create(r.Context(), &book); err != nil {
		writeError(w, r, api.log, repo.AsAppError(err))
		return
	}

	api.publishAsync(CorrelationID(r), func(ctx context.Context, correlationID string) error {
		return api.publisher.PublishBookCreated(ctx, correlationID, &book)
	})

	writeJSON(w, http.StatusCreated, book)
}

func (api *BooksAPI) update(w http.ResponseWriter, r *http.Request) {
	sku := mux.Vars(r)["sku"]

	var book db.Book
	if err := decodeJSON(r, &book); err != nil {
		writeError(w, r, api.log, err)
		return
	}
	if book.SKU != "" && book.SKU != sku {
		writeError(w, r, api.log, apperrors.InvalidArgumentf("route SKU and book SKU do not match"))
		return
	}
	book.SKU = sku

	fieldsChanged, err := api.repo.Update(r.Context(), &book)
	if err != nil {
		writeError(w, r, api.log, repo.AsAppError(err))
		return
	}

	if len(fieldsChanged) > 0 {
		api.publishAsync(CorrelationID(r), func(ctx context.Context, correlationID string) error {
			return api.publisher.PublishBookUpdated(ctx, correlationID, sku, fieldsChanged)
		})
	}

	updated, err := api.repo.Get(r.Context(), sku)
	if err != nil {
		writeError(w, r, api.log, repo.AsAppError(err))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (api *BooksAPI) delete(w http.ResponseWriter, r *http.Request) {
	sku := mux.Vars(r)["sku"]
	if err := api.repo.Delete(r.Context(), sku); err != nil {
		writeError(w, r, api.log, repo.AsAppError(err))
		return
	}

	api.publishAsync(CorrelationID(r), func(ctx context.Context, correlationID string) error {
		return api.publisher.PublishBookDeleted(ctx, correlationID, sku)
	})

	w.WriteHeader(http.StatusNoContent)
}

// publishAsync fires an event without blocking the response. Publish
// failures only log.
func (api *BooksAPI) publishAsync(correlationID string, publish func(context.Context, string) error) {
	if api.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := publish(ctx, correlationID); err != nil {
			api.log.Error("Failed to publish book event", zap.Error(err))
		}
	}()
}
