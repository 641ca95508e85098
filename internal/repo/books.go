package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookhaven/bookorders/internal/apperrors"
	"github.com/bookhaven/bookorders/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrBookNotFound is returned when a book is not found
	ErrBookNotFound = errors.New("book not found")

	// ErrBookAlreadyExists is returned when trying to create a book that already exists
	ErrBookAlreadyExists = errors.New("book already exists")
)

// BookQuery holds the filtering, sorting and pagination parameters for listing books.
type BookQuery struct {
	Category   string
	Author     string
	ActiveOnly bool
	MinPrice   int64 // cents, 0 means no bound
	MaxPrice   int64 // cents, 0 means no bound
	SortBy     string
	Descending bool
	Page       int
	PageSize   int
}

// Sorting is restricted to a fixed column list so query parameters can never
// reach the ORDER BY clause verbatim.
var bookSortColumns = map[string]string{
	"title":      "title",
	"author":     "author",
	"price":      "price",
	"created_at": "created_at",
}

// BookRepository handles book catalog operations
type BookRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewBookRepository creates a new book repository
func NewBookRepository(database *db.DB, logger *zap.Logger) *BookRepository {
	return &BookRepository{
		db:  database,
		log: logger,
	}
}

// List returns a page of books matching the query along with the total match count.
func (r *BookRepository) List(ctx context.Context, q BookQuery) ([]*db.Book, int64, error) {
	query := r.db.WithContext(ctx).Model(&db.Book{})

	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Author != "" {
		query = query.Where("lower(author) LIKE ?", "%"+strings.ToLower(q.Author)+"%")
	}
	if q.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if q.MinPrice > 0 {
		query = query.Where("price >= ?", q.MinPrice)
	}
	if q.MaxPrice > 0 {
		query = query.Where("price <= ?", q.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.Error("Failed to count books", zap.Error(err))
		return nil, 0, err
	}

	order := "created_at DESC"
	if col, ok := bookSortColumns[q.SortBy]; ok {
		order = col
		if q.Descending {
			order += " DESC"
		}
	}

	offset := (q.Page - 1) * q.PageSize
	var books []*db.Book
	if err := query.Offset(offset).Limit(q.PageSize).Order(order).Find(&books).Error; err != nil {
		r.log.Error("Failed to list books", zap.Error(err))
		return nil, 0, err
	}

	return books, total, nil
}

// Get retrieves a book by SKU
func (r *BookRepository) Get(ctx context.Context, sku string) (*db.Book, error) {
	var book db.Book
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.String("sku", sku), zap.Error(err))
		return nil, err
	}

	return &book, nil
}

// Create creates a new book in the catalog. A book with the same title and
// author must not already exist.
func (r *BookRepository) Create(ctx context.Context, book *db.Book) error {
	// Generate SKU if not provided
	if book.SKU == "" {
		sku, err := r.generateNextSKU(ctx)
		if err != nil {
			r.log.Error("Failed to generate SKU", zap.Error(err))
			return err
		}
		book.SKU = sku
	}

	// Check title+author uniqueness before inserting
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Book{}).
		Where("title = ? AND author = ?", book.Title, book.Author).
		Count(&count).Error
	if err != nil {
		r.log.Error("Failed to check book existence", zap.String("sku", book.SKU), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrBookAlreadyExists
	}

	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrBookAlreadyExists
		}
		r.log.Error("Failed to create book", zap.String("sku", book.SKU), zap.Error(err))
		return err
	}

	r.log.Info("Book created", zap.String("sku", book.SKU), zap.String("title", book.Title))
	return nil
}

// generateNextSKU generates the next sequential SKU (BOOK-001, BOOK-002, etc.)
func (r *BookRepository) generateNextSKU(ctx context.Context) (string, error) {
	var lastBook db.Book

	err := r.db.WithContext(ctx).
		Where("sku LIKE ?", "BOOK-%").
		Order("sku DESC").
		First(&lastBook).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "BOOK-001", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last book: %w", err)
	}

	var lastNum int
	_, err = fmt.Sscanf(lastBook.SKU, "BOOK-%d", &lastNum)
	if err != nil {
		// If parsing fails, count all books and add 1
		var count int64
		if err := r.db.WithContext(ctx).Model(&db.Book{}).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to count books: %w", err)
		}
		return fmt.Sprintf("BOOK-%03d", count+1), nil
	}

	return fmt.Sprintf("BOOK-%03d", lastNum+1), nil
}

// Update updates an existing book, applying only the fields that differ from
// the stored row. It returns the list of changed columns.
func (r *BookRepository) Update(ctx context.Context, book *db.Book) ([]string, error) {
	existing, err := r.Get(ctx, book.SKU)
	if err != nil {
		return nil, err
	}

	fieldsChanged := changedBookFields(existing, book)
	if len(fieldsChanged) == 0 {
		r.log.Info("No fields changed", zap.String("sku", book.SKU))
		return fieldsChanged, nil
	}

	updates := make(map[string]interface{})
	for _, field := range fieldsChanged {
		switch field {
		case "title":
			updates["title"] = book.Title
		case "author":
			updates["author"] = book.Author
		case "price":
			updates["price"] = book.Price
		case "currency":
			updates["currency"] = book.Currency
		case "category":
			updates["category"] = book.Category
		case "description":
			updates["description"] = book.Description
		case "active":
			updates["active"] = book.Active
		case "stock":
			updates["stock"] = book.Stock
		}
	}

	if err := r.db.WithContext(ctx).Model(&db.Book{}).Where("sku = ?", book.SKU).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrBookAlreadyExists
		}
		r.log.Error("Failed to update book", zap.String("sku", book.SKU), zap.Error(err))
		return nil, err
	}

	r.log.Info("Book updated", zap.String("sku", book.SKU), zap.Strings("fields_changed", fieldsChanged))
	return fieldsChanged, nil
}

// Delete soft deletes a book by setting active to false
func (r *BookRepository) Delete(ctx context.Context, sku string) error {
	result := r.db.WithContext(ctx).Model(&db.Book{}).Where("sku = ?", sku).Update("active", false)
	if result.Error != nil {
		r.log.Error("Failed to delete book", zap.String("sku", sku), zap.Error(result.Error))
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}

	r.log.Info("Book deleted", zap.String("sku", sku))
	return nil
}

// changedBookFields compares old and new book and returns the changed columns.
func changedBookFields(old, new *db.Book) []string {
	var changed []string
	if old.Title != new.Title {
		changed = append(changed, "title")
	}
	if old.Author != new.Author {
		changed = append(changed, "author")
	}
	if old.Price != new.Price {
		changed = append(changed, "price")
	}
	if old.Currency != new.Currency {
		changed = append(changed, "currency")
	}
	if old.Category != new.Category {
		changed = append(changed, "category")
	}
	if old.Description != new.Description {
		changed = append(changed, "description")
	}
	if old.Active != new.Active {
		changed = append(changed, "active")
	}
	if old.Stock != new.Stock {
		changed = append(changed, "stock")
	}
	return changed
}

// AsAppError converts the repository sentinel errors into typed application errors.
func AsAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBookNotFound) || errors.Is(err, ErrOrderNotFound):
		return apperrors.NotFoundf("%s", err.Error())
	case errors.Is(err, ErrBookAlreadyExists) || errors.Is(err, ErrOrderAlreadyExists):
		return apperrors.Conflictf("%s", err.Error())
	default:
		return err
	}
}
