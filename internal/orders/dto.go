// Package orders implements the order service pipeline: request validation,
// persistence, the all-orders cache refresh and profile enrichment, with one
// handler per operation.
package orders

import (
	"strings"
	"time"

	"github.com/bookhaven/bookorders/internal/db"
)

// CreateOrderRequest is the creation input shape. Prices are in the smallest
// currency unit (cents).
type CreateOrderRequest struct {
	Title         string      `json:"title"`
	Author        string      `json:"author"`
	ISBN          string      `json:"isbn"`
	Category      db.Category `json:"category"`
	Price         int64       `json:"price"`
	PublishedDate time.Time   `json:"published_date"`
	CoverImageURL string      `json:"cover_image_url,omitempty"`
	StockQuantity int         `json:"stock_quantity"`
}

// UpdateOrderRequest is the full-replacement update input shape. ID, when
// present, must match the route parameter.
type UpdateOrderRequest struct {
	ID string `json:"id,omitempty"`
	CreateOrderRequest
}

// OrderProfile is the derived, read-only view of an order returned to
// callers. It is rebuilt on every read and never persisted; the age and
// availability labels depend on the time of enrichment.
type OrderProfile struct {
	ID                  string      `json:"id"`
	Title               string      `json:"title"`
	Author              string      `json:"author"`
	ISBN                string      `json:"isbn"`
	Category            db.Category `json:"category"`
	CategoryDisplayName string      `json:"category_display_name"`
	Price               int64       `json:"price"`
	FormattedPrice      string      `json:"formatted_price"`
	PublishedDate       time.Time   `json:"published_date"`
	CreatedAt           time.Time   `json:"created_at"`
	CoverImageURL       string      `json:"cover_image_url,omitempty"`
	IsAvailable         bool        `json:"is_available"`
	StockQuantity       int         `json:"stock_quantity"`
	PublishedAge        string      `json:"published_age"`
	AvailabilityStatus  string      `json:"availability_status"`
	AuthorInitials      string      `json:"author_initials"`
}

// NormalizeISBN strips hyphens and spaces, leaving the bare digit string.
func NormalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	return strings.ReplaceAll(isbn, " ", "")
}

// toOrder maps a creation request onto a persisted order. Availability is
// derived from the stock quantity at creation time.
func (r *CreateOrderRequest) toOrder(id string, now time.Time) *db.Order {
	return &db.Order{
		ID:            id,
		Title:         r.Title,
		Author:        r.Author,
		ISBN:          NormalizeISBN(r.ISBN),
		Category:      r.Category,
		Price:         r.Price,
		PublishedDate: r.PublishedDate,
		CoverImageURL: r.CoverImageURL,
		IsAvailable:   r.StockQuantity > 0,
		StockQuantity: r.StockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
