package db

import (
	"time"

	"gorm.io/gorm"
)

// Category enumerates the order categories.
type Category string

const (
	CategoryFiction    Category = "Fiction"
	CategoryNonFiction Category = "NonFiction"
	CategoryTechnical  Category = "Technical"
	CategoryChildren   Category = "Children"
)

// Categories lists every valid category value.
var Categories = []Category{CategoryFiction, CategoryNonFiction, CategoryTechnical, CategoryChildren}

// Valid reports whether c is one of the defined enum values.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Book represents a book in the catalog database
type Book struct {
	SKU         string    `gorm:"primaryKey;type:varchar(50)" json:"sku"`
	Title       string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_books_title_author" json:"title"`
	Author      string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_books_title_author" json:"author"`
	Price       int64     `gorm:"not null" json:"price"`                                  // Price in smallest currency unit (cents)
	Currency    string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"` // ISO 4217
	Category    string    `gorm:"type:varchar(100);index:idx_books_category" json:"category,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_books_created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	Active      bool      `gorm:"not null;default:true;index:idx_books_active" json:"active"`
	Stock       int32     `gorm:"default:0" json:"stock"`
}

// TableName specifies the table name for Book model
func (Book) TableName() string {
	return "books"
}

// BeforeCreate hook to set timestamps
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	return nil
}

// BeforeUpdate hook to update timestamp
func (b *Book) BeforeUpdate(tx *gorm.DB) error {
	b.UpdatedAt = time.Now()
	return nil
}

// Order represents a book order in the order database.
//
// ISBN and the (title, author) pair carry unique indexes so that two
// concurrent creations racing past the application-level checks cannot both
// persist; the second insert fails with a duplicate-key error.
type Order struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title         string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_orders_title_author" json:"title"`
	Author        string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_orders_title_author" json:"author"`
	ISBN          string    `gorm:"type:varchar(17);not null;uniqueIndex:idx_orders_isbn" json:"isbn"`
	Category      Category  `gorm:"type:varchar(20);not null;index:idx_orders_category" json:"category"`
	Price         int64     `gorm:"not null" json:"price"` // Price in smallest currency unit (cents)
	PublishedDate time.Time `gorm:"not null" json:"published_date"`
	CoverImageURL string    `gorm:"type:varchar(512)" json:"cover_image_url,omitempty"`
	IsAvailable   bool      `gorm:"not null;default:true" json:"is_available"`
	StockQuantity int       `gorm:"not null;default:0" json:"stock_quantity"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_orders_created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName specifies the table name for Order model
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate hook to set timestamps
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = now
	}
	return nil
}

// BeforeUpdate hook to update timestamp
func (o *Order) BeforeUpdate(tx *gorm.DB) error {
	o.UpdatedAt = time.Now()
	return nil
}
