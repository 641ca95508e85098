package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bookhaven/bookorders/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLookup struct {
	isbnExists        bool
	titleAuthorExists bool
	dailyCount        int64
}

func (f *fakeLookup) ISBNExists(ctx context.Context, isbn string) (bool, error) {
	return f.isbnExists, nil
}

func (f *fakeLookup) TitleAuthorExists(ctx context.Context, title, author string) (bool, error) {
	return f.titleAuthorExists, nil
}

func (f *fakeLookup) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return f.dailyCount, nil
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func validRequest(mutate func(*CreateOrderRequest)) *CreateOrderRequest {
	req := &CreateOrderRequest{
		Title:         "The Silent Sea",
		Author:        "Jane Doe",
		ISBN:          "1234567890",
		Category:      db.CategoryFiction,
		Price:         2500,
		PublishedDate: testNow.AddDate(-1, 0, 0),
		StockQuantity: 10,
	}
	if mutate != nil {
		mutate(req)
	}
	return req
}

func validate(t *testing.T, lookup Lookup, req *CreateOrderRequest) map[string]string {
	t.Helper()
	v := NewValidator(lookup, zap.NewNop())
	failures, err := v.Validate(context.Background(), req, testNow)
	require.NoError(t, err)
	return failures
}

func TestValidateAcceptsValidRequest(t *testing.T) {
	failures := validate(t, &fakeLookup{}, validRequest(nil))
	assert.Nil(t, failures)
}

func TestValidateFieldRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateOrderRequest)
		field   string
		message string
	}{
		{
			name:    "empty title",
			mutate:  func(r *CreateOrderRequest) { r.Title = "  " },
			field:   "title",
			message: "Title cannot be empty",
		},
		{
			name:    "title too long",
			mutate:  func(r *CreateOrderRequest) { r.Title = strings.Repeat("a", 201) },
			field:   "title",
			message: "Title must be between 1 and 200 characters",
		},
		{
			name:    "title with blocked word",
			mutate:  func(r *CreateOrderRequest) { r.Title = "A BadWord1 Story" },
			field:   "title",
			message: "Title contains inappropriate words",
		},
		{
			name:    "empty author",
			mutate:  func(r *CreateOrderRequest) { r.Author = "" },
			field:   "author",
			message: "Author cannot be empty",
		},
		{
			name:    "author too short",
			mutate:  func(r *CreateOrderRequest) { r.Author = "J" },
			field:   "author",
			message: "Author must be between 2 and 100 characters",
		},
		{
			name: "author with digits",
			mutate: func(r *CreateOrderRequest) {
				r.Author = "J4ne Doe"
				r.Category = db.CategoryNonFiction
			},
			field:   "author",
			message: "Author contains invalid characters",
		},
		{
			name:    "empty isbn",
			mutate:  func(r *CreateOrderRequest) { r.ISBN = "" },
			field:   "isbn",
			message: "ISBN cannot be empty",
		},
		{
			name:    "isbn wrong length",
			mutate:  func(r *CreateOrderRequest) { r.ISBN = "12345" },
			field:   "isbn",
			message: "ISBN must be 10 or 13 digits (hyphens and spaces are ignored)",
		},
		{
			name:    "isbn with letters",
			mutate:  func(r *CreateOrderRequest) { r.ISBN = "12345abcde" },
			field:   "isbn",
			message: "ISBN must be 10 or 13 digits (hyphens and spaces are ignored)",
		},
		{
			name:    "unknown category",
			mutate:  func(r *CreateOrderRequest) { r.Category = db.Category("Mystery") },
			field:   "category",
			message: "Category must be one of Fiction, NonFiction, Technical, Children",
		},
		{
			name:    "zero price",
			mutate:  func(r *CreateOrderRequest) { r.Price = 0 },
			field:   "price",
			message: "Price must be greater than 0",
		},
		{
			name:    "price too high",
			mutate:  func(r *CreateOrderRequest) { r.Price = 1_000_000 },
			field:   "price",
			message: "Price cannot exceed $10,000",
		},
		{
			name:    "future published date",
			mutate:  func(r *CreateOrderRequest) { r.PublishedDate = testNow.AddDate(0, 0, 1) },
			field:   "published_date",
			message: "Published date cannot be in the future",
		},
		{
			name:    "published before 1400",
			mutate:  func(r *CreateOrderRequest) { r.PublishedDate = time.Date(1399, 1, 1, 0, 0, 0, 0, time.UTC) },
			field:   "published_date",
			message: "Published date cannot be before 1400",
		},
		{
			name:    "negative stock",
			mutate:  func(r *CreateOrderRequest) { r.StockQuantity = -1 },
			field:   "stock_quantity",
			message: "Stock cannot be negative",
		},
		{
			name:    "stock too large",
			mutate:  func(r *CreateOrderRequest) { r.StockQuantity = 100_001 },
			field:   "stock_quantity",
			message: "Stock quantity is too large",
		},
		{
			name:    "cover url wrong scheme",
			mutate:  func(r *CreateOrderRequest) { r.CoverImageURL = "ftp://example.com/cover.jpg" },
			field:   "cover_image_url",
			message: "CoverImageUrl must be a valid HTTP/HTTPS image URL",
		},
		{
			name:    "cover url wrong extension",
			mutate:  func(r *CreateOrderRequest) { r.CoverImageURL = "https://example.com/cover.txt" },
			field:   "cover_image_url",
			message: "CoverImageUrl must be a valid HTTP/HTTPS image URL",
		},
		{
			name:    "cover url relative",
			mutate:  func(r *CreateOrderRequest) { r.CoverImageURL = "/images/cover.png" },
			field:   "cover_image_url",
			message: "CoverImageUrl must be a valid HTTP/HTTPS image URL",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			failures := validate(t, &fakeLookup{}, validRequest(tc.mutate))
			require.Contains(t, failures, tc.field)
			assert.Equal(t, tc.message, failures[tc.field])
		})
	}
}

func TestValidateISBNIgnoresHyphensAndSpaces(t *testing.T) {
	failures := validate(t, &fakeLookup{}, validRequest(func(r *CreateOrderRequest) {
		r.ISBN = "978-3-16-148410-0"
	}))
	assert.Nil(t, failures)

	failures = validate(t, &fakeLookup{}, validRequest(func(r *CreateOrderRequest) {
		r.ISBN = "1 2345 6789 0"
	}))
	assert.Nil(t, failures)
}

func TestValidateCoverImageURLAccepted(t *testing.T) {
	for _, url := range []string{
		"https://example.com/cover.jpg",
		"http://example.com/images/cover.PNG",
		"https://cdn.example.com/a/b/c.webp",
	} {
		failures := validate(t, &fakeLookup{}, validRequest(func(r *CreateOrderRequest) {
			r.CoverImageURL = url
		}))
		assert.Nil(t, failures, "url %s should be accepted", url)
	}
}

func TestValidateTechnicalRules(t *testing.T) {
	technical := func(mutate func(*CreateOrderRequest)) *CreateOrderRequest {
		return validRequest(func(r *CreateOrderRequest) {
			r.Category = db.CategoryTechnical
			r.Title = "Cloud Engineering Handbook"
			r.Price = 3500
			r.PublishedDate = testNow.AddDate(-2, 0, 0)
			if mutate != nil {
				mutate(r)
			}
		})
	}

	assert.Nil(t, validate(t, &fakeLookup{}, technical(nil)))

	// Price below $20 fails regardless of everything else being valid.
	failures := validate(t, &fakeLookup{}, technical(func(r *CreateOrderRequest) { r.Price = 1500 }))
	assert.Equal(t, "Technical orders must have a minimum price of $20.00", failures["price"])

	failures = validate(t, &fakeLookup{}, technical(func(r *CreateOrderRequest) { r.Title = "A Quiet Novel" }))
	assert.Equal(t, "Technical orders must contain at least one technical keyword in the title", failures["title"])

	failures = validate(t, &fakeLookup{}, technical(func(r *CreateOrderRequest) {
		r.PublishedDate = testNow.AddDate(-6, 0, 0)
	}))
	assert.Equal(t, "Technical orders must be published within the last 5 years", failures["published_date"])
}

func TestValidateChildrenRules(t *testing.T) {
	children := func(mutate func(*CreateOrderRequest)) *CreateOrderRequest {
		return validRequest(func(r *CreateOrderRequest) {
			r.Category = db.CategoryChildren
			r.Title = "The Happy Garden"
			r.Price = 4000
			if mutate != nil {
				mutate(r)
			}
		})
	}

	// Price at the $50 bound with a clean title passes.
	assert.Nil(t, validate(t, &fakeLookup{}, children(func(r *CreateOrderRequest) { r.Price = 5000 })))

	failures := validate(t, &fakeLookup{}, children(func(r *CreateOrderRequest) { r.Price = 5100 }))
	assert.Equal(t, "Children's orders must not cost more than $50", failures["price"])

	failures = validate(t, &fakeLookup{}, children(func(r *CreateOrderRequest) { r.Title = "Tales of Violence" }))
	assert.Equal(t, "Children's order titles must be appropriate for kids", failures["title"])
}

func TestValidateFictionAuthorLength(t *testing.T) {
	failures := validate(t, &fakeLookup{}, validRequest(func(r *CreateOrderRequest) {
		r.Author = "Poe"
	}))
	assert.Equal(t, "Fiction author names must have at least 5 characters", failures["author"])

	// The same author is fine outside Fiction.
	failures = validate(t, &fakeLookup{}, validRequest(func(r *CreateOrderRequest) {
		r.Author = "Poe"
		r.Category = db.CategoryNonFiction
	}))
	assert.Nil(t, failures)
}

func TestValidateLayeredStockThresholds(t *testing.T) {
	// >$100 implies stock <= 20
	failures := validate(t, &fakeLookup{}, validRequest(func(r *CreateOrderRequest) {
		r.Price = 15_000
		r.StockQuantity = 25
	}))
	assert.Equal(t, "Expensive orders (>$100) must have stock of 20 or less", failures["stock_quantity"])

	// >$500 tightens the bound to 10; 15 is fine at $100+ but not at $500+.
	failures = validate(t, &fakeLookup{}, validRequest(func(r *CreateOrderRequest) {
		r.Price = 60_000
		r.StockQuantity = 15
	}))
	assert.Equal(t, "High-value orders (>$500) must have stock of 10 or less", failures["stock_quantity"])

	// Both bounds satisfied.
	assert.Nil(t, validate(t, &fakeLookup{}, validRequest(func(r *CreateOrderRequest) {
		r.Price = 60_000
		r.StockQuantity = 10
	})))
}

func TestValidateStoreBackedRules(t *testing.T) {
	failures := validate(t, &fakeLookup{isbnExists: true}, validRequest(nil))
	assert.Equal(t, "ISBN already exists", failures["isbn"])

	failures = validate(t, &fakeLookup{titleAuthorExists: true}, validRequest(nil))
	assert.Equal(t, "Title already exists for this author", failures["title"])

	failures = validate(t, &fakeLookup{dailyCount: 500}, validRequest(nil))
	assert.Equal(t, "Daily order limit reached", failures["order"])

	assert.Nil(t, validate(t, &fakeLookup{dailyCount: 499}, validRequest(nil)))
}

func TestValidateCollectsAllFailures(t *testing.T) {
	failures := validate(t, &fakeLookup{isbnExists: true}, validRequest(func(r *CreateOrderRequest) {
		r.Title = ""
		r.Price = 0
		r.StockQuantity = -1
	}))

	assert.Len(t, failures, 4)
	assert.Contains(t, failures, "title")
	assert.Contains(t, failures, "price")
	assert.Contains(t, failures, "stock_quantity")
	assert.Contains(t, failures, "isbn")
}

func TestValidateFieldsSkipsStoreRules(t *testing.T) {
	// A nil lookup would panic if any store-backed rule ran.
	v := NewValidator(nil, zap.NewNop())

	failures := v.ValidateFields(validRequest(nil), testNow)
	assert.Nil(t, failures)

	failures = v.ValidateFields(validRequest(func(r *CreateOrderRequest) { r.Price = 0 }), testNow)
	assert.Equal(t, "Price must be greater than 0", failures["price"])
}
