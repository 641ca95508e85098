package orders

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/bookhaven/bookorders/internal/db"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pricePrinter = message.NewPrinter(language.AmericanEnglish)

// Enrich derives the presentation profile for an order at the given instant.
// It is a pure function of (order, now): no I/O, no mutation of the order.
func Enrich(order *db.Order, now time.Time) *OrderProfile {
	return &OrderProfile{
		ID:                  order.ID,
		Title:               order.Title,
		Author:              order.Author,
		ISBN:                order.ISBN,
		Category:            order.Category,
		CategoryDisplayName: CategoryDisplayName(order.Category),
		Price:               order.Price,
		FormattedPrice:      FormatPrice(order.Price),
		PublishedDate:       order.PublishedDate,
		CreatedAt:           order.CreatedAt,
		CoverImageURL:       order.CoverImageURL,
		IsAvailable:         order.IsAvailable,
		StockQuantity:       order.StockQuantity,
		PublishedAge:        PublishedAge(order.PublishedDate, now),
		AvailabilityStatus:  AvailabilityStatus(order.IsAvailable, order.StockQuantity),
		AuthorInitials:      AuthorInitials(order.Author),
	}
}

// CategoryDisplayName maps a category to its display label.
func CategoryDisplayName(c db.Category) string {
	switch c {
	case db.CategoryFiction:
		return "Fiction & Literature"
	case db.CategoryNonFiction:
		return "Non-Fiction"
	case db.CategoryTechnical:
		return "Technical & Professional"
	case db.CategoryChildren:
		return "Children's Orders"
	default:
		return "Uncategorized"
	}
}

// FormatPrice renders a cent amount as a grouped US dollar string, e.g.
// 123456 -> "$1,234.56".
func FormatPrice(cents int64) string {
	return pricePrinter.Sprintf("$%.2f", float64(cents)/100)
}

// AuthorInitials derives the initials string: "?" for an empty author, the
// single uppercased initial for a one-word name, otherwise the uppercased
// initials of the first and last words.
func AuthorInitials(author string) string {
	names := strings.Fields(author)
	if len(names) == 0 {
		return "?"
	}
	first := []rune(names[0])
	if len(names) == 1 {
		return string(unicode.ToUpper(first[0]))
	}
	last := []rune(names[len(names)-1])
	return string(unicode.ToUpper(first[0])) + string(unicode.ToUpper(last[0]))
}

// AvailabilityStatus maps the availability flag and stock count to a label.
func AvailabilityStatus(isAvailable bool, stock int) string {
	if !isAvailable {
		return "Out of Stock"
	}
	switch {
	case stock == 0:
		return "Unavailable"
	case stock == 1:
		return "Last Copy"
	case stock <= 5:
		return "Limited Stock"
	default:
		return "In Stock"
	}
}

// PublishedAge buckets the age of an order by days since publication.
// "Classic" fires only in the one-day window at the 1825-day (five year)
// boundary; below it the years bucket wins, above it the fall-through
// years bucket applies.
func PublishedAge(published, now time.Time) string {
	days := now.Sub(published).Hours() / 24

	switch {
	case days < 30:
		return "New Release"
	case days < 365:
		return fmt.Sprintf("%d months old", int(days/30))
	case days < 1825:
		return fmt.Sprintf("%d years old", int(days/365))
	case days-1825 < 1:
		return "Classic"
	default:
		return fmt.Sprintf("%d years old", int(days/365))
	}
}
