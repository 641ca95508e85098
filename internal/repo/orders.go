package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bookhaven/bookorders/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrOrderNotFound is returned when an order is not found
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderAlreadyExists is returned when an insert hits a unique index,
	// i.e. a duplicate ISBN or title+author pair slipped past validation.
	ErrOrderAlreadyExists = errors.New("order already exists")
)

// OrderQuery holds the filtering, sorting and pagination parameters for listing orders.
type OrderQuery struct {
	Category   string
	Author     string
	SortBy     string
	Descending bool
	Page       int
	PageSize   int
}

var orderSortColumns = map[string]string{
	"title":          "title",
	"published_date": "published_date",
	"price":          "price",
	"created_at":     "created_at",
}

// OrderRepository handles order persistence and the lookups the validator needs.
type OrderRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(database *db.DB, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{
		db:  database,
		log: logger,
	}
}

// List returns a page of orders matching the query along with the total match count.
func (r *OrderRepository) List(ctx context.Context, q OrderQuery) ([]*db.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&db.Order{})

	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Author != "" {
		query = query.Where("lower(author) LIKE ?", "%"+strings.ToLower(q.Author)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.Error("Failed to count orders", zap.Error(err))
		return nil, 0, err
	}

	order := "created_at DESC"
	if col, ok := orderSortColumns[q.SortBy]; ok {
		order = col
		if q.Descending {
			order += " DESC"
		}
	}

	offset := (q.Page - 1) * q.PageSize
	var orders []*db.Order
	if err := query.Offset(offset).Limit(q.PageSize).Order(order).Find(&orders).Error; err != nil {
		r.log.Error("Failed to list orders", zap.Error(err))
		return nil, 0, err
	}

	return orders, total, nil
}

// FindAll returns every order, newest first. Used to repopulate the
// all-orders cache entry after a write.
func (r *OrderRepository) FindAll(ctx context.Context) ([]*db.Order, error) {
	var orders []*db.Order
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&orders).Error; err != nil {
		r.log.Error("Failed to load all orders", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

// Get retrieves an order by ID
func (r *OrderRepository) Get(ctx context.Context, id string) (*db.Order, error) {
	var order db.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		r.log.Error("Failed to get order", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return &order, nil
}

// Create inserts a new order. Duplicate-key failures from the unique indexes
// are reported as ErrOrderAlreadyExists.
func (r *OrderRepository) Create(ctx context.Context, order *db.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrOrderAlreadyExists
		}
		r.log.Error("Failed to create order", zap.String("id", order.ID), zap.Error(err))
		return err
	}

	r.log.Info("Order created", zap.String("id", order.ID), zap.String("title", order.Title))
	return nil
}

// Update updates an existing order, applying only the fields that differ from
// the stored row. It returns the list of changed columns.
func (r *OrderRepository) Update(ctx context.Context, order *db.Order) ([]string, error) {
	existing, err := r.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	fieldsChanged := changedOrderFields(existing, order)
	if len(fieldsChanged) == 0 {
		r.log.Info("No fields changed", zap.String("id", order.ID))
		return fieldsChanged, nil
	}

	updates := make(map[string]interface{})
	for _, field := range fieldsChanged {
		switch field {
		case "title":
			updates["title"] = order.Title
		case "author":
			updates["author"] = order.Author
		case "isbn":
			updates["isbn"] = order.ISBN
		case "category":
			updates["category"] = order.Category
		case "price":
			updates["price"] = order.Price
		case "published_date":
			updates["published_date"] = order.PublishedDate
		case "cover_image_url":
			updates["cover_image_url"] = order.CoverImageURL
		case "stock_quantity":
			updates["stock_quantity"] = order.StockQuantity
			updates["is_available"] = order.StockQuantity > 0
		}
	}

	if err := r.db.WithContext(ctx).Model(&db.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOrderAlreadyExists
		}
		r.log.Error("Failed to update order", zap.String("id", order.ID), zap.Error(err))
		return nil, err
	}

	r.log.Info("Order updated", zap.String("id", order.ID), zap.Strings("fields_changed", fieldsChanged))
	return fieldsChanged, nil
}

// Delete removes an order by ID
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&db.Order{})
	if result.Error != nil {
		r.log.Error("Failed to delete order", zap.String("id", id), zap.Error(result.Error))
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}

	r.log.Info("Order deleted", zap.String("id", id))
	return nil
}

// ISBNExists reports whether an order with the given ISBN is already persisted.
func (r *OrderRepository) ISBNExists(ctx context.Context, isbn string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Order{}).Where("isbn = ?", isbn).Count(&count).Error
	if err != nil {
		r.log.Error("Failed to check ISBN existence", zap.String("isbn", isbn), zap.Error(err))
		return false, err
	}
	return count > 0, nil
}

// TitleAuthorExists reports whether an order with the given title and author
// pair is already persisted.
func (r *OrderRepository) TitleAuthorExists(ctx context.Context, title, author string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Order{}).
		Where("title = ? AND author = ?", title, author).
		Count(&count).Error
	if err != nil {
		r.log.Error("Failed to check title/author existence", zap.String("title", title), zap.Error(err))
		return false, err
	}
	return count > 0, nil
}

// CountCreatedBetween counts orders created in the half-open interval [from, to).
func (r *OrderRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Order{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error
	if err != nil {
		r.log.Error("Failed to count orders for interval", zap.Error(err))
		return 0, err
	}
	return count, nil
}

// changedOrderFields compares old and new order and returns the changed columns.
func changedOrderFields(old, new *db.Order) []string {
	var changed []string
	if old.Title != new.Title {
		changed = append(changed, "title")
	}
	if old.Author != new.Author {
		changed = append(changed, "author")
	}
	if old.ISBN != new.ISBN {
		changed = append(changed, "isbn")
	}
	if old.Category != new.Category {
		changed = append(changed, "category")
	}
	if old.Price != new.Price {
		changed = append(changed, "price")
	}
	if !old.PublishedDate.Equal(new.PublishedDate) {
		changed = append(changed, "published_date")
	}
	if old.CoverImageURL != new.CoverImageURL {
		changed = append(changed, "cover_image_url")
	}
	if old.StockQuantity != new.StockQuantity {
		changed = append(changed, "stock_quantity")
	}
	return changed
}
