package orders

import (
	"context"
	"time"

	"github.com/bookhaven/bookorders/internal/cache"
	"github.com/bookhaven/bookorders/internal/db"
	"github.com/bookhaven/bookorders/internal/repo"
	"go.uber.org/zap"
)

// Default pagination bounds.
const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// ListOrdersQuery holds filtering, sorting and pagination for order listings.
type ListOrdersQuery struct {
	Category   string
	Author     string
	SortBy     string
	Descending bool
	Page       int
	PageSize   int
}

// normalize clamps pagination to the allowed bounds.
func (q *ListOrdersQuery) normalize() {
	if q.Page < 1 {
		q.Page = defaultPage
	}
	if q.PageSize < 1 || q.PageSize > maxPageSize {
		q.PageSize = defaultPageSize
	}
}

// isDefault reports whether the query can be served from the all-orders
// cache entry: no filters, no explicit sort, first page of default size.
func (q *ListOrdersQuery) isDefault() bool {
	return q.Category == "" && q.Author == "" && q.SortBy == "" &&
		q.Page == defaultPage && q.PageSize == defaultPageSize
}

// ListOrdersHandler answers listing queries, serving the default query from
// the all-orders cache when possible.
type ListOrdersHandler struct {
	repo     *repo.OrderRepository
	cache    *cache.Cache
	log      *zap.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewListOrdersHandler creates the listing handler.
func NewListOrdersHandler(orderRepo *repo.OrderRepository, c *cache.Cache, log *zap.Logger, cacheTTL time.Duration) *ListOrdersHandler {
	return &ListOrdersHandler{repo: orderRepo, cache: c, log: log, cacheTTL: cacheTTL, now: time.Now}
}

// Handle returns one page of enriched profiles and the total match count.
func (h *ListOrdersHandler) Handle(ctx context.Context, correlationID string, query ListOrdersQuery) ([]*OrderProfile, int64, error) {
	query.normalize()
	now := h.now()

	if query.isDefault() {
		if cached, ok := h.cache.Get(cache.AllOrdersKey); ok {
			if all, ok := cached.([]*db.Order); ok {
				h.log.Debug("Serving order list from cache",
					zap.String("correlation_id", correlationID),
					zap.Int("cached", len(all)),
				)
				return enrichPage(all, query.PageSize, now), int64(len(all)), nil
			}
		}

		all, err := h.repo.FindAll(ctx)
		if err != nil {
			return nil, 0, err
		}
		h.cache.Set(cache.AllOrdersKey, all, h.cacheTTL)
		return enrichPage(all, query.PageSize, now), int64(len(all)), nil
	}

	found, total, err := h.repo.List(ctx, repo.OrderQuery{
		Category:   query.Category,
		Author:     query.Author,
		SortBy:     query.SortBy,
		Descending: query.Descending,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	profiles := make([]*OrderProfile, len(found))
	for i, order := range found {
		profiles[i] = Enrich(order, now)
	}
	return profiles, total, nil
}

func enrichPage(all []*db.Order, pageSize int, now time.Time) []*OrderProfile {
	if len(all) > pageSize {
		all = all[:pageSize]
	}
	profiles := make([]*OrderProfile, len(all))
	for i, order := range all {
		profiles[i] = Enrich(order, now)
	}
	return profiles
}
