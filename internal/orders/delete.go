package orders

import (
	"context"
	"time"

	"github.com/bookhaven/bookorders/internal/apperrors"
	"github.com/bookhaven/bookorders/internal/cache"
	"github.com/bookhaven/bookorders/internal/events"
	"github.com/bookhaven/bookorders/internal/metrics"
	"github.com/bookhaven/bookorders/internal/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeleteOrderHandler removes an order and refreshes the all-orders cache.
type DeleteOrderHandler struct {
	repo      *repo.OrderRepository
	publisher *events.Publisher
	cache     *cache.Cache
	metrics   *metrics.Metrics
	log       *zap.Logger
	cacheTTL  time.Duration
}

// NewDeleteOrderHandler creates the delete handler.
func NewDeleteOrderHandler(orderRepo *repo.OrderRepository, publisher *events.Publisher, c *cache.Cache, m *metrics.Metrics, log *zap.Logger, cacheTTL time.Duration) *DeleteOrderHandler {
	return &DeleteOrderHandler{
		repo:      orderRepo,
		publisher: publisher,
		cache:     c,
		metrics:   m,
		log:       log,
		cacheTTL:  cacheTTL,
	}
}

// Handle deletes the order with the given id.
func (h *DeleteOrderHandler) Handle(ctx context.Context, correlationID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.InvalidArgumentf("invalid order id %q", id)
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		return repo.AsAppError(err)
	}

	if h.publisher != nil {
		go func() {
			eventCtx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
			defer cancel()
			if err := h.publisher.PublishOrderDeleted(eventCtx, correlationID, id); err != nil {
				h.log.Error("Failed to publish order deleted event",
					zap.String("id", id),
					zap.Error(err),
				)
			}
		}()
	}

	refreshAllOrders(ctx, h.repo, h.cache, h.metrics, h.log, h.cacheTTL)

	h.log.Info("Order deleted",
		zap.String("correlation_id", correlationID),
		zap.String("id", id),
	)
	return nil
}
