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

// UpdateOrderHandler handles full-replacement updates. Field rules are
// re-evaluated; the store-backed uniqueness and volume rules are not, since
// they concern creation.
type UpdateOrderHandler struct {
	repo      *repo.OrderRepository
	validator *Validator
	publisher *events.Publisher
	cache     *cache.Cache
	metrics   *metrics.Metrics
	log       *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewUpdateOrderHandler creates the update handler.
func NewUpdateOrderHandler(orderRepo *repo.OrderRepository, validator *Validator, publisher *events.Publisher, c *cache.Cache, m *metrics.Metrics, log *zap.Logger, cacheTTL time.Duration) *UpdateOrderHandler {
	return &UpdateOrderHandler{
		repo:      orderRepo,
		validator: validator,
		publisher: publisher,
		cache:     c,
		metrics:   m,
		log:       log,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// Handle validates and applies an update, then returns the fresh enriched profile.
func (h *UpdateOrderHandler) Handle(ctx context.Context, correlationID, id string, req *UpdateOrderRequest) (*OrderProfile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.InvalidArgumentf("invalid order id %q", id)
	}
	if req.ID != "" && req.ID != id {
		return nil, apperrors.InvalidArgumentf("route ID and order ID do not match")
	}

	now := h.now()
	if failures := h.validator.ValidateFields(&req.CreateOrderRequest, now); len(failures) > 0 {
		h.log.Warn("Order update validation failed",
			zap.String("correlation_id", correlationID),
			zap.String("id", id),
			zap.Any("failures", failures),
		)
		return nil, apperrors.Validation(failures)
	}

	order := req.CreateOrderRequest.toOrder(id, now)
	fieldsChanged, err := h.repo.Update(ctx, order)
	if err != nil {
		return nil, repo.AsAppError(err)
	}

	if h.publisher != nil && len(fieldsChanged) > 0 {
		go func() {
			eventCtx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
			defer cancel()
			if err := h.publisher.PublishOrderUpdated(eventCtx, correlationID, id, fieldsChanged); err != nil {
				h.log.Error("Failed to publish order updated event",
					zap.String("id", id),
					zap.Error(err),
				)
			}
		}()
	}

	refreshAllOrders(ctx, h.repo, h.cache, h.metrics, h.log, h.cacheTTL)

	updated, err := h.repo.Get(ctx, id)
	if err != nil {
		return nil, repo.AsAppError(err)
	}

	h.log.Info("Order updated",
		zap.String("correlation_id", correlationID),
		zap.String("id", id),
		zap.Strings("fields_changed", fieldsChanged),
	)
	return Enrich(updated, now), nil
}
