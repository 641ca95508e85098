package orders

import (
	"context"
	"time"

	"github.com/bookhaven/bookorders/internal/apperrors"
	"github.com/bookhaven/bookorders/internal/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetOrderHandler answers single-order reads with an enriched profile.
type GetOrderHandler struct {
	repo *repo.OrderRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewGetOrderHandler creates the read handler.
func NewGetOrderHandler(orderRepo *repo.OrderRepository, log *zap.Logger) *GetOrderHandler {
	return &GetOrderHandler{repo: orderRepo, log: log, now: time.Now}
}

// Handle loads the order and enriches it at the current instant.
func (h *GetOrderHandler) Handle(ctx context.Context, correlationID, id string) (*OrderProfile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.InvalidArgumentf("invalid order id %q", id)
	}

	order, err := h.repo.Get(ctx, id)
	if err != nil {
		return nil, repo.AsAppError(err)
	}

	h.log.Debug("Order fetched",
		zap.String("correlation_id", correlationID),
		zap.String("id", id),
	)
	return Enrich(order, h.now()), nil
}
