package orders

import (
	"context"
	"time"

	"github.com/bookhaven/bookorders/internal/apperrors"
	"github.com/bookhaven/bookorders/internal/cache"
	"github.com/bookhaven/bookorders/internal/db"
	"github.com/bookhaven/bookorders/internal/events"
	"github.com/bookhaven/bookorders/internal/metrics"
	"github.com/bookhaven/bookorders/internal/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eventPublishTimeout = 10 * time.Second

// CreateOrderHandler handles order creation: conflict checks, the full
// validation rule set, the Children's creation-time discount, persistence,
// event publishing, cache refresh and enrichment of the response.
type CreateOrderHandler struct {
	repo      *repo.OrderRepository
	validator *Validator
	publisher *events.Publisher
	cache     *cache.Cache
	metrics   *metrics.Metrics
	log       *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewCreateOrderHandler creates the creation handler.
func NewCreateOrderHandler(orderRepo *repo.OrderRepository, validator *Validator, publisher *events.Publisher, c *cache.Cache, m *metrics.Metrics, log *zap.Logger, cacheTTL time.Duration) *CreateOrderHandler {
	return &CreateOrderHandler{
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

// Handle runs the creation pipeline. The correlation id is threaded through
// explicitly; it never lives in ambient state.
func (h *CreateOrderHandler) Handle(ctx context.Context, correlationID string, req *CreateOrderRequest) (*OrderProfile, error) {
	operationID := uuid.NewString()[:8]
	now := h.now()
	totalStart := now

	h.log.Info("Order creation started",
		zap.String("correlation_id", correlationID),
		zap.String("operation_id", operationID),
		zap.String("title", req.Title),
		zap.String("isbn", req.ISBN),
		zap.String("category", string(req.Category)),
	)

	// Duplicate and volume checks against persisted state report as
	// conflicts; everything else is a validation failure.
	validationStart := time.Now()
	if err := h.checkConflicts(ctx, req, now); err != nil {
		if apperrors.KindOf(err) == apperrors.Conflict {
			h.metrics.OrdersCreated.WithLabelValues(metrics.OutcomeConflict).Inc()
			h.log.Warn("Order creation conflict",
				zap.String("correlation_id", correlationID),
				zap.String("operation_id", operationID),
				zap.String("isbn", req.ISBN),
				zap.Error(err),
			)
		} else {
			h.metrics.OrdersCreated.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return nil, err
	}

	failures, err := h.validator.Validate(ctx, req, now)
	if err != nil {
		h.metrics.OrdersCreated.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperrors.Wrap(err, "order validation lookup failed")
	}
	validationDuration := time.Since(validationStart)
	h.metrics.OrderValidationDuration.Observe(validationDuration.Seconds())

	if len(failures) > 0 {
		h.metrics.OrdersCreated.WithLabelValues(metrics.OutcomeValidationFailed).Inc()
		h.log.Warn("Order validation failed",
			zap.String("correlation_id", correlationID),
			zap.String("operation_id", operationID),
			zap.String("title", req.Title),
			zap.Any("failures", failures),
			zap.Duration("validation_duration", validationDuration),
		)
		return nil, apperrors.Validation(failures)
	}

	// Children's orders get a 10% discount, applied once at creation.
	// Reads never re-apply it.
	if req.Category == db.CategoryChildren {
		req.Price -= req.Price / 10
	}

	order := req.toOrder(uuid.NewString(), now)

	dbStart := time.Now()
	if err := h.repo.Create(ctx, order); err != nil {
		// A concurrent creation can win the race past the lookups; the
		// unique indexes make the loser surface as a conflict.
		appErr := repo.AsAppError(err)
		if apperrors.KindOf(appErr) == apperrors.Conflict {
			h.metrics.OrdersCreated.WithLabelValues(metrics.OutcomeConflict).Inc()
		} else {
			h.metrics.OrdersCreated.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return nil, appErr
	}
	dbSaveDuration := time.Since(dbStart)
	h.metrics.OrderDBSaveDuration.Observe(dbSaveDuration.Seconds())

	// Publish event (async, don't fail request if event publishing fails)
	if h.publisher != nil {
		go func() {
			eventCtx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
			defer cancel()
			if err := h.publisher.PublishOrderCreated(eventCtx, correlationID, order); err != nil {
				h.log.Error("Failed to publish order created event",
					zap.String("id", order.ID),
					zap.Error(err),
				)
			}
		}()
	}

	refreshAllOrders(ctx, h.repo, h.cache, h.metrics, h.log, h.cacheTTL)

	h.log.Info("Order created",
		zap.String("correlation_id", correlationID),
		zap.String("operation_id", operationID),
		zap.String("id", order.ID),
		zap.String("title", order.Title),
		zap.Duration("validation_duration", validationDuration),
		zap.Duration("db_save_duration", dbSaveDuration),
		zap.Duration("total_duration", time.Since(totalStart)),
	)
	h.metrics.OrdersCreated.WithLabelValues(metrics.OutcomeCreated).Inc()

	return Enrich(order, now), nil
}

// checkConflicts performs the store-backed duplicate and volume checks that
// map to 409 responses: duplicate ISBN, duplicate title+author, daily cap.
func (h *CreateOrderHandler) checkConflicts(ctx context.Context, req *CreateOrderRequest, now time.Time) error {
	isbn := NormalizeISBN(req.ISBN)
	if isbn != "" {
		exists, err := h.repo.ISBNExists(ctx, isbn)
		if err != nil {
			return apperrors.Wrap(err, "ISBN lookup failed")
		}
		if exists {
			return apperrors.Conflictf("order with ISBN %q already exists", req.ISBN)
		}
	}

	exists, err := h.repo.TitleAuthorExists(ctx, req.Title, req.Author)
	if err != nil {
		return apperrors.Wrap(err, "title/author lookup failed")
	}
	if exists {
		return apperrors.Conflictf("an order with the same title and author already exists")
	}

	dayStart := now.UTC().Truncate(24 * time.Hour)
	count, err := h.repo.CountCreatedBetween(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return apperrors.Wrap(err, "daily count lookup failed")
	}
	if count >= dailyOrderLimit {
		return apperrors.Conflictf("daily order limit of %d reached", dailyOrderLimit)
	}

	return nil
}

// refreshAllOrders invalidates and repopulates the all-orders cache entry.
// Failures only log: the cache is an optimization, not the source of truth.
func refreshAllOrders(ctx context.Context, orderRepo *repo.OrderRepository, c *cache.Cache, m *metrics.Metrics, log *zap.Logger, ttl time.Duration) {
	c.Invalidate(cache.AllOrdersKey)
	all, err := orderRepo.FindAll(ctx)
	if err != nil {
		log.Error("Failed to repopulate all-orders cache", zap.Error(err))
		return
	}
	c.Set(cache.AllOrdersKey, all, ttl)
	m.CacheRefreshes.Inc()
}
