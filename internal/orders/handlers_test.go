package orders

import (
	"context"
	"testing"
	"time"

	"github.com/bookhaven/bookorders/internal/apperrors"
	"github.com/bookhaven/bookorders/internal/cache"
	"github.com/bookhaven/bookorders/internal/db"
	"github.com/bookhaven/bookorders/internal/metrics"
	"github.com/bookhaven/bookorders/internal/repo"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	repo    *repo.OrderRepository
	cache   *cache.Cache
	metrics *metrics.Metrics
	create  *CreateOrderHandler
	get     *GetOrderHandler
	list    *ListOrdersHandler
	update  *UpdateOrderHandler
	delete  *DeleteOrderHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&db.Book{}, &db.Order{}))

	log := zap.NewNop()
	database := &db.DB{DB: gormDB}
	orderRepo := repo.NewOrderRepository(database, log)
	orderCache := cache.New(5 * time.Minute)
	m := metrics.New(prometheus.NewRegistry())
	validator := NewValidator(orderRepo, log)
	ttl := 5 * time.Minute

	return &testEnv{
		repo:    orderRepo,
		cache:   orderCache,
		metrics: m,
		create:  NewCreateOrderHandler(orderRepo, validator, nil, orderCache, m, log, ttl),
		get:     NewGetOrderHandler(orderRepo, log),
		list:    NewListOrdersHandler(orderRepo, orderCache, log, ttl),
		update:  NewUpdateOrderHandler(orderRepo, validator, nil, orderCache, m, log, ttl),
		delete:  NewDeleteOrderHandler(orderRepo, nil, orderCache, m, log, ttl),
	}
}

func TestCreateOrderReturnsEnrichedProfile(t *testing.T) {
	env := newTestEnv(t)

	profile, err := env.create.Handle(context.Background(), "corr-1", validRequest(nil))
	require.NoError(t, err)

	assert.NotEmpty(t, profile.ID)
	assert.Equal(t, "The Silent Sea", profile.Title)
	assert.Equal(t, "Fiction & Literature", profile.CategoryDisplayName)
	assert.Equal(t, "$25.00", profile.FormattedPrice)
	assert.Equal(t, "JD", profile.AuthorInitials)
	assert.Equal(t, "In Stock", profile.AvailabilityStatus)
	assert.True(t, profile.IsAvailable)
}

func TestCreateOrderAppliesChildrenDiscount(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest(func(r *CreateOrderRequest) {
		r.Category = db.CategoryChildren
		r.Title = "The Happy Garden"
		r.Price = 4000
	})
	profile, err := env.create.Handle(context.Background(), "corr-1", req)
	require.NoError(t, err)

	// 10% off, applied exactly once at creation.
	assert.Equal(t, int64(3600), profile.Price)
	assert.Equal(t, "$36.00", profile.FormattedPrice)

	stored, err := env.repo.Get(context.Background(), profile.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), stored.Price)

	// A re-read does not discount again.
	reread, err := env.get.Handle(context.Background(), "corr-2", profile.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), reread.Price)
}

func TestCreateOrderDuplicateISBNIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.create.Handle(ctx, "corr-1", validRequest(nil))
	require.NoError(t, err)

	dup := validRequest(func(r *CreateOrderRequest) {
		r.Title = "Another Story"
		r.Author = "John Smith"
	})
	_, err = env.create.Handle(ctx, "corr-2", dup)
	require.Error(t, err)
	assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "1234567890")
}

func TestCreateOrderDuplicateTitleAuthorIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.create.Handle(ctx, "corr-1", validRequest(nil))
	require.NoError(t, err)

	dup := validRequest(func(r *CreateOrderRequest) {
		r.ISBN = "9783161484100"
	})
	_, err = env.create.Handle(ctx, "corr-2", dup)
	require.Error(t, err)
	assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
}

func TestCreateOrderCollectsValidationFailures(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest(func(r *CreateOrderRequest) {
		r.Title = ""
		r.Price = 0
		r.StockQuantity = -1
	})
	_, err := env.create.Handle(context.Background(), "corr-1", req)
	require.Error(t, err)
	assert.Equal(t, apperrors.ValidationFailed, apperrors.KindOf(err))

	fields := apperrors.FieldsOf(err)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "stock_quantity")
}

func TestCreateOrderNormalizesISBN(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest(func(r *CreateOrderRequest) {
		r.ISBN = "978-3-16-148410-0"
	})
	profile, err := env.create.Handle(context.Background(), "corr-1", req)
	require.NoError(t, err)
	assert.Equal(t, "9783161484100", profile.ISBN)
}

func TestCreateOrderRefreshesCache(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.create.Handle(context.Background(), "corr-1", validRequest(nil))
	require.NoError(t, err)

	cached, ok := env.cache.Get(cache.AllOrdersKey)
	require.True(t, ok)
	all, ok := cached.([]*db.Order)
	require.True(t, ok)
	assert.Len(t, all, 1)
}

func TestListOrdersServedFromCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Seed the cache directly; nothing is persisted, so a cache hit is the
	// only way this entry can come back.
	seeded := []*db.Order{
		{ID: uuid.NewString(), Title: "Cached Only", Author: "Jane Doe", Category: db.CategoryFiction, Price: 1000, IsAvailable: true, StockQuantity: 3},
	}
	env.cache.Set(cache.AllOrdersKey, seeded, time.Minute)

	profiles, total, err := env.list.Handle(ctx, "corr-1", ListOrdersQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Cached Only", profiles[0].Title)
}

func TestListOrdersFiltersBypassCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.create.Handle(ctx, "corr-1", validRequest(nil))
	require.NoError(t, err)
	_, err = env.create.Handle(ctx, "corr-2", validRequest(func(r *CreateOrderRequest) {
		r.Title = "Cloud Engineering Handbook"
		r.Author = "Grace Hopper"
		r.ISBN = "2222222222"
		r.Category = db.CategoryTechnical
		r.Price = 3500
	}))
	require.NoError(t, err)

	profiles, total, err := env.list.Handle(ctx, "corr-3", ListOrdersQuery{Category: "Technical"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Cloud Engineering Handbook", profiles[0].Title)
}

func TestListOrdersPopulatesCacheOnMiss(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.create.Handle(ctx, "corr-1", validRequest(nil))
	require.NoError(t, err)
	env.cache.Invalidate(cache.AllOrdersKey)

	_, total, err := env.list.Handle(ctx, "corr-2", ListOrdersQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, ok := env.cache.Get(cache.AllOrdersKey)
	assert.True(t, ok)
}

func TestGetOrderErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.get.Handle(ctx, "corr-1", "not-a-uuid")
	assert.Equal(t, apperrors.InvalidArgument, apperrors.KindOf(err))

	_, err = env.get.Handle(ctx, "corr-2", uuid.NewString())
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}

func TestUpdateOrderFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile, err := env.create.Handle(ctx, "corr-1", validRequest(nil))
	require.NoError(t, err)

	req := &UpdateOrderRequest{CreateOrderRequest: *validRequest(func(r *CreateOrderRequest) {
		r.Price = 3000
		r.StockQuantity = 1
	})}
	updated, err := env.update.Handle(ctx, "corr-2", profile.ID, req)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), updated.Price)
	assert.Equal(t, "Last Copy", updated.AvailabilityStatus)
}

func TestUpdateOrderIDMismatch(t *testing.T) {
	env := newTestEnv(t)

	req := &UpdateOrderRequest{ID: uuid.NewString(), CreateOrderRequest: *validRequest(nil)}
	_, err := env.update.Handle(context.Background(), "corr-1", uuid.NewString(), req)
	assert.Equal(t, apperrors.InvalidArgument, apperrors.KindOf(err))
}

func TestUpdateOrderValidatesFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile, err := env.create.Handle(ctx, "corr-1", validRequest(nil))
	require.NoError(t, err)

	req := &UpdateOrderRequest{CreateOrderRequest: *validRequest(func(r *CreateOrderRequest) {
		r.Price = 0
	})}
	_, err = env.update.Handle(ctx, "corr-2", profile.ID, req)
	require.Error(t, err)
	assert.Equal(t, apperrors.ValidationFailed, apperrors.KindOf(err))
	assert.Contains(t, apperrors.FieldsOf(err), "price")
}

func TestDeleteOrderFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile, err := env.create.Handle(ctx, "corr-1", validRequest(nil))
	require.NoError(t, err)

	require.NoError(t, env.delete.Handle(ctx, "corr-2", profile.ID))

	_, err = env.get.Handle(ctx, "corr-3", profile.ID)
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))

	err = env.delete.Handle(ctx, "corr-4", profile.ID)
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}
