package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/product-store-api/internal/app/dto"
	"github.com/mrops-br/product-store-api/internal/domain"
	"github.com/mrops-br/product-store-api/internal/infrastructure/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeClock advances by one second on every reading
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(products domain.ProductCollection, opts ...Option) *ProductService {
	return NewProductService(
		products,
		tracenoop.NewTracerProvider().Tracer("test"),
		metricnoop.NewMeterProvider().Meter("test"),
		discardLogger,
		opts...,
	)
}

func newMemoryService(t *testing.T) *ProductService {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	products := memory.NewProductCollection(tracenoop.NewTracerProvider().Tracer("test"), discardLogger)
	return newTestService(products, WithClock(clock.Now))
}

func productIn(name string, quantity int, price string, status bool) *dto.ProductIn {
	p := decimal.RequireFromString(price)
	return &dto.ProductIn{Name: name, Quantity: &quantity, Price: &p, Status: &status}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func prices(t *testing.T, it *ProductIterator) []string {
	t.Helper()
	products, err := it.All(context.Background())
	require.NoError(t, err)

	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Price.String())
	}
	return out
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, productIn("Lamp", 3, "19.99", true))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Name)
	assert.Equal(t, 3, got.Quantity)
	assert.True(t, got.Status)
	assert.True(t, decimal.RequireFromString("19.99").Equal(got.Price))
	assert.Equal(t, created, got)
}

func TestCreateUsesInjectedIDGenerator(t *testing.T) {
	id := uuid.MustParse("6f1c1b34-8d5f-4c78-9b55-3f8a0a0f8e21")
	products := memory.NewProductCollection(tracenoop.NewTracerProvider().Tracer("test"), discardLogger)
	svc := newTestService(products, WithIDGenerator(func() uuid.UUID { return id }))

	created, err := svc.Create(context.Background(), productIn("Lamp", 1, "1", true))
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := newMemoryService(t)

	_, err := svc.Create(context.Background(), &dto.ProductIn{Name: "Lamp"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetUnknownIDIsNotFound(t *testing.T) {
	svc := newMemoryService(t)
	id := uuid.New()

	got, err := svc.Get(context.Background(), id)
	assert.Nil(t, got)

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, id.String(), nf.ID)
	assert.Equal(t, "get", nf.Operation)
	assert.Contains(t, err.Error(), id.String())
}

func TestPartialUpdateNeverClobbers(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, productIn("Lamp", 10, "5.00", true))
	require.NoError(t, err)

	quantity := 7
	updated, err := svc.Update(ctx, created.ID, &dto.ProductUpdate{Quantity: &quantity})
	require.NoError(t, err)

	assert.Equal(t, 7, updated.Quantity)
	assert.True(t, decimal.RequireFromString("5.00").Equal(updated.Price))
	assert.Equal(t, "Lamp", updated.Name)
	assert.True(t, updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestUpdateReturnsPostState(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, productIn("Lamp", 1, "1.00", true))
	require.NoError(t, err)

	status := false
	updated, err := svc.Update(ctx, created.ID, &dto.ProductUpdate{Status: &status})
	require.NoError(t, err)
	assert.False(t, updated.Status)
}

func TestUpdateWithEmptyPatchOnlyRefreshesUpdatedAt(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, productIn("Lamp", 1, "1.00", true))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, &dto.ProductUpdate{})
	require.NoError(t, err)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Quantity, updated.Quantity)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdateUnknownIDIsNotFoundAndNeverCreates(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()
	id := uuid.New()

	status := true
	_, err := svc.Update(ctx, id, &dto.ProductUpdate{Status: &status})

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "update", nf.Operation)

	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDecimalFilterConsistency(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	for _, p := range []string{"1.10", "2.20", "3.30"} {
		_, err := svc.Create(ctx, productIn("p"+p, 1, p, true))
		require.NoError(t, err)
	}

	it, err := svc.Query(ctx, &dto.ProductFilter{MinPrice: dec("2.00"), MaxPrice: dec("3.00")})
	require.NoError(t, err)
	assert.Equal(t, []string{"2.2"}, prices(t, it))
}

func TestCombinedBoundsAreConjunctiveAndInclusive(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	for _, p := range []string{"1.00", "2.00", "3.00"} {
		_, err := svc.Create(ctx, productIn("p"+p, 1, p, true))
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter *dto.ProductFilter
		want   []string
	}{
		{name: "equal bounds", filter: &dto.ProductFilter{MinPrice: dec("2.00"), MaxPrice: dec("2.00")}, want: []string{"2"}},
		{name: "min only", filter: &dto.ProductFilter{MinPrice: dec("2")}, want: []string{"2", "3"}},
		{name: "max only", filter: &dto.ProductFilter{MaxPrice: dec("2")}, want: []string{"1", "2"}},
		{name: "no bounds", filter: &dto.ProductFilter{}, want: []string{"1", "2", "3"}},
		{name: "nil filter", filter: nil, want: []string{"1", "2", "3"}},
		{name: "min above max", filter: &dto.ProductFilter{MinPrice: dec("3"), MaxPrice: dec("1")}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, prices(t, it))
		})
	}
}

func TestQueryRejectsNegativeBound(t *testing.T) {
	svc := newMemoryService(t)

	_, err := svc.Query(context.Background(), &dto.ProductFilter{MinPrice: dec("-1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestQueryIteratorIsNotRestartable(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, productIn("Lamp", 1, "1", true))
	require.NoError(t, err)

	it, err := svc.Query(ctx, nil)
	require.NoError(t, err)
	defer it.Close(ctx)

	require.True(t, it.Next(ctx))
	assert.Equal(t, "Lamp", it.Product().Name)
	assert.False(t, it.Next(ctx))
	assert.False(t, it.Next(ctx))
	assert.Nil(t, it.Product())
	assert.NoError(t, it.Err())
}

func TestDeleteThenDeleteAgain(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, productIn("Lamp", 1, "1", true))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, created.ID)
	assert.False(t, deleted)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "delete", nf.Operation)

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentUpdatesAreEachApplied(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, productIn("Lamp", 0, "1", true))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			_, err := svc.Update(ctx, created.ID, &dto.ProductUpdate{Quantity: &q})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Quantity, 1)
	assert.LessOrEqual(t, got.Quantity, 20)
	assert.True(t, decimal.RequireFromString("1").Equal(got.Price))
}
