package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mrops-br/product-store-api/internal/app/service"
	"github.com/mrops-br/product-store-api/internal/domain"
	"github.com/mrops-br/product-store-api/internal/infrastructure/http/response"
	"github.com/mrops-br/product-store-api/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRouter(products domain.ProductCollection) http.Handler {
	svc := service.NewProductService(
		products,
		tracenoop.NewTracerProvider().Tracer("test"),
		metricnoop.NewMeterProvider().Meter("test"),
		discardLogger,
	)

	r := chi.NewRouter()
	r.Route("/products", NewProductHandler(svc, discardLogger).Routes)
	return r
}

func newMemoryRouter() http.Handler {
	return newRouter(memory.NewProductCollection(tracenoop.NewTracerProvider().Tracer("test"), discardLogger))
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type productBody struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Status   bool   `json:"status"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func create(t *testing.T, h http.Handler, body string) productBody {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/products", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[productBody](t, rec)
}

func TestCreateAndGetProduct(t *testing.T) {
	h := newMemoryRouter()

	created := create(t, h, `{"name":"Lamp","quantity":3,"price":"19.99","status":true}`)
	assert.Equal(t, "Lamp", created.Name)
	assert.Equal(t, "19.99", created.Price)
	_, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/products/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[productBody](t, rec))
}

func TestCreateProductValidation(t *testing.T) {
	h := newMemoryRouter()

	rec := do(t, h, http.MethodPost, "/products", `{"name":"Lamp","price":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[response.ErrorResponse](t, rec)
	assert.Equal(t, "validation_error", body.Error)
	assert.Contains(t, body.Details, "quantity")
	assert.Contains(t, body.Details, "status")

	rec = do(t, h, http.MethodPost, "/products", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProductErrors(t *testing.T) {
	h := newMemoryRouter()

	rec := do(t, h, http.MethodGet, "/products/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[response.ErrorResponse](t, rec).Error)

	rec = do(t, h, http.MethodGet, "/products/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[response.ErrorResponse](t, rec).Details, "id")
}

func TestListProductsByPriceRange(t *testing.T) {
	h := newMemoryRouter()
	for _, price := range []string{"1.10", "2.20", "3.30"} {
		create(t, h, `{"name":"p","quantity":1,"price":"`+price+`","status":true}`)
	}

	rec := do(t, h, http.MethodGet, "/products?min_price=2.00&max_price=3.00", "")
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]productBody](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, "2.2", products[0].Price)

	rec = do(t, h, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]productBody](t, rec), 3)

	rec = do(t, h, http.MethodGet, "/products?min_price=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/products?max_price=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProductsEmptyIsArray(t *testing.T) {
	rec := do(t, newMemoryRouter(), http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdateProduct(t *testing.T) {
	h := newMemoryRouter()
	created := create(t, h, `{"name":"Lamp","quantity":10,"price":"5.00","status":true}`)

	rec := do(t, h, http.MethodPatch, "/products/"+created.ID, `{"quantity":7,"status":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decode[productBody](t, rec)
	assert.Equal(t, 7, updated.Quantity)
	assert.False(t, updated.Status)
	assert.Equal(t, "5", updated.Price)
	assert.Equal(t, "Lamp", updated.Name)

	rec = do(t, h, http.MethodPatch, "/products/"+uuid.NewString(), `{"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPatch, "/products/"+created.ID, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPatch, "/products/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 7, decode[productBody](t, rec).Quantity)
}

func TestDeleteProduct(t *testing.T) {
	h := newMemoryRouter()
	created := create(t, h, `{"name":"Lamp","quantity":1,"price":"1","status":true}`)

	rec := do(t, h, http.MethodDelete, "/products/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/products/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type vanishingCollection struct {
	mock.Mock
	domain.ProductCollection
}

func (v *vanishingCollection) FindOne(ctx context.Context, filter bson.M) (*domain.ProductDocument, error) {
	args := v.Called(ctx, filter)
	doc, _ := args.Get(0).(*domain.ProductDocument)
	return doc, args.Error(1)
}

func (v *vanishingCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	args := v.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func TestDeleteProductRace(t *testing.T) {
	id := uuid.New()
	products := &vanishingCollection{}
	products.On("FindOne", mock.Anything, mock.Anything).Return(&domain.ProductDocument{ID: id.String()}, nil)
	products.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(0), nil)

	rec := do(t, newRouter(products), http.MethodDelete, "/products/"+id.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":false}`, rec.Body.String())
}

func TestStorageFailureIsInternalError(t *testing.T) {
	products := &vanishingCollection{}
	products.On("FindOne", mock.Anything, mock.Anything).Return(nil, errors.New("socket closed"))

	rec := do(t, newRouter(products), http.MethodGet, "/products/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode[response.ErrorResponse](t, rec)
	assert.Equal(t, "internal_server_error", body.Error)
	assert.Equal(t, "socket closed", body.Message)
}
