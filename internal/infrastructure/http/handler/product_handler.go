package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mrops-br/product-store-api/internal/app/dto"
	"github.com/mrops-br/product-store-api/internal/app/service"
	"github.com/mrops-br/product-store-api/internal/domain"
	"github.com/mrops-br/product-store-api/internal/infrastructure/http/response"
)

const maxBodyBytes = 1 << 20

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// Routes mounts the product endpoints on r
func (h *ProductHandler) Routes(r chi.Router) {
	r.Post("/", h.CreateProduct)
	r.Get("/", h.ListProducts)
	r.Get("/{id}", h.GetProduct)
	r.Patch("/{id}", h.UpdateProduct)
	r.Delete("/{id}", h.DeleteProduct)
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}

	in, err := dto.DecodeProductIn(raw)
	if err != nil {
		response.FromError(w, err)
		return
	}

	product, err := h.service.Create(r.Context(), in)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, product)
}

// GetProduct handles GET /products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// ListProducts handles GET /products?min_price=&max_price=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := dto.DecodeProductFilter(r.URL.Query())
	if err != nil {
		response.FromError(w, err)
		return
	}

	products, err := h.service.Query(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}

	all, err := products.All(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to read products",
			slog.String("error", err.Error()),
		)
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, all)
}

// UpdateProduct handles PATCH /products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}

	update, err := dto.DecodeProductUpdate(raw)
	if err != nil {
		response.FromError(w, err)
		return
	}

	product, err := h.service.Update(r.Context(), id, update)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/{id}.
// A product that vanished after the existence check yields 200 with deleted=false.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	if !deleted {
		response.JSON(w, http.StatusOK, map[string]bool{"deleted": false})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to read request body",
			slog.String("error", err.Error()),
		)
		response.FromError(w, domain.NewValidationError("body", "could not be read"))
		return nil, false
	}
	return raw, true
}

func productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, domain.NewValidationError("id", "must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
