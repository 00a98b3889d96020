package transport

import (
	"errors"
	"net/http"
	"strconv"

	"stockroom/internal/domain"
	"stockroom/internal/middleware"
	"stockroom/internal/repository"
	"stockroom/internal/service"
	"stockroom/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	ID        string          `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Category  string          `json:"category"`
	Supplier  string          `json:"supplier"`
}

// UpdateProductRequest represents a partial update; absent fields are left unchanged
type UpdateProductRequest struct {
	Name      *string          `json:"name,omitempty"`
	Quantity  *int             `json:"quantity,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Category  *string          `json:"category,omitempty"`
	Supplier  *string          `json:"supplier,omitempty"`
}

// AdjustStockRequest represents a signed stock movement
type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

// ReportResponse carries the path of an exported report
type ReportResponse struct {
	Path string `json:"path"`
}

// InventoryHandler handles HTTP requests for inventory operations
type InventoryHandler struct {
	inventoryService service.InventoryService
	logger           *zap.Logger
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Get("/low-stock", h.LowStock)
		r.Get("/{id}", h.GetProduct)
		r.Patch("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
		r.Post("/{id}/stock", h.AdjustStock)
	})

	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Get("/history", h.History)
		r.Post("/report", h.ExportReport)
		r.Post("/reload", h.Reload)
	})
}

// CreateProduct handles product creation
func (h *InventoryHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product creation validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.inventoryService.AddProduct(r.Context(), service.CreateProductInput{
		ID:        req.ID,
		Name:      req.Name,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Category:  req.Category,
		Supplier:  req.Supplier,
	})
	if err != nil {
		h.respondWithDomainError(w, err, "failed to create product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// GetProduct handles exact-id lookup
func (h *InventoryHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.inventoryService.GetProduct(r.Context(), id)
	if err != nil {
		h.respondWithDomainError(w, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// ListProducts returns all products, optionally filtered by name substring
// or category
func (h *InventoryHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		middleware.RespondWithJSON(w, http.StatusOK, h.inventoryService.SearchProducts(r.Context(), name))
		return
	}
	if category := r.URL.Query().Get("category"); category != "" {
		middleware.RespondWithJSON(w, http.StatusOK, h.inventoryService.ProductsByCategory(r.Context(), category))
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.inventoryService.ListProducts(r.Context()))
}

// LowStock returns products at or below the stock threshold
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			middleware.RespondWithError(w, http.StatusBadRequest, "threshold must be a non-negative integer")
			return
		}
		threshold = parsed
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.inventoryService.LowStock(r.Context(), threshold))
}

// UpdateProduct handles partial updates
func (h *InventoryHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.inventoryService.UpdateProduct(r.Context(), id, repository.UpdateFields{
		Name:      req.Name,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Category:  req.Category,
		Supplier:  req.Supplier,
	})
	if err != nil {
		h.respondWithDomainError(w, err, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct handles product removal
func (h *InventoryHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.inventoryService.RemoveProduct(r.Context(), id); err != nil {
		h.respondWithDomainError(w, err, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AdjustStock applies a signed stock movement
func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AdjustStockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.inventoryService.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		h.respondWithDomainError(w, err, "failed to adjust stock")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Stats returns inventory summary figures
func (h *InventoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.inventoryService.Stats(r.Context()))
}

// History returns the most recent operations, newest first
func (h *InventoryHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			middleware.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.inventoryService.History(r.Context(), limit))
}

// ExportReport writes a plain-text inventory report to disk
func (h *InventoryHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	path, err := h.inventoryService.ExportReport(r.Context())
	if err != nil {
		h.respondWithDomainError(w, err, "failed to export report")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, ReportResponse{Path: path})
}

// Reload re-reads the backing file
func (h *InventoryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.inventoryService.Reload(r.Context()); err != nil {
		h.respondWithDomainError(w, err, "failed to reload inventory")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondWithDomainError maps the store's error taxonomy onto HTTP statuses
func (h *InventoryHandler) respondWithDomainError(w http.ResponseWriter, err error, fallback string) {
	var vErr *domain.ValidationError
	var pErr *storage.PersistenceError
	var cErr *storage.CorruptDataError

	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrDuplicateID):
		middleware.RespondWithError(w, http.StatusConflict, "product with this id already exists")
	case errors.As(err, &vErr):
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: vErr.Field, Message: vErr.Message},
		})
	case errors.As(err, &pErr):
		h.logger.Error("Persistence failure", zap.Error(err))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "could not durably persist the change")
	case errors.As(err, &cErr):
		h.logger.Error("Corrupt inventory data", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "inventory data is corrupt")
	default:
		h.logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
