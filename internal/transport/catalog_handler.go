package transport

import (
	"net/http"

	"shop-api/internal/domain"
	"shop-api/internal/middleware"
	"shop-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CategoryRequest is the create and update payload of a category
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Slug string `json:"slug" validate:"max=100"`
}

// ProductRequest is the create and update payload of a product
type ProductRequest struct {
	CategoryID  int64            `json:"category_id" validate:"required,gt=0"`
	Title       string           `json:"title" validate:"required,max=255"`
	Subtitle    string           `json:"subtitle" validate:"max=255"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       int              `json:"stock" validate:"gte=0"`
	Rating      decimal.Decimal  `json:"rating"`
	ImageURL    string           `json:"image_url" validate:"omitempty,max=500"`
	IsActive    *bool            `json:"is_active"`
}

func (req ProductRequest) toDomain(id int64) *domain.Product {
	product := &domain.Product{
		ID:          id,
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       req.Stock,
		Rating:      req.Rating,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	return product
}

// CatalogHandler serves products and categories
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers /products and /categories. Reads are public,
// writes need an admin.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, authMiddleware, adminOnly func(http.Handler) http.Handler) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminOnly)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{id}", h.GetCategory)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminOnly)
			r.Post("/", h.CreateCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})
	})
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	page, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newPageResponse(r, page, newProductResponse))
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Not found.")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product := req.toDomain(0)
	if err := h.catalog.CreateProduct(r.Context(), product); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, newProductResponse(product))
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Not found.")
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product := req.toDomain(id)
	if err := h.catalog.UpdateProduct(r.Context(), product); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Not found.")
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, newCategoryResponse(c))
	}
	middleware.RespondWithJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Not found.")
		return
	}

	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newCategoryResponse(category))
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category := &domain.Category{Name: req.Name, Slug: req.Slug}
	if err := h.catalog.CreateCategory(r.Context(), category); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, newCategoryResponse(category))
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Not found.")
		return
	}

	var req CategoryRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category := &domain.Category{ID: id, Name: req.Name, Slug: req.Slug}
	if err := h.catalog.UpdateCategory(r.Context(), category); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newCategoryResponse(category))
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Not found.")
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
