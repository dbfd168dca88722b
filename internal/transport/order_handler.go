package transport

import (
	"net/http"

	"shop-api/internal/middleware"
	"shop-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateOrderRequest is the order creation payload. Items stay loosely typed
// so that each line can be validated and reported on its own.
type CreateOrderRequest struct {
	Items           []any  `json:"items"`
	ShippingAddress string `json:"shipping_address" validate:"max=500"`
}

// UpdateStatusRequest is the payload of update_status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// itemRequests converts the decoded item objects. "product" is accepted
// for "product_id" and a missing quantity means one.
func (req CreateOrderRequest) itemRequests() []service.ItemRequest {
	items := make([]service.ItemRequest, 0, len(req.Items))
	for _, raw := range req.Items {
		item := service.ItemRequest{Quantity: 1}

		if fields, ok := raw.(map[string]any); ok {
			if id, ok := fields["product_id"]; ok {
				item.ProductID = id
			} else {
				item.ProductID = fields["product"]
			}
			if q, ok := fields["quantity"]; ok {
				item.Quantity = q
			}
		}

		items = append(items, item)
	}
	return items
}

// OrderHandler serves the order workflow
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// RegisterRoutes registers /orders. Every route needs a user; status changes
// and deletion need an admin.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminOnly func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/{id}/update_status", h.UpdateStatus)
			r.Delete("/{id}", h.DeleteOrder)
		})
	})
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.CurrentUser(r.Context())

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), user, req.ShippingAddress, req.itemRequests())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, newOrderResponse(order))
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.CurrentUser(r.Context())

	query, err := parseOrderQuery(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	page, err := h.orders.ListOrders(r.Context(), user, query)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newPageResponse(r, page, newOrderResponse))
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.CurrentUser(r.Context())

	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Not found.")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), user, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.CurrentUser(r.Context())

	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Not found.")
		return
	}

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), user, id, req.Status)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.CurrentUser(r.Context())

	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Not found.")
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), user, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
