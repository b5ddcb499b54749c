package handler

import (
	"net/http"

	"stockroom/internal/model"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Routes registers the order endpoints on r.
func (h *OrderHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.GetAll)
	r.Get("/{id}", h.GetByID)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Remove)
}

// Create handles POST /orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateOrderRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// GetAll handles GET /orders requests with pagination.
func (h *OrderHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, err.Error(), h.logger)
		return
	}

	orders, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid order ID", h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Update handles PATCH /orders/{id} requests.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid order ID", h.logger)
		return
	}

	var req model.UpdateOrderRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Remove handles DELETE /orders/{id} requests.
func (h *OrderHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid order ID", h.logger)
		return
	}

	if err := h.service.Remove(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
