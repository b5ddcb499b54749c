package handler

import (
	"net/http"

	"stockroom/internal/model"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// Routes registers the product endpoints on r.
func (h *ProductHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Post("/random", h.CreateRandom)
	r.Get("/", h.GetAll)
	r.Get("/name/{name}", h.GetByName)
	r.Get("/code/{code}", h.GetByCode)
	r.Post("/archive/{id}", h.Archive)
	r.Get("/{id}", h.GetByID)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Remove)
}

// Create handles POST /products requests.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProductRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	product, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// CreateRandom handles POST /products/random requests.
func (h *ProductHandler) CreateRandom(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.CreateRandom(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// GetAll handles GET /products requests with pagination.
func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, err.Error(), h.logger)
		return
	}

	products, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid product ID", h.logger)
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// GetByName handles GET /products/name/{name} requests.
func (h *ProductHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// GetByCode handles GET /products/code/{code} requests.
func (h *ProductHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Update handles PATCH /products/{id} requests.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid product ID", h.logger)
		return
	}

	var req model.UpdateProductRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	product, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Remove handles DELETE /products/{id} requests.
func (h *ProductHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid product ID", h.logger)
		return
	}

	if err := h.service.Remove(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Archive handles POST /products/archive/{id} requests.
func (h *ProductHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid product ID", h.logger)
		return
	}

	snapshot, err := h.service.Archive(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}
