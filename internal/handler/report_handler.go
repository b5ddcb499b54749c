package handler

import (
	"net/http"

	"stockroom/internal/service"

	"github.com/rs/zerolog"
)

// ReportHandler serves the aggregate reports.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("handler", "report").Logger(),
	}
}

// StockCategories handles GET /products/stock/categories requests.
func (h *ReportHandler) StockCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.StockCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

// LatestProducts handles GET /products/latest requests.
func (h *ReportHandler) LatestProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.LatestProductsByName(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// UserRanking handles GET /orders/report requests.
func (h *ReportHandler) UserRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.service.UserRanking(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ranking)
}
