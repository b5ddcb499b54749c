package router

import (
	"net/http"
	"time"

	"stockroom/internal/handler"
	"stockroom/internal/metrics"
	"stockroom/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served under /api/v1.
type Handlers struct {
	Products *handler.ProductHandler
	Orders   *handler.OrderHandler
	Reports  *handler.ReportHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	h Handlers,
	m *metrics.Metrics,
	apiKey string,
	requestTimeout time.Duration,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Request id first so every later middleware and handler can log it
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS)

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(apiKey, logger))
		if requestTimeout > 0 {
			r.Use(chimw.Timeout(requestTimeout))
		}

		r.Route("/products", func(r chi.Router) {
			r.Get("/stock/categories", h.Reports.StockCategories)
			r.Get("/latest", h.Reports.LatestProducts)
			h.Products.Routes(r)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/report", h.Reports.UserRanking)
			h.Orders.Routes(r)
		})
	})

	return r
}
