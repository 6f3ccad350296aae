package httpapi

import (
	"net/http"

	"genfity-order-reports/internal/config"
	"genfity-order-reports/internal/http/handlers"
	"genfity-order-reports/internal/middleware"
	"genfity-order-reports/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func NewRouter(h *handlers.Handler, logger *zap.Logger, cfg config.Config, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Request-Id",
				"Cache-Control",
			},
			ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/health/latency", h.HealthLatency)

	r.Route("/api/partner", func(r chi.Router) {
		r.Use(middleware.PartnerAuth(cfg.JWTSecret))
		r.Use(setResponseHeader("Cache-Control", "no-store"))

		r.Get("/reports/summary", h.ReportSummary)
		r.Get("/reports/top-items", h.ReportTopItems)
		r.Get("/reports/categories", h.ReportCategories)
		r.Get("/reports/export", h.ReportExport)
		r.Post("/reports/export-jobs", h.ReportExportJobCreate)
		r.Get("/reports/exports", h.ReportExportList)
		r.Post("/reports/preview", h.ReportPreview)
		r.Patch("/orders/{orderId}/payment-method", h.OrderPaymentMethodUpdate)
	})

	if wsServer != nil {
		r.Get("/ws/partner/reports", wsServer.PartnerReportsWS)
	}

	return r
}

func setResponseHeader(name string, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(name, value)
			next.ServeHTTP(w, r)
		})
	}
}
