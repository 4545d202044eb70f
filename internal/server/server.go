// Package server exposes the extraction pipeline and the invoice store over
// HTTP.
package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gwh-ap/invoice-agent/internal/export"
	"github.com/gwh-ap/invoice-agent/internal/pipeline"
	"github.com/gwh-ap/invoice-agent/internal/repository"
)

// Server bundles the handlers' dependencies.
type Server struct {
	logger    *slog.Logger
	pipeline  *pipeline.Pipeline
	invoices  repository.InvoiceRepository
	prompts   repository.PromptRepository
	payments  repository.PaymentRepository
	regions   repository.RegionRepository
	dashboard repository.DashboardRepository
	exporter  *export.Service
	pool      *pgxpool.Pool
}

func New(logger *slog.Logger, pl *pipeline.Pipeline, pool *pgxpool.Pool,
	invoices repository.InvoiceRepository, prompts repository.PromptRepository,
	payments repository.PaymentRepository, regions repository.RegionRepository,
	dashboard repository.DashboardRepository, exporter *export.Service) *Server {
	return &Server{
		logger:    logger,
		pipeline:  pl,
		invoices:  invoices,
		prompts:   prompts,
		payments:  payments,
		regions:   regions,
		dashboard: dashboard,
		exporter:  exporter,
		pool:      pool,
	}
}

// Router builds the chi mux with all routes and middleware attached.
func (s *Server) Router(allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", s.handleSearchInvoices)
			r.Get("/export", s.handleExportInvoices)
			r.Get("/{invoiceNumber}", s.handleGetInvoice)
			r.Get("/{invoiceNumber}/{id}", s.handleGetInvoiceByID)
			r.Post("/{invoiceNumber}/{id}/payments", s.handleCreatePayment)
		})

		r.Route("/prompts", func(r chi.Router) {
			r.Get("/", s.handleListPrompts)
			r.Post("/", s.handleCreatePrompt)
			r.Put("/overwrite", s.handleOverwritePrompt)
			r.Get("/countries", s.handleListPromptCountries)
			r.Get("/brands", s.handleListPromptBrands)
			r.Get("/stats", s.handlePromptStats)
			r.Put("/{id}", s.handleUpdatePrompt)
			r.Delete("/{id}", s.handleDeletePrompt)
		})

		r.Route("/feedback", func(r chi.Router) {
			r.Get("/", s.handleGetFeedback)
			r.Put("/", s.handleUpsertFeedback)
		})

		r.Get("/payments", s.handleListPayments)

		r.Route("/regions", func(r chi.Router) {
			r.Get("/", s.handleListRegions)
			r.Get("/{regionCode}/countries", s.handleListRegionCountries)
		})

		r.Get("/dashboard", s.handleDashboard)
	})

	return r
}
