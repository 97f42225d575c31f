package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lumina-dist/lumina/internal/auth"
	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/brands"
	"github.com/lumina-dist/lumina/internal/customers"
	"github.com/lumina-dist/lumina/internal/items"
	"github.com/lumina-dist/lumina/internal/observability"
	"github.com/lumina-dist/lumina/internal/pricing"
	"github.com/lumina-dist/lumina/internal/reports"
	"github.com/lumina-dist/lumina/internal/shared"
	"github.com/lumina-dist/lumina/internal/transactions"
	"github.com/lumina-dist/lumina/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Authz          authz.Middleware

	AuthHandler         *auth.Handler
	BrandsHandler       *brands.Handler
	ItemsHandler        *items.Handler
	CustomersHandler    *customers.Handler
	PricingHandler      *pricing.Handler
	TransactionsHandler *transactions.Handler
	ReportsHandler      *reports.Handler
	JobsHandler         *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with the default stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.Authz.WithUser)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/auth", params.AuthHandler.MountRoutes)

	authed := params.Authz.RequireAuthenticated()

	r.Route("/brands", func(r chi.Router) {
		r.Use(authed, params.Authz.ReadOnlyOr(authz.CanManageBrands))
		params.BrandsHandler.MountRoutes(r)
	})
	r.Route("/items", func(r chi.Router) {
		r.Use(authed, params.Authz.ReadOnlyOr(authz.CanManageItems))
		params.ItemsHandler.MountRoutes(r)
	})
	r.Route("/customers", func(r chi.Router) {
		r.Use(authed)
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.ReadOnlyOr(authz.CanManageCustomers))
			params.CustomersHandler.MountRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.Require(authz.CanApproveTransactions))
			params.CustomersHandler.MountApprovalRoutes(r)
		})
	})
	r.Route("/pricing", func(r chi.Router) {
		r.Use(authed)
		params.PricingHandler.MountRoutes(r)
	})
	r.Route("/transactions", func(r chi.Router) {
		// Type and ownership rules live in the service and the draft;
		// the route only requires a login.
		r.Use(authed)
		params.TransactionsHandler.MountRoutes(r)
	})
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(authed)
		params.ReportsHandler.MountDashboardRoutes(r)
	})
	r.Route("/alerts", func(r chi.Router) {
		r.Use(authed, params.Authz.Require(authz.CanViewAlerts))
		params.ReportsHandler.MountAlertRoutes(r)
	})
	r.Route("/reports", func(r chi.Router) {
		r.Use(authed)
		params.ReportsHandler.MountExportRoutes(r)
	})
	if params.JobsHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(authed, params.Authz.Require(authz.CanViewAlerts))
			params.JobsHandler.MountRoutes(r)
		})
	}

	return r
}
