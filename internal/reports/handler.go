package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumina-dist/lumina/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the dashboard and exports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountDashboardRoutes registers the dashboard endpoints.
func (h *Handler) MountDashboardRoutes(r chi.Router) {
	r.Get("/stats", h.handleStats)
}

// MountAlertRoutes registers the low stock alert surface.
func (h *Handler) MountAlertRoutes(r chi.Router) {
	r.Get("/low-stock", h.handleLowStock)
}

// MountExportRoutes registers the export endpoints.
func (h *Handler) MountExportRoutes(r chi.Router) {
	r.Get("/export", h.handleExport)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("dashboard stats", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStock(r.Context())
	if err != nil {
		h.logger.Error("low stock", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if items == nil {
		items = []LowStockItem{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"threshold": h.service.Threshold(),
		"items":     items,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	var export func() error
	switch kind {
	case "sales":
		export = func() error { return h.service.ExportSales(r.Context(), w) }
	case "inventory":
		export = func() error { return h.service.ExportInventory(r.Context(), w) }
	case "customers":
		export = func() error { return h.service.ExportCustomers(r.Context(), w) }
	default:
		httpx.FieldProblem(w, "invalid export request", map[string]string{"type": "must be sales, inventory, or customers"})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename(kind, time.Now().UTC())))
	if err := export(); err != nil {
		// Headers are already written; all we can do is log.
		h.logger.Error("export", slog.String("type", kind), slog.Any("error", err))
	}
}
