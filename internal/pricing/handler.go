package pricing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/platform/httpx"
)

// Handler wires HTTP endpoints for tier lookups and price quotes.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers pricing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/tiers", h.handleTiers)
	r.Post("/quote", h.handleQuote)
}

// handleTiers returns the tier table, or only the caller's allowed selling
// tiers when action=user_allowed_tiers.
func (h *Handler) handleTiers(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("action") == "user_allowed_tiers" {
		u := authz.UserFromContext(r.Context())
		costTier := ""
		if u != nil {
			costTier = u.CostTier
		}
		allowed := AllowedSellingTiers(costTier)
		infos := make([]TierInfo, 0, len(allowed))
		for _, t := range allowed {
			infos = append(infos, TierInfo{Value: t, Label: Label(t)})
		}
		httpx.JSON(w, http.StatusOK, infos)
		return
	}
	httpx.JSON(w, http.StatusOK, Tiers())
}

type quoteRequest struct {
	CustomerID    int64  `json:"customer_id"`
	ItemID        int64  `json:"item_id"`
	BrandID       int64  `json:"brand_id"`
	RequestedTier string `json:"pricing_tier"`
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.CustomerID <= 0 || req.ItemID <= 0 || req.BrandID <= 0 {
		httpx.FieldProblem(w, "invalid quote payload", map[string]string{
			"customer_id": "required",
			"item_id":     "required",
			"brand_id":    "required",
		})
		return
	}

	quote, err := h.service.Resolve(r.Context(), QuoteInput{
		CustomerID:    req.CustomerID,
		ItemID:        req.ItemID,
		BrandID:       req.BrandID,
		RequestedTier: req.RequestedTier,
		Caller:        authz.UserFromContext(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrTierNotAllowed):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "tier outside the caller's allowed selling tiers")
		case errors.Is(err, ErrNoBrandTier):
			httpx.Problem(w, http.StatusUnprocessableEntity, "No Tier Assignment", "customer has no pricing tier for the brand")
		case errors.Is(err, ErrNoTierPrice):
			httpx.Problem(w, http.StatusUnprocessableEntity, "No Tier Price", "item has no price at the resolved tier")
		default:
			h.logger.Error("pricing quote", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}
