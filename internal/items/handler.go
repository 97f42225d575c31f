package items

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumina-dist/lumina/internal/platform/httpx"
	"github.com/lumina-dist/lumina/internal/shared"
)

// Handler wires HTTP endpoints for item management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers item routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/next-sku", h.handleNextSKU)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Get("/{id}/pricing", h.handleTierPricing)
	r.Put("/{id}/pricing", h.handleSetTierPricing)
	r.Get("/{id}/history", h.handleHistory)
	r.Get("/{id}/batches", h.handleBatches)
	r.Get("/{id}/next-batch-number", h.handleNextBatchNumber)
	r.Get("/{id}/validate-batch-number", h.handleValidateBatchNumber)
}

type itemForm struct {
	BrandID int64  `json:"brand_id" validate:"required,gt=0"`
	Name    string `json:"name" validate:"required,max=150"`
	UOM     string `json:"uom" validate:"omitempty,oneof=pc pack"`
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params := shared.ParseListParams(r.URL.Query(), "name")
	limit, offset := params.LimitOffset()
	filters := ListFilters{
		Search:   params.Search,
		Ordering: params.Ordering,
		Limit:    limit,
		Offset:   offset,
	}
	if raw := r.URL.Query().Get("brand"); raw != "" {
		if brandID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.BrandID = brandID
		}
	}
	result, count, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Item{}
	}
	httpx.JSON(w, http.StatusOK, shared.NewEnvelope(r, params, count, result))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid item id")
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleNextSKU(w http.ResponseWriter, r *http.Request) {
	brandID, err := strconv.ParseInt(r.URL.Query().Get("brand"), 10, 64)
	if err != nil || brandID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "brand query parameter required")
		return
	}
	sku, err := h.service.NextSKU(r.Context(), brandID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"sku": sku})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	item, err := h.service.Create(r.Context(), Item{BrandID: form.BrandID, Name: form.Name, UOM: form.UOM})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid item id")
		return
	}
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	item, err := h.service.Update(r.Context(), id, Item{BrandID: form.BrandID, Name: form.Name, UOM: form.UOM})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleTierPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid item id")
		return
	}
	prices, err := h.service.TierPricing(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if prices == nil {
		prices = []TierPrice{}
	}
	httpx.JSON(w, http.StatusOK, prices)
}

type tierPricingForm struct {
	Prices []TierPrice `json:"prices" validate:"required,min=1"`
}

func (h *Handler) handleSetTierPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid item id")
		return
	}
	var form tierPricingForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if len(form.Prices) == 0 {
		httpx.FieldProblem(w, "invalid pricing payload", map[string]string{"prices": "required"})
		return
	}
	if err := h.service.SetTierPricing(r.Context(), id, form.Prices); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid item id")
		return
	}
	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if history == nil {
		history = []HistoryEntry{}
	}
	httpx.JSON(w, http.StatusOK, history)
}

func (h *Handler) handleBatches(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid item id")
		return
	}
	activeOnly := r.URL.Query().Get("active_only") == "true"
	batches, err := h.service.Batches(r.Context(), id, activeOnly)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if batches == nil {
		batches = []Batch{}
	}
	httpx.JSON(w, http.StatusOK, batches)
}

func (h *Handler) handleNextBatchNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid item id")
		return
	}
	number, err := h.service.NextBatchNumber(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"batch_number": number})
}

func (h *Handler) handleValidateBatchNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid item id")
		return
	}
	number := r.URL.Query().Get("batch_number")
	if number == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "batch_number query parameter required")
		return
	}
	verdict, err := h.service.ValidateBatchNumber(r.Context(), id, number)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, verdict)
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (itemForm, bool) {
	var form itemForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return form, false
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		httpx.FieldProblem(w, "invalid item payload", fields)
		return form, false
	}
	return form, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "an item with that name or SKU already exists")
	case errors.Is(err, ErrNameRequired):
		httpx.FieldProblem(w, "invalid item payload", map[string]string{"Name": "required"})
	case errors.Is(err, ErrInvalidUOM):
		httpx.FieldProblem(w, "invalid item payload", map[string]string{"UOM": "must be pc or pack"})
	case errors.Is(err, ErrInvalidTier):
		httpx.FieldProblem(w, "invalid pricing payload", map[string]string{"pricing_tier": "unknown tier"})
	case errors.Is(err, ErrNegativePrice):
		httpx.FieldProblem(w, "invalid pricing payload", map[string]string{"price": "must be positive"})
	case errors.Is(err, ErrBatchSequenceExhausted):
		httpx.Problem(w, http.StatusConflict, "Conflict", "item has used every available batch number")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "item not found")
	default:
		h.logger.Error("items", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
