package customers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/platform/httpx"
	"github.com/lumina-dist/lumina/internal/shared"
)

// Handler wires HTTP endpoints for customer management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Post("/{id}/archive", h.handleArchive)
	r.Post("/{id}/restore", h.handleRestore)

	r.Get("/{id}/brand-pricing", h.handleBrandPricing)
	r.Put("/{id}/brand-pricing/{brandID}", h.handleSetBrandPricing)
	r.Post("/{id}/brand-pricing/bulk", h.handleBulkBrandPricing)
	r.Post("/{id}/brand-pricing/assign-all", h.handleAssignAllBrands)
	r.Delete("/{id}/brand-pricing/{brandID}", h.handleRemoveBrandPricing)

	r.Get("/{id}/special-pricing", h.handleSpecialPricing)
	r.Post("/{id}/special-pricing", h.handleAddSpecialPricing)
	r.Delete("/{id}/special-pricing/{pricingID}", h.handleRemoveSpecialPricing)
}

// MountApprovalRoutes registers the special price approval endpoints. They
// mount apart from the customer write routes because approvers (inventory
// roles) are not customer managers.
func (h *Handler) MountApprovalRoutes(r chi.Router) {
	r.Post("/{id}/special-pricing/{pricingID}/approve", h.handleApproveSpecialPricing)
	r.Post("/{id}/special-pricing/{pricingID}/reject", h.handleRejectSpecialPricing)
}

type customerForm struct {
	CompanyName   string `json:"company_name" validate:"required,max=150"`
	ContactPerson string `json:"contact_person" validate:"max=120"`
	Address       string `json:"address" validate:"max=300"`
	ContactNumber string `json:"contact_number" validate:"max=40"`
	TIN           string `json:"tin" validate:"max=40"`
	CustomerType  string `json:"customer_type" validate:"omitempty,oneof=International Distributor 'Physical Store' Reseller 'Direct Customer'"`
	Platform      string `json:"platform" validate:"omitempty,oneof=whatsapp messenger viber business_suite"`
}

func (f customerForm) toCustomer() Customer {
	return Customer{
		CompanyName:   f.CompanyName,
		ContactPerson: f.ContactPerson,
		Address:       f.Address,
		ContactNumber: f.ContactNumber,
		TIN:           f.TIN,
		CustomerType:  f.CustomerType,
		Platform:      f.Platform,
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params := shared.ParseListParams(r.URL.Query(), "company_name")
	limit, offset := params.LimitOffset()
	filters := ListFilters{
		Status:       r.URL.Query().Get("status"),
		CustomerType: r.URL.Query().Get("customer_type"),
		Search:       params.Search,
		Ordering:     params.Ordering,
		Limit:        limit,
		Offset:       offset,
	}
	result, count, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list customers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Customer{}
	}
	httpx.JSON(w, http.StatusOK, shared.NewEnvelope(r, params, count, result))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid customer id")
		return
	}
	customer, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	customer, err := h.service.Create(r.Context(), form.toCustomer())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid customer id")
		return
	}
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	customer, err := h.service.Update(r.Context(), id, form.toCustomer())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.service.Archive)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.service.Restore)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) error) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid customer id")
		return
	}
	if err := op(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBrandPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid customer id")
		return
	}
	pricing, err := h.service.BrandPricing(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if pricing == nil {
		pricing = []BrandPricing{}
	}
	httpx.JSON(w, http.StatusOK, pricing)
}

type brandPricingForm struct {
	PricingTier string `json:"pricing_tier" validate:"required"`
}

func (h *Handler) handleSetBrandPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	brandID, ok2 := pathID(r, "brandID")
	if !ok || !ok2 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid path")
		return
	}
	var form brandPricingForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.SetBrandPricing(r.Context(), id, brandID, form.PricingTier); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkBrandPricingForm struct {
	Assignments map[string]string `json:"assignments" validate:"required,min=1"`
}

func (h *Handler) handleBulkBrandPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid customer id")
		return
	}
	var form bulkBrandPricingForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	assignments := make(map[int64]string, len(form.Assignments))
	for rawID, tier := range form.Assignments {
		brandID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || brandID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid brand id "+rawID)
			return
		}
		assignments[brandID] = tier
	}
	if err := h.service.BulkSetBrandPricing(r.Context(), id, assignments); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAssignAllBrands(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid customer id")
		return
	}
	if err := h.service.AssignAllBrands(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveBrandPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	brandID, ok2 := pathID(r, "brandID")
	if !ok || !ok2 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid path")
		return
	}
	if err := h.service.RemoveBrandPricing(r.Context(), id, brandID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSpecialPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid customer id")
		return
	}
	pricing, err := h.service.SpecialPricing(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if pricing == nil {
		pricing = []SpecialPricing{}
	}
	httpx.JSON(w, http.StatusOK, pricing)
}

type specialPricingForm struct {
	ItemID   int64           `json:"item_id" validate:"required,gt=0"`
	Discount decimal.Decimal `json:"discount" validate:"required"`
}

func (h *Handler) handleAddSpecialPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid customer id")
		return
	}
	u := authz.UserFromContext(r.Context())
	if u == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not logged in")
		return
	}
	var form specialPricingForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if form.ItemID <= 0 {
		httpx.FieldProblem(w, "invalid special price payload", map[string]string{"item_id": "required"})
		return
	}
	sp, err := h.service.AddSpecialPricing(r.Context(), id, form.ItemID, form.Discount, u.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sp)
}

func (h *Handler) handleRemoveSpecialPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	pricingID, ok2 := pathID(r, "pricingID")
	if !ok || !ok2 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid path")
		return
	}
	if err := h.service.RemoveSpecialPricing(r.Context(), id, pricingID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleApproveSpecialPricing(w http.ResponseWriter, r *http.Request) {
	h.resolveApproval(w, r, h.service.ApproveSpecialPricing)
}

func (h *Handler) handleRejectSpecialPricing(w http.ResponseWriter, r *http.Request) {
	h.resolveApproval(w, r, h.service.RejectSpecialPricing)
}

func (h *Handler) resolveApproval(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, caller *authz.User, customerID, pricingID int64) error) {
	id, ok := pathID(r, "id")
	pricingID, ok2 := pathID(r, "pricingID")
	if !ok || !ok2 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid path")
		return
	}
	u := authz.UserFromContext(r.Context())
	if err := op(r.Context(), u, id, pricingID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (customerForm, bool) {
	var form customerForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return form, false
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		httpx.FieldProblem(w, "invalid customer payload", fields)
		return form, false
	}
	return form, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "a customer with that company name already exists")
	case errors.Is(err, ErrDuplicateSpecialPricing):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "a special price for that item already exists")
	case errors.Is(err, ErrNameRequired):
		httpx.FieldProblem(w, "invalid customer payload", map[string]string{"CompanyName": "required"})
	case errors.Is(err, ErrInvalidTier):
		httpx.FieldProblem(w, "invalid pricing payload", map[string]string{"pricing_tier": "unknown tier"})
	case errors.Is(err, ErrInvalidCustomerType):
		httpx.FieldProblem(w, "invalid customer payload", map[string]string{"CustomerType": "unknown type"})
	case errors.Is(err, ErrDiscountNotNegative):
		httpx.FieldProblem(w, "invalid special price payload", map[string]string{"discount": "must be negative"})
	case errors.Is(err, ErrApprovalNotAllowed):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "caller cannot approve special prices")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "customer not found")
	default:
		h.logger.Error("customers", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
