package brands

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

// Handler wires HTTP endpoints for brand management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers brand routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Post("/{id}/archive", h.handleArchive)
	r.Post("/{id}/restore", h.handleRestore)
}

type brandForm struct {
	Name              string `json:"name" validate:"required,max=120"`
	Description       string `json:"description" validate:"max=500"`
	Address           string `json:"address" validate:"max=300"`
	TIN               string `json:"tin" validate:"max=40"`
	ContactPerson     string `json:"contact_person" validate:"max=120"`
	ContactNumber     string `json:"contact_number" validate:"max=40"`
	VATClassification string `json:"vat_classification" validate:"omitempty,oneof=VAT NON_VAT BOTH"`
}

func (f brandForm) toBrand() Brand {
	return Brand{
		Name:              f.Name,
		Description:       f.Description,
		Address:           f.Address,
		TIN:               f.TIN,
		ContactPerson:     f.ContactPerson,
		ContactNumber:     f.ContactNumber,
		VATClassification: f.VATClassification,
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params := shared.ParseListParams(r.URL.Query(), "name")
	limit, offset := params.LimitOffset()
	filters := ListFilters{
		Search:     params.Search,
		IncludeAll: r.URL.Query().Get("all") == "true",
		Ordering:   params.Ordering,
		Limit:      limit,
		Offset:     offset,
	}
	result, count, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list brands", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Brand{}
	}
	httpx.JSON(w, http.StatusOK, shared.NewEnvelope(r, params, count, result))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid brand id")
		return
	}
	brand, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, brand)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	brand, err := h.service.Create(r.Context(), form.toBrand())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, brand)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid brand id")
		return
	}
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	brand, err := h.service.Update(r.Context(), id, form.toBrand())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, brand)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid brand id")
		return
	}
	if err := h.service.Archive(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid brand id")
		return
	}
	if err := h.service.Restore(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (brandForm, bool) {
	var form brandForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return form, false
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		httpx.FieldProblem(w, "invalid brand payload", fields)
		return form, false
	}
	return form, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "a brand with that name already exists")
	case errors.Is(err, ErrNameRequired):
		httpx.FieldProblem(w, "invalid brand payload", map[string]string{"Name": "required"})
	case errors.Is(err, ErrInvalidVATClass):
		httpx.FieldProblem(w, "invalid brand payload", map[string]string{"VATClassification": "must be VAT, NON_VAT, or BOTH"})
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "brand not found")
	default:
		h.logger.Error("brands", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
