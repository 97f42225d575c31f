package transactions

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/items"
	"github.com/lumina-dist/lumina/internal/platform/httpx"
	"github.com/lumina-dist/lumina/internal/pricing"
	"github.com/lumina-dist/lumina/internal/shared"
	"github.com/lumina-dist/lumina/internal/transactions/draft"
)

// Handler wires HTTP endpoints for the transaction ledger and the draft form
// behind it.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	items     *items.Service
	drafts    *DraftStore
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, itemsSvc *items.Service, drafts *DraftStore) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		items:     itemsSvc,
		drafts:    drafts,
		validator: validator.New(),
	}
}

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/next-reference", h.handleNextReference)
	r.Get("/allowed-types", h.handleAllowedTypes)
	r.Post("/adjustments", h.handleAdjust)

	r.Route("/draft", func(r chi.Router) {
		r.Post("/", h.handleDraftOpen)
		r.Get("/", h.handleDraftGet)
		r.Delete("/", h.handleDraftDiscard)
		r.Put("/details", h.handleDraftDetails)
		r.Post("/lines", h.handleDraftAddLine)
		r.Delete("/lines/{index}", h.handleDraftRemoveLine)
		r.Put("/lines/{index}", h.handleDraftEditLine)
		r.Post("/lines/{index}/refresh-batches", h.handleDraftRefreshBatches)
		r.Post("/validate", h.handleDraftValidate)
		r.Post("/submit", h.handleDraftSubmit)
	})

	r.Get("/{id}", h.handleGet)
	r.Patch("/{id}/status", h.handleUpdateStatus)
	r.Post("/{id}/cancel", h.handleCancel)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params := shared.ParseListParams(r.URL.Query(), "-created_at")
	limit, offset := params.LimitOffset()
	q := r.URL.Query()
	filters := ListFilters{
		Status:          q.Get("status"),
		Type:            q.Get("type"),
		ReleaseStatus:   q.Get("releaseStatus"),
		PaymentStatus:   q.Get("paymentStatus"),
		ORInvoiceStatus: q.Get("orInvoiceStatus"),
		Search:          params.Search,
		Ordering:        params.Ordering,
		Limit:           limit,
		Offset:          offset,
	}
	if raw := q.Get("startDate"); raw != "" {
		if ts, err := time.Parse("2006-01-02", raw); err == nil {
			filters.StartDate = &ts
		}
	}
	if raw := q.Get("endDate"); raw != "" {
		if ts, err := time.Parse("2006-01-02", raw); err == nil {
			end := ts.AddDate(0, 0, 1)
			filters.EndDate = &end
		}
	}
	if raw := q.Get("account"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.AccountID = id
		}
	}

	result, count, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Transaction{}
	}
	httpx.JSON(w, http.StatusOK, shared.NewEnvelope(r, params, count, result))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid transaction id")
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) handleNextReference(w http.ResponseWriter, r *http.Request) {
	ref, err := h.service.NextReference(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"reference_number": ref})
}

func (h *Handler) handleAllowedTypes(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	types := draft.AllowedTypes(caller)
	if types == nil {
		types = []draft.Type{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"types": types})
}

// handleCreate books a transaction straight from a projected payload. The
// draft endpoints funnel here via submit; API clients may also post a payload
// they assembled themselves.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	var payload draft.Payload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	t, err := h.service.Create(r.Context(), caller, payload, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

type adjustForm struct {
	ItemID    int64           `json:"item_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required"`
	CostPrice decimal.Decimal `json:"cost_price"`
	Notes     string          `json:"notes" validate:"max=500"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	var form adjustForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		httpx.FieldProblem(w, "invalid adjustment payload", fields)
		return
	}
	t, err := h.service.Adjust(r.Context(), caller, AdjustmentInput{
		ItemID:    form.ItemID,
		Quantity:  form.Quantity,
		CostPrice: form.CostPrice,
		Notes:     form.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid transaction id")
		return
	}
	var update StatusUpdate
	if err := httpx.DecodeJSON(r, &update); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	t, err := h.service.UpdateStatus(r.Context(), caller, id, update)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid transaction id")
		return
	}
	if err := h.service.Cancel(r.Context(), caller, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type draftOpenForm struct {
	Type string `json:"type" validate:"required,oneof=Receive Sell"`
}

func (h *Handler) handleDraftOpen(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	if caller == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var form draftOpenForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.FieldProblem(w, "invalid draft payload", map[string]string{"Type": "must be Receive or Sell"})
		return
	}
	d, err := draft.New(draft.Type(form.Type), caller)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.drafts.Put(caller.ID, d)
	h.respondDraft(w, http.StatusCreated, caller.ID)
}

func (h *Handler) handleDraftGet(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	if caller == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	h.respondDraft(w, http.StatusOK, caller.ID)
}

// respondDraft serializes the caller's draft while the store lock is held, so
// a concurrent edit cannot tear the response.
func (h *Handler) respondDraft(w http.ResponseWriter, status int, accountID int64) {
	var body []byte
	err := h.drafts.With(accountID, func(d *draft.Draft) error {
		var err error
		body, err = json.Marshal(d)
		return err
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, status, json.RawMessage(body))
}

func (h *Handler) handleDraftDiscard(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	if caller == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	h.drafts.Delete(caller.ID)
	w.WriteHeader(http.StatusNoContent)
}

type draftDetailsForm struct {
	BrandID         *int64     `json:"brand_id,omitempty"`
	CustomerName    *string    `json:"customer_name,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ReferenceNumber *string    `json:"reference_number,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

func (h *Handler) handleDraftDetails(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	if caller == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var form draftDetailsForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	err := h.drafts.With(caller.ID, func(d *draft.Draft) error {
		if form.BrandID != nil {
			if err := d.SetBrand(*form.BrandID); err != nil {
				return err
			}
		}
		if form.CustomerName != nil {
			if err := d.SetCustomer(*form.CustomerName); err != nil {
				return err
			}
		}
		if form.DueDate != nil {
			d.DueDate = form.DueDate
		}
		if form.ReferenceNumber != nil {
			d.ReferenceNumber = *form.ReferenceNumber
		}
		if form.Notes != nil {
			d.Notes = *form.Notes
		}
		return nil
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondDraft(w, http.StatusOK, caller.ID)
}

type draftLineForm struct {
	ItemID int64 `json:"item_id" validate:"required,gt=0"`
}

// handleDraftAddLine adds an item to the draft. For Receive, the next batch
// number candidate is probed against the ledger right away; for Sell, the
// open batches are fetched and delivered under the sequence the draft handed
// out, so a concurrent refresh wins over this response.
func (h *Handler) handleDraftAddLine(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	if caller == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var form draftLineForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.FieldProblem(w, "invalid line payload", map[string]string{"ItemID": "required"})
		return
	}

	info, err := h.itemInfo(r, form.ItemID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var fetchSeq int
	var lineIndex int
	var draftType draft.Type
	var batchNumber string
	err = h.drafts.With(caller.ID, func(d *draft.Draft) error {
		line, seq, err := d.AddItem(info)
		if err != nil {
			return err
		}
		draftType = d.Type
		fetchSeq = seq
		lineIndex = len(d.Lines) - 1
		batchNumber = line.BatchNumber
		return nil
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	switch draftType {
	case draft.TypeReceive:
		if batchNumber == "" {
			// Sequence exhausted; the line already carries the error.
			break
		}
		verdict, err := h.items.ValidateBatchNumber(r.Context(), form.ItemID, batchNumber)
		if err == nil {
			_ = h.drafts.With(caller.ID, func(d *draft.Draft) error {
				d.ApplyBatchVerdict(lineIndex, batchNumber, verdict)
				return nil
			})
		}
	case draft.TypeSell:
		h.deliverBatches(r, caller.ID, lineIndex, fetchSeq, form.ItemID)
	}

	h.respondDraft(w, http.StatusOK, caller.ID)
}

func (h *Handler) handleDraftRemoveLine(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	if caller == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	index, ok := indexParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid line index")
		return
	}
	err := h.drafts.With(caller.ID, func(d *draft.Draft) error {
		return d.RemoveLine(index)
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondDraft(w, http.StatusOK, caller.ID)
}

type draftLineEditForm struct {
	BatchNumber *string          `json:"batch_number,omitempty"`
	BatchID     *int64           `json:"batch_id,omitempty"`
	CostPrice   *decimal.Decimal `json:"cost_price,omitempty"`
	ExpiryDate  *time.Time       `json:"expiry_date,omitempty"`
	ClearExpiry bool             `json:"clear_expiry,omitempty"`
	Quantity    *int64           `json:"quantity,omitempty"`
	PricingTier *string          `json:"pricing_tier,omitempty"`
}

// handleDraftEditLine applies field edits to one line. A batch number edit
// that passes the local checks is probed against the ledger before the
// response, so the caller sees the verdict immediately.
func (h *Handler) handleDraftEditLine(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	if caller == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	index, ok := indexParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid line index")
		return
	}
	var form draftLineEditForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	var probeItem int64
	var probeNumber string
	err := h.drafts.With(caller.ID, func(d *draft.Draft) error {
		line, err := d.Line(index)
		if err != nil {
			return err
		}
		if form.BatchNumber != nil {
			if err := d.SetBatchNumber(index, *form.BatchNumber); err != nil {
				return err
			}
			if line.State == draft.StateBatchPending {
				probeItem = line.ItemID
				probeNumber = line.BatchNumber
			}
		}
		if form.BatchID != nil {
			if err := d.SelectBatch(index, *form.BatchID); err != nil {
				return err
			}
		}
		if form.CostPrice != nil {
			if err := d.SetCostPrice(index, *form.CostPrice); err != nil {
				return err
			}
		}
		if form.ExpiryDate != nil || form.ClearExpiry {
			expiry := form.ExpiryDate
			if form.ClearExpiry {
				expiry = nil
			}
			if err := d.SetExpiry(index, expiry); err != nil {
				return err
			}
		}
		if form.PricingTier != nil {
			tier, ok := pricing.ParseTier(*form.PricingTier)
			if !ok {
				return ErrUnknownTier
			}
			if err := d.SelectTier(index, tier); err != nil {
				return err
			}
		}
		if form.Quantity != nil {
			if err := d.SetQuantity(index, *form.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	if probeNumber != "" {
		verdict, err := h.items.ValidateBatchNumber(r.Context(), probeItem, probeNumber)
		if err == nil {
			_ = h.drafts.With(caller.ID, func(d *draft.Draft) error {
				d.ApplyBatchVerdict(index, probeNumber, verdict)
				return nil
			})
		}
	}

	h.respondDraft(w, http.StatusOK, caller.ID)
}

func (h *Handler) handleDraftRefreshBatches(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	if caller == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	index, ok := indexParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid line index")
		return
	}
	var fetchSeq int
	var itemID int64
	err := h.drafts.With(caller.ID, func(d *draft.Draft) error {
		line, err := d.Line(index)
		if err != nil {
			return err
		}
		itemID = line.ItemID
		fetchSeq, err = d.RefreshBatches(index)
		return err
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.deliverBatches(r, caller.ID, index, fetchSeq, itemID)
	h.respondDraft(w, http.StatusOK, caller.ID)
}

func (h *Handler) handleDraftValidate(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	if caller == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var lineErrors []draft.LineError
	err := h.drafts.With(caller.ID, func(d *draft.Draft) error {
		lineErrors = d.ValidateForm()
		return nil
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	if lineErrors == nil {
		lineErrors = []draft.LineError{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"valid":  len(lineErrors) == 0,
		"errors": lineErrors,
	})
}

// handleDraftSubmit projects the draft into a payload and books it
// all-or-nothing. On success the draft is discarded; on validation failure it
// stays untouched for correction.
func (h *Handler) handleDraftSubmit(w http.ResponseWriter, r *http.Request) {
	caller := authz.UserFromContext(r.Context())
	if caller == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var payload draft.Payload
	var lineErrors []draft.LineError
	err := h.drafts.With(caller.ID, func(d *draft.Draft) error {
		var err error
		payload, lineErrors, err = d.BuildPayload()
		return err
	})
	if errors.Is(err, draft.ErrNotSubmittable) {
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"valid":  false,
			"errors": lineErrors,
		})
		return
	}
	if err != nil {
		h.respondError(w, err)
		return
	}

	t, err := h.service.Create(r.Context(), caller, payload, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.drafts.Delete(caller.ID)
	httpx.JSON(w, http.StatusCreated, t)
}

// itemInfo assembles what the draft needs to know about an item at add time.
func (h *Handler) itemInfo(r *http.Request, itemID int64) (draft.ItemInfo, error) {
	item, err := h.items.Get(r.Context(), itemID)
	if err != nil {
		return draft.ItemInfo{}, err
	}
	prices, err := h.items.TierPricing(r.Context(), itemID)
	if err != nil {
		return draft.ItemInfo{}, err
	}
	table := make(map[pricing.Tier]decimal.Decimal, len(prices))
	for _, tp := range prices {
		if tier, ok := pricing.ParseTier(tp.PricingTier); ok {
			table[tier] = tp.Price
		}
	}
	used, err := h.items.MaxBatchSequence(r.Context(), itemID)
	if err != nil {
		return draft.ItemInfo{}, err
	}
	return draft.ItemInfo{
		ID:           item.ID,
		Name:         item.Name,
		TierPrices:   table,
		UsedBatchSeq: used,
	}, nil
}

// deliverBatches fetches the item's open batches and feeds them to the line
// under the given sequence. Fetch errors leave the line loading; a refresh
// retries.
func (h *Handler) deliverBatches(r *http.Request, accountID int64, index, seq int, itemID int64) {
	batches, err := h.items.Batches(r.Context(), itemID, true)
	if err != nil {
		h.logger.Warn("fetch batches", slog.Int64("item_id", itemID), slog.Any("error", err))
		return
	}
	options := make([]draft.BatchOption, 0, len(batches))
	for _, b := range batches {
		options = append(options, draft.BatchOption{
			BatchID:           b.ID,
			BatchNumber:       b.BatchNumber,
			RemainingQuantity: b.RemainingQuantity,
			CostPrice:         b.CostPrice,
		})
	}
	_ = h.drafts.With(accountID, func(d *draft.Draft) error {
		d.DeliverBatches(index, seq, itemID, options)
		return nil
	})
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func indexParam(r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	return index, err == nil && index >= 0
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "not found")
	case errors.Is(err, ErrNoDraft):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no draft in progress")
	case errors.Is(err, ErrNotAllowed), errors.Is(err, draft.ErrTypeNotAllowed):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "operation not allowed for role")
	case errors.Is(err, ErrCancelNotAllowed):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "transaction cannot be cancelled")
	case errors.Is(err, ErrNotOutgoing):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", "status flags apply to OUTGOING transactions only")
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "request already processed")
	case errors.Is(err, items.ErrBatchSequenceExhausted):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrBrandRequired), errors.Is(err, ErrCustomerRequired), errors.Is(err, ErrZeroAdjustment), errors.Is(err, ErrUnknownTier):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, draft.ErrDuplicateItem),
		errors.Is(err, draft.ErrCounterpartyLocked),
		errors.Is(err, draft.ErrCounterpartyMissing),
		errors.Is(err, draft.ErrTierNotAuthorized),
		errors.Is(err, draft.ErrQuantityRange),
		errors.Is(err, draft.ErrQuantityExceedsBatch),
		errors.Is(err, draft.ErrBatchNotCandidate),
		errors.Is(err, draft.ErrWrongMode):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, draft.ErrNoSuchLine):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no such draft line")
	default:
		h.logger.Error("transactions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
