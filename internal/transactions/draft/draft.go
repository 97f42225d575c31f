// Package draft models the multi-line transaction form as an explicit state
// machine. A draft lives in memory, scoped to one user session; nothing is
// persisted until submission projects it into a create payload.
package draft

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/items"
	"github.com/lumina-dist/lumina/internal/pricing"
)

// Type is the draft's transaction mode.
type Type string

const (
	// TypeReceive books stock in from a brand.
	TypeReceive Type = "Receive"
	// TypeSell books stock out to a customer.
	TypeSell Type = "Sell"
)

// MaxQuantity is the largest magnitude a line accepts.
const MaxQuantity = 32767

// LineState tracks where a line sits in its lifecycle.
type LineState string

const (
	StateEmpty          LineState = "empty"
	StateItemSelected   LineState = "item-selected"
	StateBatchPending   LineState = "batch-pending"
	StateBatchValidated LineState = "batch-validated"
	StateBatchInvalid   LineState = "batch-invalid"
	StateBatchesLoading LineState = "batches-loading"
	StateBatchAvailable LineState = "batch-available"
	StateBatchSelected  LineState = "batch-selected"
	StateBatchesEmpty   LineState = "batches-empty"
)

var (
	// ErrTypeNotAllowed means the caller's role cannot open this draft type.
	ErrTypeNotAllowed = errors.New("draft: transaction type not allowed for role")
	// ErrDuplicateItem rejects adding an item already on the draft.
	ErrDuplicateItem = errors.New("draft: item already on the draft")
	// ErrCounterpartyLocked means the brand cannot change once items from it
	// are on the draft.
	ErrCounterpartyLocked = errors.New("draft: counterparty locked while lines exist")
	// ErrCounterpartyMissing means a tier was chosen before naming a
	// customer.
	ErrCounterpartyMissing = errors.New("draft: counterparty required first")
	// ErrTierNotAuthorized means the tier is outside the caller's allowed
	// selling set.
	ErrTierNotAuthorized = errors.New("draft: tier not in allowed selling set")
	// ErrQuantityRange means the quantity is outside 1..32767.
	ErrQuantityRange = errors.New("draft: quantity out of range")
	// ErrQuantityExceedsBatch means a sell quantity is larger than the
	// selected batch's remaining stock.
	ErrQuantityExceedsBatch = errors.New("draft: quantity exceeds batch remaining")
	// ErrNoSuchLine means the line index is out of bounds.
	ErrNoSuchLine = errors.New("draft: no such line")
	// ErrBatchNotCandidate means the selected batch is not among the
	// fetched candidates.
	ErrBatchNotCandidate = errors.New("draft: batch not among candidates")
	// ErrWrongMode means the operation does not apply to the draft's type.
	ErrWrongMode = errors.New("draft: operation not valid for draft type")
	// ErrNotSubmittable means ValidateForm found problems.
	ErrNotSubmittable = errors.New("draft: form has validation errors")
)

// BatchOption is one open batch offered for a sell line.
type BatchOption struct {
	BatchID           int64           `json:"batch_id"`
	BatchNumber       string          `json:"batch_number"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	CostPrice         decimal.Decimal `json:"cost_price"`
}

// Line is one item row on the draft.
type Line struct {
	ItemID   int64     `json:"item_id"`
	ItemName string    `json:"item_name"`
	State    LineState `json:"state"`

	// Receive mode.
	BatchNumber   string          `json:"batch_number,omitempty"`
	BatchVerified bool            `json:"batch_verified"`
	BatchError    string          `json:"batch_error,omitempty"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`

	// Sell mode.
	Candidates    []BatchOption   `json:"candidates,omitempty"`
	SelectedBatch *BatchOption    `json:"selected_batch,omitempty"`
	PricingTier   pricing.Tier    `json:"pricing_tier,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`

	Quantity int64 `json:"quantity"`

	// fetchSeq tags the in-flight batch fetch so late responses for a
	// superseded request are dropped.
	fetchSeq int

	// tierPrices is the item's price table captured at add time.
	tierPrices map[pricing.Tier]decimal.Decimal
}

// LineTotal is the line's price times quantity magnitude.
func (l *Line) LineTotal() decimal.Decimal {
	price := l.UnitPrice
	if l.State == StateBatchValidated || l.State == StateBatchPending || l.State == StateBatchInvalid {
		price = l.CostPrice
	}
	return price.Mul(decimal.NewFromInt(l.Quantity))
}

// Draft is the whole form.
type Draft struct {
	Type            Type       `json:"type"`
	BrandID         int64      `json:"brand_id,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ReferenceNumber string     `json:"reference_number,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Lines           []*Line    `json:"lines"`

	caller *authz.User

	// batchSeq hands out monotonic batch number candidates per item within
	// this draft session, so re-adding an item never repeats a candidate.
	batchSeq map[int64]int

	// fetchCounter tags async batch fetches.
	fetchCounter int
}

// New opens a draft of the given type for a caller. Sales accounts may only
// open Sell drafts; every other known role may open both.
func New(t Type, caller *authz.User) (*Draft, error) {
	switch t {
	case TypeReceive:
		if !authz.CanManageTransactions(caller) {
			return nil, ErrTypeNotAllowed
		}
	case TypeSell:
		if !authz.CanReserveGoods(caller) {
			return nil, ErrTypeNotAllowed
		}
	default:
		return nil, fmt.Errorf("draft: unknown type %q", t)
	}
	return &Draft{Type: t, caller: caller, batchSeq: map[int64]int{}}, nil
}

// AllowedTypes lists the draft types a caller may open.
func AllowedTypes(caller *authz.User) []Type {
	var types []Type
	if authz.CanManageTransactions(caller) {
		types = append(types, TypeReceive)
	}
	if authz.CanReserveGoods(caller) {
		types = append(types, TypeSell)
	}
	return types
}

// SetBrand fixes the brand counterparty on a Receive draft. It locks once
// lines exist.
func (d *Draft) SetBrand(brandID int64) error {
	if d.Type != TypeReceive {
		return ErrWrongMode
	}
	if len(d.Lines) > 0 && d.BrandID != 0 && d.BrandID != brandID {
		return ErrCounterpartyLocked
	}
	d.BrandID = brandID
	return nil
}

// SetCustomer names the customer counterparty on a Sell draft. Free text;
// resolution to a record happens at submission.
func (d *Draft) SetCustomer(name string) error {
	if d.Type != TypeSell {
		return ErrWrongMode
	}
	d.CustomerName = strings.TrimSpace(name)
	return nil
}

// ItemInfo is what the draft needs to know about an item when it is added.
type ItemInfo struct {
	ID         int64
	Name       string
	TierPrices map[pricing.Tier]decimal.Decimal
	// UsedBatchSeq is the highest batch sequence already on the ledger for
	// this item, so candidates start past it.
	UsedBatchSeq int
}

// AddItem appends a line for the item. Items are unique within a draft.
// Receive lines get the next unused batch number candidate and wait for a
// server verdict; Sell lines report the fetch sequence the caller must tag
// the batch response with.
func (d *Draft) AddItem(info ItemInfo) (*Line, int, error) {
	for _, l := range d.Lines {
		if l.ItemID == info.ID {
			return nil, 0, ErrDuplicateItem
		}
	}
	line := &Line{
		ItemID:     info.ID,
		ItemName:   info.Name,
		State:      StateItemSelected,
		tierPrices: info.TierPrices,
	}
	switch d.Type {
	case TypeReceive:
		seq := d.batchSeq[info.ID]
		if seq < info.UsedBatchSeq {
			seq = info.UsedBatchSeq
		}
		seq++
		d.batchSeq[info.ID] = seq
		if seq > items.MaxBatchSeq {
			// Every B-NNN number is taken; the user must resolve it.
			line.State = StateBatchInvalid
			line.BatchError = "batch number sequence exhausted"
			break
		}
		line.BatchNumber = items.FormatBatchNumber(seq)
		line.State = StateBatchPending
	case TypeSell:
		d.fetchCounter++
		line.fetchSeq = d.fetchCounter
		line.State = StateBatchesLoading
	}
	d.Lines = append(d.Lines, line)
	if d.Type == TypeSell {
		return line, line.fetchSeq, nil
	}
	return line, 0, nil
}

// RemoveLine drops a line.
func (d *Draft) RemoveLine(index int) error {
	if index < 0 || index >= len(d.Lines) {
		return ErrNoSuchLine
	}
	d.Lines = append(d.Lines[:index], d.Lines[index+1:]...)
	return nil
}

// Line returns the line at index.
func (d *Draft) Line(index int) (*Line, error) {
	if index < 0 || index >= len(d.Lines) {
		return nil, ErrNoSuchLine
	}
	return d.Lines[index], nil
}

// DeliverBatches feeds an async batch fetch result to a sell line. The seq
// must match the one handed out by AddItem (or RefreshBatches); stale or
// mismatched deliveries are silently dropped.
func (d *Draft) DeliverBatches(index int, seq int, itemID int64, batches []BatchOption) {
	if index < 0 || index >= len(d.Lines) {
		return
	}
	line := d.Lines[index]
	if line.fetchSeq != seq || line.ItemID != itemID {
		return
	}
	if line.State != StateBatchesLoading {
		return
	}
	if len(batches) == 0 {
		line.State = StateBatchesEmpty
		line.Candidates = nil
		line.SelectedBatch = nil
		return
	}
	line.Candidates = batches
	line.State = StateBatchAvailable
	d.autoSelectBatch(line)
}

// autoSelectBatch promotes a batch-available line straight to batch-selected
// by taking the first candidate. The user can still pick another via
// SelectBatch.
func (d *Draft) autoSelectBatch(line *Line) {
	if line.State != StateBatchAvailable || len(line.Candidates) == 0 {
		return
	}
	first := line.Candidates[0]
	line.SelectedBatch = &first
	line.State = StateBatchSelected
}

// RefreshBatches restarts the batch fetch for a sell line, superseding any
// response still in flight.
func (d *Draft) RefreshBatches(index int) (int, error) {
	if d.Type != TypeSell {
		return 0, ErrWrongMode
	}
	line, err := d.Line(index)
	if err != nil {
		return 0, err
	}
	d.fetchCounter++
	line.fetchSeq = d.fetchCounter
	line.State = StateBatchesLoading
	line.Candidates = nil
	line.SelectedBatch = nil
	return line.fetchSeq, nil
}

// SelectBatch picks one of the fetched candidates for a sell line.
func (d *Draft) SelectBatch(index int, batchID int64) error {
	if d.Type != TypeSell {
		return ErrWrongMode
	}
	line, err := d.Line(index)
	if err != nil {
		return err
	}
	for _, c := range line.Candidates {
		if c.BatchID == batchID {
			chosen := c
			line.SelectedBatch = &chosen
			line.State = StateBatchSelected
			if line.Quantity > c.RemainingQuantity {
				line.Quantity = 0
			}
			return nil
		}
	}
	return ErrBatchNotCandidate
}

// SetBatchNumber edits a receive line's batch number. Format and in-draft
// duplicates fail immediately; a passing number goes back to pending until
// the server verdict arrives via ApplyBatchVerdict.
func (d *Draft) SetBatchNumber(index int, number string) error {
	if d.Type != TypeReceive {
		return ErrWrongMode
	}
	line, err := d.Line(index)
	if err != nil {
		return err
	}
	number = strings.TrimSpace(number)
	line.BatchNumber = number
	line.BatchVerified = false
	if !items.ValidBatchNumberFormat(number) {
		line.State = StateBatchInvalid
		line.BatchError = "batch number must match B-NNN"
		return nil
	}
	for i, other := range d.Lines {
		if i != index && other.ItemID == line.ItemID && other.BatchNumber == number {
			line.State = StateBatchInvalid
			line.BatchError = "batch number already used on this draft"
			return nil
		}
	}
	line.State = StateBatchPending
	line.BatchError = ""
	return nil
}

// ApplyBatchVerdict records the server's uniqueness answer for a receive
// line. A verdict for a number the line no longer holds is dropped.
func (d *Draft) ApplyBatchVerdict(index int, number string, verdict items.BatchVerdict) {
	if index < 0 || index >= len(d.Lines) {
		return
	}
	line := d.Lines[index]
	if line.BatchNumber != number || line.State == StateBatchInvalid {
		return
	}
	if verdict.Valid {
		line.State = StateBatchValidated
		line.BatchVerified = true
		line.BatchError = ""
		return
	}
	line.State = StateBatchInvalid
	line.BatchVerified = false
	line.BatchError = verdict.Reason
}

// SetCostPrice sets a receive line's unit cost.
func (d *Draft) SetCostPrice(index int, price decimal.Decimal) error {
	if d.Type != TypeReceive {
		return ErrWrongMode
	}
	line, err := d.Line(index)
	if err != nil {
		return err
	}
	line.CostPrice = price
	return nil
}

// SetExpiry sets a receive line's optional expiry date.
func (d *Draft) SetExpiry(index int, expiry *time.Time) error {
	if d.Type != TypeReceive {
		return ErrWrongMode
	}
	line, err := d.Line(index)
	if err != nil {
		return err
	}
	line.ExpiryDate = expiry
	return nil
}

// SetQuantity sets a line's quantity magnitude. Bounds are 1..32767; sell
// lines are additionally capped by the selected batch's remaining stock.
func (d *Draft) SetQuantity(index int, qty int64) error {
	line, err := d.Line(index)
	if err != nil {
		return err
	}
	if qty < 1 || qty > MaxQuantity {
		return ErrQuantityRange
	}
	if d.Type == TypeSell && line.SelectedBatch != nil && qty > line.SelectedBatch.RemainingQuantity {
		return ErrQuantityExceedsBatch
	}
	line.Quantity = qty
	return nil
}

// SelectTier picks a sell line's pricing tier. The customer must be named
// first and the tier must sit inside the caller's allowed selling set;
// otherwise the selection is rejected and no price is computed. The unit
// price comes from the item's tier table, falling back to the default map.
func (d *Draft) SelectTier(index int, tier pricing.Tier) error {
	if d.Type != TypeSell {
		return ErrWrongMode
	}
	line, err := d.Line(index)
	if err != nil {
		return err
	}
	if d.CustomerName == "" {
		return ErrCounterpartyMissing
	}
	costTier := ""
	if d.caller != nil {
		costTier = d.caller.CostTier
	}
	if !pricing.CanSellAt(costTier, tier) {
		return ErrTierNotAuthorized
	}
	price, ok := line.tierPrices[tier]
	if !ok {
		price = pricing.DefaultTierPrices[tier]
	}
	line.PricingTier = tier
	line.UnitPrice = price
	return nil
}
