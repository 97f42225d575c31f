package draft

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumina-dist/lumina/internal/pricing"
)

// LineError names one validation failure on one line.
type LineError struct {
	Line    int    `json:"line"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
}

// ValidateForm checks the whole draft and returns every problem found. The
// form submits all-or-nothing: any error blocks submission and the draft
// stays as-is.
func (d *Draft) ValidateForm() []LineError {
	var errs []LineError
	add := func(line int, field, message string) {
		errs = append(errs, LineError{Line: line, Field: field, Message: message})
	}

	switch d.Type {
	case TypeReceive:
		if d.BrandID == 0 {
			add(-1, "brand", "brand is required")
		}
	case TypeSell:
		if d.CustomerName == "" {
			add(-1, "customer", "customer name is required")
		}
	}
	if len(d.Lines) == 0 {
		add(-1, "lines", "at least one line is required")
	}

	for i, line := range d.Lines {
		if line.Quantity < 1 || line.Quantity > MaxQuantity {
			add(i, "quantity", fmt.Sprintf("quantity must be between 1 and %d", MaxQuantity))
		}
		switch d.Type {
		case TypeReceive:
			if !line.CostPrice.IsPositive() {
				add(i, "cost_price", "cost price must be positive")
			}
			switch line.State {
			case StateBatchValidated:
				// ok
			case StateBatchInvalid:
				add(i, "batch_number", line.BatchError)
			default:
				add(i, "batch_number", "batch number not yet verified")
			}
		case TypeSell:
			if line.PricingTier == "" {
				add(i, "pricing_tier", "pricing tier is required")
			} else if !line.UnitPrice.IsPositive() {
				add(i, "unit_price", "no positive price at the selected tier")
			}
			switch line.State {
			case StateBatchSelected:
				if line.SelectedBatch != nil && line.Quantity > line.SelectedBatch.RemainingQuantity {
					add(i, "quantity", "quantity exceeds batch remaining")
				}
			case StateBatchesEmpty:
				// No batch to consume from; the sale still submits.
			case StateBatchesLoading:
				add(i, "batch", "batches still loading")
			default:
				add(i, "batch", "batch selection required")
			}
		}
	}
	return errs
}

// PayloadLine is the wire shape of one line in the create payload. The
// quantity is a magnitude; the transaction type carries the sign.
type PayloadLine struct {
	ItemID      int64           `json:"item_id"`
	Quantity    int64           `json:"quantity"`
	BatchNumber string          `json:"batch_number,omitempty"`
	BatchID     int64           `json:"batch_id,omitempty"`
	CostPrice   decimal.Decimal `json:"cost_price,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price,omitempty"`
	PricingTier pricing.Tier    `json:"pricing_tier,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
}

// Payload is the one-shot projection of a valid draft into the create
// request.
type Payload struct {
	Type            Type          `json:"type"`
	BrandID         int64         `json:"brand_id,omitempty"`
	CustomerName    string        `json:"customer_name,omitempty"`
	DueDate         *time.Time    `json:"due_date,omitempty"`
	ReferenceNumber string        `json:"reference_number,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Lines           []PayloadLine `json:"lines"`
}

// BuildPayload validates the draft and projects it. On any validation error
// the draft is left untouched and no payload is produced; the caller decides
// whether to retry after fixing the form.
func (d *Draft) BuildPayload() (Payload, []LineError, error) {
	if errs := d.ValidateForm(); len(errs) > 0 {
		return Payload{}, errs, ErrNotSubmittable
	}
	payload := Payload{
		Type:            d.Type,
		BrandID:         d.BrandID,
		CustomerName:    d.CustomerName,
		DueDate:         d.DueDate,
		ReferenceNumber: d.ReferenceNumber,
		Notes:           d.Notes,
		Lines:           make([]PayloadLine, 0, len(d.Lines)),
	}
	for _, line := range d.Lines {
		pl := PayloadLine{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
		}
		switch d.Type {
		case TypeReceive:
			pl.BatchNumber = line.BatchNumber
			pl.CostPrice = line.CostPrice
			pl.ExpiryDate = line.ExpiryDate
		case TypeSell:
			if line.SelectedBatch != nil {
				pl.BatchID = line.SelectedBatch.BatchID
			}
			pl.UnitPrice = line.UnitPrice
			pl.PricingTier = line.PricingTier
		}
		payload.Lines = append(payload.Lines, pl)
	}
	return payload, nil, nil
}
