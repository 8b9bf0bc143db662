package models

import (
	"encoding/json"
	"strconv"
	"time"

	"invoicer/internal/billing"
)

// InvoiceRecord is the persisted JSON form of an invoice. Structural
// validation runs against this type, never against a live Invoice.
type InvoiceRecord struct {
	ID string `json:"id" validate:"required"`

	BusinessName    string `json:"businessName" validate:"required"`
	BusinessEmail   string `json:"businessEmail" validate:"omitempty,email"`
	BusinessAddress string `json:"businessAddress"`
	BusinessPhone   string `json:"businessPhone"`

	ClientName    string `json:"clientName" validate:"required"`
	ClientEmail   string `json:"clientEmail" validate:"omitempty,email"`
	ClientAddress string `json:"clientAddress"`
	ClientPhone   string `json:"clientPhone"`

	InvoiceNumber string `json:"invoiceNumber" validate:"required"`
	InvoiceDate   string `json:"invoiceDate" validate:"required,datetime=2006-01-02"`
	DueDate       string `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Notes         string `json:"notes"`

	LineItems []LineItem `json:"lineItems" validate:"dive"`
	TaxRate   *float64   `json:"taxRate,omitempty" validate:"omitempty,gte=0,lte=100"`

	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`

	CreatedAt Timestamp `json:"createdAt"`
}

// Normalize applies the load-time coercions: a missing or unparseable
// createdAt becomes now, dates are rewritten in canonical form and a
// missing tax rate falls back to the default.
func (r *InvoiceRecord) Normalize(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = Timestamp{Time: now}
	}
	r.InvoiceDate = NormalizeDate(r.InvoiceDate)
	r.DueDate = NormalizeDate(r.DueDate)
	if r.TaxRate == nil {
		rate := billing.DefaultTaxRate
		r.TaxRate = &rate
	}
	if r.LineItems == nil {
		r.LineItems = []LineItem{}
	}
}

// ToInvoice builds a live draft from the record. The stored totals are
// discarded and recomputed from the items.
func (r InvoiceRecord) ToInvoice() *Invoice {
	taxRate := billing.DefaultTaxRate
	if r.TaxRate != nil {
		taxRate = *r.TaxRate
	}

	items := make([]LineItem, len(r.LineItems))
	copy(items, r.LineItems)

	inv := &Invoice{
		ID:              r.ID,
		BusinessName:    r.BusinessName,
		BusinessEmail:   r.BusinessEmail,
		BusinessAddress: r.BusinessAddress,
		BusinessPhone:   r.BusinessPhone,
		ClientName:      r.ClientName,
		ClientEmail:     r.ClientEmail,
		ClientAddress:   r.ClientAddress,
		ClientPhone:     r.ClientPhone,
		InvoiceNumber:   r.InvoiceNumber,
		InvoiceDate:     r.InvoiceDate,
		DueDate:         r.DueDate,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt.Time,
		lineItems:       items,
		taxRate:         taxRate,
	}
	inv.recalculate()
	return inv
}

func marshalRecord(r InvoiceRecord) ([]byte, error) {
	return json.Marshal(r)
}

// Timestamp is a time that decodes leniently: ISO-8601 strings with or
// without a zone, bare dates and epoch milliseconds are accepted, anything else decodes to the zero time
// instead of failing the whole record.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, ok := parseLenient(s); ok {
			t.Time = parsed
		}
		return nil
	}

	if ms, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
	}
	return nil
}
