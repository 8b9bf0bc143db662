package models

import (
	"github.com/google/uuid"

	ierr "invoicer/internal/errors"
)

// LineItemField names an editable field of a line item
type LineItemField string

const (
	LineItemFieldDescription LineItemField = "description"
	LineItemFieldQuantity    LineItemField = "quantity"
	LineItemFieldPrice       LineItemField = "price"
)

func (f LineItemField) IsValid() bool {
	switch f {
	case LineItemFieldDescription, LineItemFieldQuantity, LineItemFieldPrice:
		return true
	}
	return false
}

// ErrUnknownLineItemField is returned for a field outside description, quantity and price
func ErrUnknownLineItemField(field LineItemField) error {
	return ierr.NewError("unknown line item field").
		WithHintf("Field %q cannot be edited; use description, quantity or price", string(field)).
		WithReportableDetails(map[string]any{"field": string(field)}).
		Mark(ierr.ErrValidation)
}

// LineItem is one billable row
type LineItem struct {
	ID          string  `json:"id" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gte=1"`
	Price       float64 `json:"price" validate:"gte=0"`
}

// NewLineItem returns a blank row with a fresh id
func NewLineItem() LineItem {
	return LineItem{
		ID:       uuid.NewString(),
		Quantity: 1,
		Price:    0,
	}
}

func (li LineItem) GetQuantity() float64 { return li.Quantity }

func (li LineItem) GetPrice() float64 { return li.Price }

// Amount is quantity * price
func (li LineItem) Amount() float64 {
	return li.Quantity * li.Price
}
