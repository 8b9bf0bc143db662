package validator

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	ierr "invoicer/internal/errors"
	"invoicer/internal/models"
)

// Save-gate failures, checked in this order
var (
	ErrBusinessNameRequired = errors.New("business name required")
	ErrClientNameRequired   = errors.New("client name required")
	ErrLineItemsRequired    = errors.New("at least one line item required")
	ErrDescriptionRequired  = errors.New("all line items require a description")
)

// ValidateForSave applies the business rules a draft must meet before it
// is persisted. It stops at the first failure. This is independent of
// ValidateStructure and is enforced even where the two overlap.
func ValidateForSave(inv *models.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice is nil").Mark(ierr.ErrValidation)
	}

	if inv.BusinessName == "" {
		return saveGateError(ErrBusinessNameRequired, "businessName")
	}

	if inv.ClientName == "" {
		return saveGateError(ErrClientNameRequired, "clientName")
	}

	items := inv.LineItems()
	if len(items) == 0 {
		return saveGateError(ErrLineItemsRequired, "lineItems")
	}

	if blank, found := lo.Find(items, func(item models.LineItem) bool { return item.Description == "" }); found {
		return ierr.WithError(ErrDescriptionRequired).
			WithHint(ErrDescriptionRequired.Error()).
			WithReportableDetails(map[string]any{"field": "lineItems.description", "line_item_id": blank.ID}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

func saveGateError(cause error, field string) error {
	return ierr.WithError(cause).
		WithHint(cause.Error()).
		WithReportableDetails(map[string]any{"field": field}).
		Mark(ierr.ErrValidation)
}
