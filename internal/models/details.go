package models

import ierr "invoicer/internal/errors"

// DetailsPatch carries edits to the free-text fields of a draft. Nil
// fields are left alone; text is stored verbatim, dates canonically.
type DetailsPatch struct {
	BusinessName    *string `json:"businessName,omitempty"`
	BusinessEmail   *string `json:"businessEmail,omitempty"`
	BusinessAddress *string `json:"businessAddress,omitempty"`
	BusinessPhone   *string `json:"businessPhone,omitempty"`
	ClientName      *string `json:"clientName,omitempty"`
	ClientEmail     *string `json:"clientEmail,omitempty"`
	ClientAddress   *string `json:"clientAddress,omitempty"`
	ClientPhone     *string `json:"clientPhone,omitempty"`
	InvoiceNumber   *string `json:"invoiceNumber,omitempty"`
	InvoiceDate     *string `json:"invoiceDate,omitempty"`
	DueDate         *string `json:"dueDate,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// Normalize rewrites set dates in canonical YYYY-MM-DD form. A set date
// that is not a date is a validation error and nothing should be applied.
func (p DetailsPatch) Normalize() (DetailsPatch, error) {
	for _, date := range []struct {
		field string
		value **string
	}{
		{"invoiceDate", &p.InvoiceDate},
		{"dueDate", &p.DueDate},
	} {
		if *date.value == nil {
			continue
		}
		canonical, ok := ParseDate(**date.value)
		if !ok {
			return p, ierr.NewError("invalid date").
				WithHintf("%s must be a valid date in YYYY-MM-DD form", date.field).
				WithReportableDetails(map[string]any{"field": date.field, "value": **date.value}).
				Mark(ierr.ErrValidation)
		}
		*date.value = &canonical
	}
	return p, nil
}

// ApplyTo copies every set field onto inv. Dates are stored canonically;
// callers reject non-dates with Normalize first.
func (p DetailsPatch) ApplyTo(inv *Invoice) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setDate := func(dst *string, src *string) {
		if src != nil {
			*dst = NormalizeDate(*src)
		}
	}

	set(&inv.BusinessName, p.BusinessName)
	set(&inv.BusinessEmail, p.BusinessEmail)
	set(&inv.BusinessAddress, p.BusinessAddress)
	set(&inv.BusinessPhone, p.BusinessPhone)
	set(&inv.ClientName, p.ClientName)
	set(&inv.ClientEmail, p.ClientEmail)
	set(&inv.ClientAddress, p.ClientAddress)
	set(&inv.ClientPhone, p.ClientPhone)
	set(&inv.InvoiceNumber, p.InvoiceNumber)
	setDate(&inv.InvoiceDate, p.InvoiceDate)
	setDate(&inv.DueDate, p.DueDate)
	set(&inv.Notes, p.Notes)
}
