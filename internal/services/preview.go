package services

import (
	"strconv"

	"github.com/samber/lo"

	"invoicer/internal/billing"
	"invoicer/internal/models"
)

// Placeholder text shown for empty fields, matching the editor preview
const (
	placeholderBusinessName    = "Your Business Name"
	placeholderBusinessAddress = "123 Business St, City, State ZIP"
	placeholderBusinessEmail   = "email@example.com"
	placeholderClientName      = "Client Name"
	placeholderClientAddress   = "123 Client St, City, State ZIP"
	placeholderClientEmail     = "client@example.com"
	placeholderNotes           = "Thank you for your business. Payment is due within 15 days."
)

// BuildPreview formats a draft for display. Stored values are untouched.
func BuildPreview(inv *models.Invoice) models.InvoicePreview {
	totals := inv.Totals()

	return models.InvoicePreview{
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceDate:   models.FormatDisplayDate(inv.InvoiceDate),
		DueDate:       models.FormatDisplayDate(inv.DueDate),
		Business: models.PartyPreview{
			Name:    lo.Ternary(inv.BusinessName != "", inv.BusinessName, placeholderBusinessName),
			Email:   lo.Ternary(inv.BusinessEmail != "", inv.BusinessEmail, placeholderBusinessEmail),
			Address: lo.Ternary(inv.BusinessAddress != "", inv.BusinessAddress, placeholderBusinessAddress),
			Phone:   inv.BusinessPhone,
		},
		Client: models.PartyPreview{
			Name:    lo.Ternary(inv.ClientName != "", inv.ClientName, placeholderClientName),
			Email:   lo.Ternary(inv.ClientEmail != "", inv.ClientEmail, placeholderClientEmail),
			Address: lo.Ternary(inv.ClientAddress != "", inv.ClientAddress, placeholderClientAddress),
			Phone:   inv.ClientPhone,
		},
		LineItems: lo.Map(inv.LineItems(), func(item models.LineItem, _ int) models.LineItemPreview {
			return models.LineItemPreview{
				ID:          item.ID,
				Description: item.Description,
				Quantity:    item.Quantity,
				Price:       billing.FormatCurrency(item.Price),
				Amount:      billing.FormatCurrency(item.Amount()),
			}
		}),
		TaxRate:  FormatPercent(inv.TaxRate()),
		Subtotal: billing.FormatCurrency(totals.Subtotal),
		Tax:      billing.FormatCurrency(totals.Tax),
		Total:    billing.FormatCurrency(totals.Total),
		Notes:    lo.Ternary(inv.Notes != "", inv.Notes, placeholderNotes),
	}
}

// FormatPercent renders a rate such as 8.25 as "8.25%"
func FormatPercent(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + "%"
}
