package models

// InvoicePreview is the display form of a draft: dates as MM/DD/YYYY and
// money as currency strings. It is derived on demand and never stored.
type InvoicePreview struct {
	InvoiceNumber string `json:"invoiceNumber"`
	InvoiceDate   string `json:"invoiceDate"`
	DueDate       string `json:"dueDate"`

	Business PartyPreview `json:"business"`
	Client   PartyPreview `json:"client"`

	LineItems []LineItemPreview `json:"lineItems"`

	TaxRate  string `json:"taxRate"`
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
	Notes    string `json:"notes,omitempty"`
}

type PartyPreview struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type LineItemPreview struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Price       string  `json:"price"`
	Amount      string  `json:"amount"`
}
