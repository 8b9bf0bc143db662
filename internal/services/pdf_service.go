package services

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/jung-kurt/gofpdf"

	"invoicer/internal/models"
)

// PDFRenderer turns a draft into a downloadable document
type PDFRenderer interface {
	Render(invoice *models.Invoice) ([]byte, error)
	FileName(invoice *models.Invoice) string
}

type pdfRenderer struct{}

// NewPDFRenderer renders single-page A4 invoices with gofpdf
func NewPDFRenderer() PDFRenderer {
	return &pdfRenderer{}
}

// FileName returns Invoice-{invoiceNumber}.pdf
func (r *pdfRenderer) FileName(invoice *models.Invoice) string {
	return fmt.Sprintf("Invoice-%s.pdf", invoice.InvoiceNumber)
}

const (
	pdfMargin       = 20.0
	pdfFooterHeight = 45.0
	pdfMaxRowHeight = 8.0
	pdfMinRowHeight = 3.0
)

// Render lays out the same content as the preview. The page never breaks:
// rows shrink so that every line item fits on one page.
func (r *pdfRenderer) Render(invoice *models.Invoice) ([]byte, error) {
	preview := BuildPreview(invoice)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AddPage()

	_, pageHeight := pdf.GetPageSize()

	// Header
	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(33, 37, 41)
	pdf.Cell(100, 10, "INVOICE")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, tr("# "+preview.InvoiceNumber), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 5, tr("Date: "+preview.InvoiceDate), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 5, tr("Due: "+preview.DueDate), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	// From / bill to blocks side by side
	top := pdf.GetY()
	writeParty(pdf, tr, "FROM:", preview.Business, pdfMargin, top)
	writeParty(pdf, tr, "BILL TO:", preview.Client, 110, top)
	pdf.SetXY(pdfMargin, top+32)

	// Items table
	headers := []string{"Description", "Qty", "Price", "Amount"}
	colWidths := []float64{90, 20, 30, 30}
	aligns := []string{"L", "C", "R", "R"}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	for i, header := range headers {
		pdf.CellFormat(colWidths[i], 8, header, "1", 0, aligns[i], true, 0, "")
	}
	pdf.Ln(8)

	rowHeight := pdfMaxRowHeight
	if n := len(preview.LineItems); n > 0 {
		available := pageHeight - pdfMargin - pdfFooterHeight - pdf.GetY()
		rowHeight = math.Max(pdfMinRowHeight, math.Min(pdfMaxRowHeight, available/float64(n)))
	}
	fontSize := math.Min(10, rowHeight*1.6)

	pdf.SetFont("Arial", "", fontSize)
	for _, item := range preview.LineItems {
		cells := []string{
			tr(item.Description),
			strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			item.Price,
			item.Amount,
		}
		for i, cell := range cells {
			pdf.CellFormat(colWidths[i], rowHeight, cell, "1", 0, aligns[i], false, 0, "")
		}
		pdf.Ln(rowHeight)
	}
	pdf.Ln(4)

	// Totals
	labelWidth := colWidths[0] + colWidths[1] + colWidths[2]
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(labelWidth, 6, "Subtotal:", "", 0, "R", false, 0, "")
	pdf.CellFormat(colWidths[3], 6, preview.Subtotal, "", 1, "R", false, 0, "")
	pdf.CellFormat(labelWidth, 6, fmt.Sprintf("Tax (%s):", preview.TaxRate), "", 0, "R", false, 0, "")
	pdf.CellFormat(colWidths[3], 6, preview.Tax, "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(labelWidth, 8, "Total:", "", 0, "R", false, 0, "")
	pdf.CellFormat(colWidths[3], 8, preview.Total, "", 1, "R", false, 0, "")
	pdf.Ln(6)

	// Notes
	pdf.SetFont("Arial", "B", 9)
	pdf.Cell(0, 6, "Notes:")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 9)
	pdf.MultiCell(0, 5, tr(preview.Notes), "", "L", false)

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.Cell(0, 5, tr("Please make payments to: "+preview.Business.Name))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render invoice pdf")
	}
	return buf.Bytes(), nil
}

func writeParty(pdf *gofpdf.Fpdf, tr func(string) string, label string, party models.PartyPreview, x, y float64) {
	pdf.SetXY(x, y)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(80, 6, label)

	lines := []string{party.Name, party.Address, party.Email, party.Phone}
	pdf.SetFont("Arial", "", 9)
	offset := 6.0
	for _, line := range lines {
		if line == "" {
			continue
		}
		pdf.SetXY(x, y+offset)
		pdf.Cell(80, 5, tr(line))
		offset += 5
	}
}
