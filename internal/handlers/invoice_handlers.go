package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"invoicer/internal/common"
	"invoicer/internal/models"
	"invoicer/internal/services"
)

// DraftHandlers handles HTTP requests for the invoice draft
type DraftHandlers struct {
	draftService services.DraftService
}

// NewDraftHandlers creates a new draft handlers instance
func NewDraftHandlers(draftService services.DraftService) *DraftHandlers {
	return &DraftHandlers{
		draftService: draftService,
	}
}

type updateLineItemRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type taxRateRequest struct {
	Value any `json:"value"`
}

type addLineItemResponse struct {
	Invoice  *models.Invoice `json:"invoice"`
	LineItem models.LineItem `json:"lineItem"`
}

type acceptedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GetDraft handles GET /draft
func (h *DraftHandlers) GetDraft(c echo.Context) error {
	return c.JSON(http.StatusOK, h.draftService.Current())
}

// GetPreview handles GET /draft/preview
func (h *DraftHandlers) GetPreview(c echo.Context) error {
	return c.JSON(http.StatusOK, h.draftService.Preview())
}

// UpdateDetails handles PATCH /draft
func (h *DraftHandlers) UpdateDetails(c echo.Context) error {
	var patch models.DetailsPatch
	if err := c.Bind(&patch); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	invoice, err := h.draftService.UpdateDetails(patch)
	if err != nil {
		return common.SendError(c, err)
	}

	return c.JSON(http.StatusOK, invoice)
}

// AddLineItem handles POST /draft/line-items
func (h *DraftHandlers) AddLineItem(c echo.Context) error {
	invoice, item := h.draftService.AddLineItem()
	return c.JSON(http.StatusCreated, addLineItemResponse{
		Invoice:  invoice,
		LineItem: item,
	})
}

// UpdateLineItem handles PATCH /draft/line-items/:id
func (h *DraftHandlers) UpdateLineItem(c echo.Context) error {
	id := c.Param("id")

	var req updateLineItemRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Field == "" {
		return common.SendValidationError(c, "field", "field is required")
	}

	invoice, found, err := h.draftService.UpdateLineItem(id, models.LineItemField(req.Field), req.Value)
	if err != nil {
		return common.SendError(c, err)
	}
	if !found {
		return common.SendNotFoundError(c, "line item")
	}

	return c.JSON(http.StatusOK, invoice)
}

// RemoveLineItem handles DELETE /draft/line-items/:id
func (h *DraftHandlers) RemoveLineItem(c echo.Context) error {
	invoice, removed := h.draftService.RemoveLineItem(c.Param("id"))
	if !removed {
		return common.SendNotFoundError(c, "line item")
	}

	return c.JSON(http.StatusOK, invoice)
}

// SetTaxRate handles PUT /draft/tax-rate
func (h *DraftHandlers) SetTaxRate(c echo.Context) error {
	var req taxRateRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	return c.JSON(http.StatusOK, h.draftService.SetTaxRate(req.Value))
}

// SaveDraft handles POST /draft/save
func (h *DraftHandlers) SaveDraft(c echo.Context) error {
	if err := h.draftService.Save(c.Request().Context()); err != nil {
		return common.SendError(c, err)
	}

	return c.JSON(http.StatusOK, h.draftService.Current())
}

// NewInvoice handles POST /draft/new
func (h *DraftHandlers) NewInvoice(c echo.Context) error {
	invoice, err := h.draftService.NewInvoice(c.Request().Context())
	if err != nil {
		return common.SendError(c, err)
	}

	return c.JSON(http.StatusOK, invoice)
}

// DownloadPDF handles GET /draft/pdf
func (h *DraftHandlers) DownloadPDF(c echo.Context) error {
	name, data, err := h.draftService.RenderPDF(c.Request().Context())
	if err != nil {
		return common.SendError(c, err)
	}

	c.Response().Header().Set("Content-Disposition", "attachment; filename="+name)
	return c.Blob(http.StatusOK, "application/pdf", data)
}

// ExportPDF handles POST /draft/export
func (h *DraftHandlers) ExportPDF(c echo.Context) error {
	if err := h.draftService.ExportPDF(c.Request().Context()); err != nil {
		return common.SendError(c, err)
	}

	return c.JSON(http.StatusAccepted, acceptedResponse{
		Status:  "generating",
		Message: "Please wait...",
	})
}

// SendEmail handles POST /draft/email
func (h *DraftHandlers) SendEmail(c echo.Context) error {
	if err := h.draftService.SendEmail(c.Request().Context()); err != nil {
		return common.SendError(c, err)
	}

	return c.JSON(http.StatusAccepted, acceptedResponse{
		Status:  "sending",
		Message: "Please wait...",
	})
}
