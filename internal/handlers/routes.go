package handlers

import (
	"github.com/labstack/echo/v4"

	"invoicer/internal/middleware"
)

// Handlers groups every HTTP handler the server exposes
type Handlers struct {
	Draft        *DraftHandlers
	Notification *NotificationHandlers
	Health       *HealthHandlers
}

// RegisterRoutes mounts the health probes at the root and the draft API
// under its version group.
func RegisterRoutes(e *echo.Echo, versions *middleware.VersionMiddleware, h Handlers) {
	e.Use(versions.APIVersionResolver())

	e.GET("/health", h.Health.HealthCheck)
	e.GET("/health/ready", h.Health.ReadinessCheck)
	e.GET("/health/live", h.Health.LivenessCheck)

	v1 := versions.VersionRoute(e, "v1")

	draft := v1.Group("/draft")
	draft.GET("", h.Draft.GetDraft)
	draft.PATCH("", h.Draft.UpdateDetails)
	draft.GET("/preview", h.Draft.GetPreview)
	draft.POST("/line-items", h.Draft.AddLineItem)
	draft.PATCH("/line-items/:id", h.Draft.UpdateLineItem)
	draft.DELETE("/line-items/:id", h.Draft.RemoveLineItem)
	draft.PUT("/tax-rate", h.Draft.SetTaxRate)
	draft.POST("/save", h.Draft.SaveDraft)
	draft.POST("/new", h.Draft.NewInvoice)
	draft.GET("/pdf", h.Draft.DownloadPDF)
	draft.POST("/export", h.Draft.ExportPDF)
	draft.POST("/email", h.Draft.SendEmail)

	v1.GET("/notifications", h.Notification.ListNotifications)
}
