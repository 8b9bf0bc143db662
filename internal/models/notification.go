package models

import (
	"time"
)

// NotificationVariant mirrors the two toast styles of the editor
type NotificationVariant string

const (
	NotificationVariantDefault     NotificationVariant = "default"
	NotificationVariantDestructive NotificationVariant = "destructive"
)

// Notification titles used across the draft workflow
const (
	TitleMissingInformation = "Missing information"
	TitleSuccess            = "Success"
	TitleError              = "Error"
	TitleWarning            = "Warning"
	TitleGeneratingPDF      = "Generating PDF"
	TitleSendingEmail       = "Sending email"
)

// Notification is a user-facing message about the outcome of an action
type Notification struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Variant     NotificationVariant `json:"variant"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// IsDestructive reports whether the notification signals a failure
func (n Notification) IsDestructive() bool {
	return n.Variant == NotificationVariantDestructive
}
