package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/gommon/random"
)

const (
	// DateLayout is the canonical stored form of invoice and due dates
	DateLayout = "2006-01-02"
	// DisplayDateLayout is how dates are shown on the preview and PDF
	DisplayDateLayout = "01/02/2006"
)

var lenientDateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	DisplayDateLayout,
}

// FormatDate renders t in canonical YYYY-MM-DD form
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeDate rewrites any accepted date spelling in canonical form.
// Unrecognised input is returned trimmed but otherwise untouched so that
// validation can reject it.
func NormalizeDate(s string) string {
	if canonical, ok := ParseDate(s); ok {
		return canonical
	}
	return strings.TrimSpace(s)
}

// ParseDate returns the canonical form of s and whether s is a date at all
func ParseDate(s string) (string, bool) {
	t, ok := parseLenient(s)
	if !ok {
		return "", false
	}
	return FormatDate(t), true
}

func parseLenient(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range lenientDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDisplayDate renders a canonical date as MM/DD/YYYY. Input that is
// not a canonical date is returned unchanged.
func FormatDisplayDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(DisplayDateLayout)
}

// GenerateInvoiceNumber returns INV-YYMM-RRR with three random digits.
// Numbers are not guaranteed to be unique.
func GenerateInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%s-%s", now.Format("0601"), random.String(3, random.Numeric))
}
