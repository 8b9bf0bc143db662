package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	ierr "invoicer/internal/errors"
	"invoicer/internal/logger"
	"invoicer/internal/models"
)

const defaultNotificationCapacity = 100

// NotificationService collects the messages shown to the user after each
// action. Every notification is also logged.
type NotificationService interface {
	Notify(title, description string, variant models.NotificationVariant) models.Notification
	List() []models.Notification
	// Prune drops notifications created before cutoff and returns how many were removed
	Prune(cutoff time.Time) int
}

type notificationService struct {
	mu       sync.RWMutex
	items    []models.Notification
	capacity int
	log      *logger.Logger
	now      func() time.Time
}

// NewNotificationService keeps at most capacity notifications, oldest
// dropped first. A non-positive capacity uses the default.
func NewNotificationService(capacity int, log *logger.Logger) NotificationService {
	if capacity <= 0 {
		capacity = defaultNotificationCapacity
	}
	return &notificationService{
		capacity: capacity,
		log:      log,
		now:      time.Now,
	}
}

func (s *notificationService) Notify(title, description string, variant models.NotificationVariant) models.Notification {
	n := models.Notification{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Variant:     variant,
		CreatedAt:   s.now(),
	}

	if n.IsDestructive() {
		s.log.Warnw("notification", "title", title, "description", description)
	} else {
		s.log.Infow("notification", "title", title, "description", description)
	}

	s.mu.Lock()
	s.items = append(s.items, n)
	if over := len(s.items) - s.capacity; over > 0 {
		s.items = s.items[over:]
	}
	s.mu.Unlock()

	return n
}

func (s *notificationService) List() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *notificationService) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.items = lo.Filter(s.items, func(n models.Notification, _ int) bool {
		return !n.CreatedAt.Before(cutoff)
	})
	return before - len(s.items)
}

// InvoiceMailer delivers an invoice to its client
type InvoiceMailer interface {
	SendInvoice(ctx context.Context, invoice *models.Invoice) error
}

type simulatedMailer struct {
	log *logger.Logger
}

// NewSimulatedMailer returns a mailer that only logs. No email leaves the process.
func NewSimulatedMailer(log *logger.Logger) InvoiceMailer {
	return &simulatedMailer{log: log}
}

func (m *simulatedMailer) SendInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ClientEmail == "" {
		return ErrClientEmailRequired()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.log.Infow("email delivery simulated, nothing was sent",
		"to", invoice.ClientEmail,
		"invoice_number", invoice.InvoiceNumber,
		"total", invoice.Total(),
	)
	return nil
}

// ErrClientEmailRequired is the rejection for sending without a client address
func ErrClientEmailRequired() error {
	return ierr.NewError("client email is required").
		WithHint("client email is required").
		Mark(ierr.ErrValidation)
}
