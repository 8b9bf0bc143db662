package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	ierr "invoicer/internal/errors"
	"invoicer/internal/logger"
	"invoicer/internal/models"
	"invoicer/internal/repositories"
	"invoicer/internal/validator"
)

// TaskRunner runs work in the background after a delay
type TaskRunner interface {
	RunAfter(name string, delay time.Duration, task func(ctx context.Context)) error
}

// DraftService owns the single live invoice draft. Every method that
// changes line items or the tax rate returns a snapshot whose totals are
// already recomputed.
type DraftService interface {
	// Init adopts the saved draft if it is usable, otherwise starts fresh
	Init(ctx context.Context) repositories.LoadResult
	Current() *models.Invoice
	Preview() models.InvoicePreview

	// UpdateDetails rejects a patch whose dates are not dates and leaves
	// the draft untouched in that case
	UpdateDetails(patch models.DetailsPatch) (*models.Invoice, error)
	AddLineItem() (*models.Invoice, models.LineItem)
	UpdateLineItem(id string, field models.LineItemField, value any) (*models.Invoice, bool, error)
	RemoveLineItem(id string) (*models.Invoice, bool)
	SetTaxRate(value any) *models.Invoice

	Save(ctx context.Context) error
	NewInvoice(ctx context.Context) (*models.Invoice, error)

	RenderPDF(ctx context.Context) (string, []byte, error)
	ExportPDF(ctx context.Context) error
	SendEmail(ctx context.Context) error
}

// defaultExportTimeout bounds how long an export may hold the guard
const defaultExportTimeout = 2 * time.Minute

// DraftServiceConfig holds the delays of the asynchronous actions.
// ExportTimeout is how long after its delay an export still blocks the
// next one; past that it is treated as lost (for example when the
// scheduler stopped before running it). Zero uses the default.
type DraftServiceConfig struct {
	ExportDelay   time.Duration
	EmailDelay    time.Duration
	ExportTimeout time.Duration
}

type draftService struct {
	mu    sync.Mutex
	draft *models.Invoice

	repo     repositories.DraftRepository
	notifier NotificationService
	renderer PDFRenderer
	sink     ExportSink
	mailer   InvoiceMailer
	runner   TaskRunner
	cfg      DraftServiceConfig
	log      *logger.Logger
	now      func() time.Time

	// start time in unix nanos of the export holding the guard, 0 when idle
	exportStarted atomic.Int64
}

// NewDraftService creates the draft owner. The draft starts as a fresh
// default until Init is called.
func NewDraftService(
	repo repositories.DraftRepository,
	notifier NotificationService,
	renderer PDFRenderer,
	sink ExportSink,
	mailer InvoiceMailer,
	runner TaskRunner,
	cfg DraftServiceConfig,
	log *logger.Logger,
) DraftService {
	s := &draftService{
		repo:     repo,
		notifier: notifier,
		renderer: renderer,
		sink:     sink,
		mailer:   mailer,
		runner:   runner,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
	if s.cfg.ExportTimeout <= 0 {
		s.cfg.ExportTimeout = defaultExportTimeout
	}
	s.draft = models.NewDefaultInvoice(s.now())
	return s
}

func (s *draftService) Init(ctx context.Context) repositories.LoadResult {
	result := s.repo.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case result.Usable():
		s.draft = result.Invoice
		s.log.Infow("loaded saved invoice", "invoice_id", s.draft.ID, "invoice_number", s.draft.InvoiceNumber)
	case result.Warning != "":
		s.draft = models.NewDefaultInvoice(s.now())
		s.notifier.Notify(models.TitleWarning, result.Warning, models.NotificationVariantDestructive)
	default:
		s.draft = models.NewDefaultInvoice(s.now())
	}

	return result
}

func (s *draftService) Current() *models.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

func (s *draftService) Preview() models.InvoicePreview {
	return BuildPreview(s.Current())
}

func (s *draftService) UpdateDetails(patch models.DetailsPatch) (*models.Invoice, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	patch.ApplyTo(s.draft)
	return s.draft.Clone(), nil
}

func (s *draftService) AddLineItem() (*models.Invoice, models.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.draft.AddLineItem()
	return s.draft.Clone(), item
}

func (s *draftService) UpdateLineItem(id string, field models.LineItemField, value any) (*models.Invoice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.draft.UpdateLineItemField(id, field, value)
	if err != nil {
		return nil, false, err
	}
	return s.draft.Clone(), found, nil
}

func (s *draftService) RemoveLineItem(id string) (*models.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.draft.RemoveLineItem(id)
	return s.draft.Clone(), removed
}

func (s *draftService) SetTaxRate(value any) *models.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.SetTaxRate(value)
	return s.draft.Clone()
}

// Save runs the save gate and then writes the draft. On any failure the
// in-memory draft is left exactly as it was.
func (s *draftService) Save(ctx context.Context) error {
	snapshot := s.Current()

	if err := validator.ValidateForSave(snapshot); err != nil {
		s.notifier.Notify(models.TitleMissingInformation, ierr.DisplayMessage(err), models.NotificationVariantDestructive)
		return err
	}

	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.notifier.Notify(models.TitleError, "Failed to save invoice", models.NotificationVariantDestructive)
		return err
	}

	s.notifier.Notify(models.TitleSuccess, "Invoice saved successfully", models.NotificationVariantDefault)
	return nil
}

// NewInvoice clears the slot and replaces the draft with a fresh default.
// The draft is replaced even if clearing storage fails.
func (s *draftService) NewInvoice(ctx context.Context) (*models.Invoice, error) {
	clearErr := s.repo.Clear(ctx)
	if clearErr != nil {
		s.notifier.Notify(models.TitleError, "Failed to clear invoice data.", models.NotificationVariantDestructive)
	}

	s.mu.Lock()
	s.draft = models.NewDefaultInvoice(s.now())
	fresh := s.draft.Clone()
	s.mu.Unlock()

	s.log.Infow("started new invoice", "invoice_id", fresh.ID, "invoice_number", fresh.InvoiceNumber)
	return fresh, clearErr
}

// RenderPDF renders the current draft synchronously
func (s *draftService) RenderPDF(_ context.Context) (string, []byte, error) {
	snapshot := s.Current()

	data, err := s.renderer.Render(snapshot)
	if err != nil {
		return "", nil, ierr.WithError(err).
			WithHint("Failed to generate PDF").
			Mark(ierr.ErrSystem)
	}
	return s.renderer.FileName(snapshot), data, nil
}

// ExportPDF renders the draft as it is right now and stores it through
// the export sink in the background. Only one export runs at a time.
func (s *draftService) ExportPDF(_ context.Context) error {
	token, ok := s.acquireExport()
	if !ok {
		return ierr.NewError("export already in progress").
			WithHint("A PDF export is already in progress").
			Mark(ierr.ErrInvalidOperation)
	}

	snapshot := s.Current()
	s.notifier.Notify(models.TitleGeneratingPDF, "Please wait...", models.NotificationVariantDefault)

	err := s.runner.RunAfter("export-pdf", s.cfg.ExportDelay, func(ctx context.Context) {
		defer s.releaseExport(token)
		s.exportSnapshot(ctx, snapshot)
	})
	if err != nil {
		s.releaseExport(token)
		s.log.Errorw("failed to schedule pdf export", "invoice_id", snapshot.ID, "error", err)
		s.notifier.Notify(models.TitleError, "Failed to generate PDF", models.NotificationVariantDestructive)
		return ierr.WithError(err).
			WithHint("Failed to generate PDF").
			Mark(ierr.ErrSystem)
	}
	return nil
}

// acquireExport takes the export guard, reclaiming it from an export that
// never finished within its delay plus ExportTimeout. The returned token
// releases only this acquisition.
func (s *draftService) acquireExport() (int64, bool) {
	now := s.now().UnixNano()
	for {
		started := s.exportStarted.Load()
		if started != 0 && time.Duration(now-started) < s.cfg.ExportDelay+s.cfg.ExportTimeout {
			return 0, false
		}
		if s.exportStarted.CompareAndSwap(started, now) {
			if started != 0 {
				s.log.Warnw("reclaimed export guard from an export that never finished",
					"started_at", time.Unix(0, started).UTC())
			}
			return now, true
		}
	}
}

func (s *draftService) releaseExport(token int64) {
	s.exportStarted.CompareAndSwap(token, 0)
}

func (s *draftService) exportSnapshot(ctx context.Context, snapshot *models.Invoice) {
	data, err := s.renderer.Render(snapshot)
	if err != nil {
		s.log.Errorw("failed to render pdf", "invoice_id", snapshot.ID, "error", err)
		s.notifier.Notify(models.TitleError, "Failed to generate PDF", models.NotificationVariantDestructive)
		return
	}

	location, err := s.sink.Put(ctx, s.renderer.FileName(snapshot), data)
	if err != nil {
		s.log.Errorw("failed to store pdf", "invoice_id", snapshot.ID, "error", err)
		s.notifier.Notify(models.TitleError, "Failed to generate PDF", models.NotificationVariantDestructive)
		return
	}

	s.log.Infow("pdf exported", "invoice_id", snapshot.ID, "location", location, "bytes", len(data))
	s.notifier.Notify(models.TitleSuccess, "PDF downloaded successfully", models.NotificationVariantDefault)
}

// SendEmail simulates sending the draft to the client's email address.
// Without a client email it is rejected immediately.
func (s *draftService) SendEmail(_ context.Context) error {
	snapshot := s.Current()

	if snapshot.ClientEmail == "" {
		s.notifier.Notify(models.TitleMissingInformation, "Client email is required to send invoice", models.NotificationVariantDestructive)
		return ErrClientEmailRequired()
	}

	s.notifier.Notify(models.TitleSendingEmail, "Please wait...", models.NotificationVariantDefault)

	err := s.runner.RunAfter("send-email", s.cfg.EmailDelay, func(ctx context.Context) {
		if err := s.mailer.SendInvoice(ctx, snapshot); err != nil {
			s.log.Errorw("failed to send invoice email", "invoice_id", snapshot.ID, "error", err)
			s.notifier.Notify(models.TitleError, "Failed to send invoice", models.NotificationVariantDestructive)
			return
		}
		s.notifier.Notify(models.TitleSuccess, fmt.Sprintf("Invoice sent to %s", snapshot.ClientEmail), models.NotificationVariantDefault)
	})
	if err != nil {
		s.log.Errorw("failed to schedule invoice email", "invoice_id", snapshot.ID, "error", err)
		s.notifier.Notify(models.TitleError, "Failed to send invoice", models.NotificationVariantDestructive)
		return ierr.WithError(err).
			WithHint("Failed to send invoice").
			Mark(ierr.ErrSystem)
	}
	return nil
}
