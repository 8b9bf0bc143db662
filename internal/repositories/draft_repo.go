package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"invoicer/internal/caching"
	ierr "invoicer/internal/errors"
	"invoicer/internal/logger"
	"invoicer/internal/models"
	"invoicer/internal/validator"
)

// Load diagnostics shown to the user when a saved draft cannot be used
const (
	WarningInvalidDraft = "Saved invoice data is invalid. Starting with a new invoice."
	WarningLoadFailed   = "Failed to load saved invoice. Starting with a new invoice."
)

// LoadStatus tells the caller what was found in the slot
type LoadStatus string

const (
	// LoadStatusEmpty means nothing was saved
	LoadStatusEmpty LoadStatus = "empty"
	// LoadStatusLoaded means a structurally valid draft was read
	LoadStatusLoaded LoadStatus = "loaded"
	// LoadStatusInvalid means the saved draft failed structural validation
	LoadStatusInvalid LoadStatus = "invalid"
	// LoadStatusFailed means the slot could not be read or decoded
	LoadStatusFailed LoadStatus = "failed"
)

// LoadResult is the outcome of reading the slot. Invoice is only set for
// LoadStatusLoaded; invalid data is never handed out.
type LoadResult struct {
	Status     LoadStatus
	Invoice    *models.Invoice
	Warning    string
	Validation validator.Result
	Err        error
}

// Usable reports whether Invoice can be adopted as the live draft
func (r LoadResult) Usable() bool {
	return r.Status == LoadStatusLoaded && r.Invoice != nil
}

// DraftRepository persists the single invoice draft in one named slot
type DraftRepository interface {
	Load(ctx context.Context) LoadResult
	Save(ctx context.Context, invoice *models.Invoice) error
	Clear(ctx context.Context) error
}

type draftRepository struct {
	store caching.SlotStore
	key   string
	log   *logger.Logger
	now   func() time.Time
}

// NewDraftRepository creates a repository over store using key as the slot name
func NewDraftRepository(store caching.SlotStore, key string, log *logger.Logger) DraftRepository {
	return &draftRepository{
		store: store,
		key:   key,
		log:   log,
		now:   time.Now,
	}
}

func (r *draftRepository) Load(ctx context.Context) LoadResult {
	data, found, err := r.store.Get(ctx, r.key)
	if err != nil {
		r.log.Errorw("failed to read invoice slot", "key", r.key, "error", err)
		return LoadResult{Status: LoadStatusFailed, Warning: WarningLoadFailed, Err: markStorage(err, "read invoice slot")}
	}
	if !found {
		return LoadResult{Status: LoadStatusEmpty}
	}

	var record models.InvoiceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		r.log.Errorw("failed to decode saved invoice", "key", r.key, "error", err)
		return LoadResult{Status: LoadStatusFailed, Warning: WarningLoadFailed, Err: markStorage(err, "decode saved invoice")}
	}

	record.Normalize(r.now())

	result := validator.ValidateStructure(&record)
	if !result.Valid() {
		r.log.Warnw("saved invoice failed validation", "key", r.key, "errors", result.Summary())
		return LoadResult{
			Status:     LoadStatusInvalid,
			Warning:    WarningInvalidDraft,
			Validation: result,
			Err:        result.Err(),
		}
	}

	return LoadResult{Status: LoadStatusLoaded, Invoice: record.ToInvoice()}
}

func (r *draftRepository) Save(ctx context.Context, invoice *models.Invoice) error {
	if invoice == nil {
		return ierr.NewError("invoice is nil").Mark(ierr.ErrValidation)
	}

	data, err := json.Marshal(invoice)
	if err != nil {
		r.log.Errorw("failed to serialize invoice", "invoice_id", invoice.ID, "error", err)
		return markStorage(err, "serialize invoice")
	}

	if err := r.store.Set(ctx, r.key, data); err != nil {
		r.log.Errorw("failed to write invoice slot", "key", r.key, "invoice_id", invoice.ID, "error", err)
		return markStorage(err, "write invoice slot")
	}

	r.log.Debugw("invoice saved", "key", r.key, "invoice_id", invoice.ID, "bytes", len(data))
	return nil
}

func (r *draftRepository) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, r.key); err != nil {
		r.log.Errorw("failed to clear invoice slot", "key", r.key, "error", err)
		return markStorage(err, "clear invoice slot")
	}
	return nil
}

func markStorage(err error, op string) error {
	hint := "Failed to access saved invoice data"
	if errors.Is(err, caching.ErrQuotaExceeded) {
		hint = "Storage quota exceeded"
	}
	return ierr.WithError(err).
		WithMessage(op).
		WithHint(hint).
		Mark(ierr.ErrStorage)
}
