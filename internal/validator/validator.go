package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	ierr "invoicer/internal/errors"
	"invoicer/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// GetValidator returns the shared validator, reporting fields by their
// JSON names.
func GetValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// FieldError is one failed constraint
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of structural validation. It is a value, not an
// error, so callers decide how to degrade.
type Result struct {
	Errors []FieldError `json:"errors,omitempty"`
}

func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Summary joins all field messages into one diagnostic line
func (r Result) Summary() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

// Err converts a failed result into an error marked as a validation
// error; nil when the result is valid.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}

	details := make(map[string]any, len(r.Errors))
	for _, e := range r.Errors {
		details[e.Field] = e.Message
	}
	return ierr.NewError("invoice failed structural validation").
		WithMessage(r.Summary()).
		WithHint("Invoice data is invalid").
		WithReportableDetails(details).
		Mark(ierr.ErrValidation)
}

// ValidateStructure checks every field of a persisted invoice against the
// schema: required text, email syntax, canonical dates, quantity >= 1,
// price >= 0 and a tax rate within [0, 100]. An empty item list passes.
func ValidateStructure(record *models.InvoiceRecord) Result {
	if record == nil {
		return Result{Errors: []FieldError{{Field: "invoice", Message: "is missing"}}}
	}

	err := GetValidator().Struct(record)
	if err == nil {
		return Result{}
	}

	var validationErrs validator.ValidationErrors
	if !ierr.As(err, &validationErrs) {
		return Result{Errors: []FieldError{{Field: "invoice", Message: err.Error()}}}
	}

	result := Result{Errors: make([]FieldError, 0, len(validationErrs))}
	for _, fe := range validationErrs {
		result.Errors = append(result.Errors, FieldError{
			Field:   fieldPath(fe),
			Message: describe(fe),
		})
	}
	return result
}

// fieldPath drops the struct name from the namespace:
// "InvoiceRecord.lineItems[0].price" becomes "lineItems[0].price".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
