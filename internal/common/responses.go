package common

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	ierr "invoicer/internal/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendError maps a marked domain error to its status code and sends the
// user-facing hint as the message.
func SendError(c echo.Context, err error) error {
	status := ierr.HTTPStatusFromErr(err)

	code := "SERVER_ERROR"
	switch {
	case ierr.IsValidation(err):
		code = "VALIDATION_ERROR"
	case ierr.IsNotFound(err):
		code = "NOT_FOUND"
	case ierr.IsInvalidOperation(err):
		code = "CONFLICT"
	case ierr.IsStorage(err):
		code = "STORAGE_ERROR"
	}

	return c.JSON(status, CreateErrorResponse(code, ierr.DisplayMessage(err), nil))
}
