package report

import (
	"errors"
	"net/http"
)

type ErrorCode string

const (
	ErrInvalidRange            ErrorCode = "INVALID_RANGE"
	ErrInvalidPeriod           ErrorCode = "INVALID_PERIOD"
	ErrCustomRangeRequired     ErrorCode = "CUSTOM_RANGE_REQUIRED"
	ErrDataFetch               ErrorCode = "DATA_FETCH_FAILED"
	ErrExportFailure           ErrorCode = "EXPORT_FAILED"
	ErrPaymentMethodAlreadySet ErrorCode = "PAYMENT_METHOD_ALREADY_SET"
	ErrInvalidPaymentMethod    ErrorCode = "INVALID_PAYMENT_METHOD"
	ErrOrderNotFound           ErrorCode = "ORDER_NOT_FOUND"
	ErrInvalidFormat           ErrorCode = "INVALID_FORMAT"
)

type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    map[string]any
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, status int, details map[string]any) *Error {
	return &Error{Code: code, Message: message, StatusCode: status, Details: details}
}

func ValidationError(code ErrorCode, message string, details map[string]any) *Error {
	return newError(code, message, http.StatusBadRequest, details)
}

func NotFoundError(code ErrorCode, message string) *Error {
	return newError(code, message, http.StatusNotFound, nil)
}

func ConflictError(code ErrorCode, message string, details map[string]any) *Error {
	return newError(code, message, http.StatusConflict, details)
}

// DataFetchError marks a source failure. No partial report is produced.
func DataFetchError(err error) *Error {
	e := newError(ErrDataFetch, "Failed to fetch order data", http.StatusBadGateway, nil)
	e.Err = err
	return e
}

// ExportError marks a sink failure. Aggregation state is never touched by a
// sink, so the caller may retry the export as is.
func ExportError(err error) *Error {
	e := newError(ErrExportFailure, "Failed to export report", http.StatusInternalServerError, nil)
	e.Err = err
	return e
}

func IsCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
