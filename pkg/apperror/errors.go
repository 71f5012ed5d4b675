package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// AppError is a structured error that maps to HTTP responses and CLI messages.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Error codes.
const (
	CodeValidation         = "VAL_001"
	CodeInvalidAmount      = "TRD_001"
	CodeInsufficientFunds  = "TRD_002"
	CodeWalletNotFound     = "TRD_003"
	CodeCurrencyNotFound   = "CUR_001"
	CodeRateNotFound       = "RATE_001"
	CodeUnknownSource      = "RATE_002"
	CodeAPIRequest         = "API_001"
	CodeInvalidCredentials = "AUTH_001"
	CodeUsernameExists     = "AUTH_002"
	CodeInvalidToken       = "AUTH_003"
	CodePermissionDenied   = "AUTH_004"
	CodeRateLimitExceeded  = "LIMIT_001"
	CodeInternal           = "SYS_001"
)

// ---- Trading (TRD) ----

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "'amount' must be a positive number", http.StatusBadRequest)
}

// ErrInsufficientFunds reports both sides of the failed check in the wallet's currency.
func ErrInsufficientFunds(code string, available, required decimal.Decimal) *AppError {
	e := New(CodeInsufficientFunds,
		fmt.Sprintf("Insufficient funds: available %s %s, required %s %s", available, code, required, code),
		http.StatusPaymentRequired)
	e.Details = map[string]any{
		"currency":  code,
		"available": available.String(),
		"required":  required.String(),
	}
	return e
}

func ErrWalletNotFound(code string) *AppError {
	e := New(CodeWalletNotFound, fmt.Sprintf("You have no '%s' wallet", code), http.StatusNotFound)
	e.Details = map[string]any{"currency": code}
	return e
}

// ---- Currencies & rates (CUR, RATE, API) ----

func ErrCurrencyNotFound(code string) *AppError {
	e := New(CodeCurrencyNotFound, fmt.Sprintf("Unknown currency '%s'", code), http.StatusNotFound)
	e.Details = map[string]any{"currency": code}
	return e
}

func ErrRateNotFound(pair string) *AppError {
	e := New(CodeRateNotFound,
		fmt.Sprintf("Rate for '%s' not found, run update-rates to refresh the cache", pair),
		http.StatusNotFound)
	e.Details = map[string]any{"pair": pair}
	return e
}

func ErrUnknownSource(name string) *AppError {
	e := New(CodeUnknownSource, fmt.Sprintf("Unknown rate source '%s'", name), http.StatusBadRequest)
	e.Details = map[string]any{"source": name}
	return e
}

// ErrAPIRequest is the single error kind rate sources return, and the stale-cache signal.
func ErrAPIRequest(reason string) *AppError {
	e := New(CodeAPIRequest, "External API request failed: "+reason, http.StatusServiceUnavailable)
	e.Details = map[string]any{"reason": reason}
	return e
}

// Reason extracts the reason of an API_001 error, or the error text otherwise.
func Reason(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == CodeAPIRequest {
		if r, ok := appErr.Details["reason"].(string); ok {
			return r
		}
	}
	return err.Error()
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid username or password", http.StatusUnauthorized)
}

func ErrUsernameExists(username string) *AppError {
	return New(CodeUsernameExists, fmt.Sprintf("Username '%s' is already taken", username), http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrPermissionDenied() *AppError {
	return New(CodePermissionDenied, "Log in first", http.StatusUnauthorized)
}

// ---- Rate Limiting (LIMIT) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}
