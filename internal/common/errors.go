// Package common provides shared utilities used across all features
package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the planning core. Callers match them with errors.Is.
var (
	ErrNoRouteFound          = errors.New("no route found")
	ErrInsufficientLiquidity = fmt.Errorf("%w: insufficient liquidity", ErrNoRouteFound)
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidSlippage       = fmt.Errorf("%w: slippage must be in [0, 10000) bps", ErrInvalidAmount)
	ErrInvalidToken          = errors.New("token cannot be swapped")
	ErrRelayUnauthorized     = errors.New("fee relay unauthorized or unavailable")
	ErrStaleContext          = errors.New("relay context is stale")
	ErrAccountAnalysisFailed = errors.New("account analysis failed")
	ErrNotReady              = errors.New("data not available yet")
	ErrSuperseded            = errors.New("plan superseded by a newer request")
)

// UserMessage maps an error to the message shown to the user.
// Distinct failure kinds never collapse into a single generic message. A relay failure
// caused by data that is not available yet reads as "not ready", not as a missing sponsor.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientLiquidity):
		return "insufficient liquidity"
	case errors.Is(err, ErrNoRouteFound):
		return "no route"
	case errors.Is(err, ErrInvalidSlippage):
		return "slippage must be between 0 and 9999 bps"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid amount"
	case errors.Is(err, ErrInvalidToken):
		return "token cannot be swapped"
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
		return "quote is not ready yet"
	case errors.Is(err, ErrRelayUnauthorized):
		return "sponsor unavailable - you will pay network fees"
	case errors.Is(err, ErrStaleContext):
		return "fee information changed, please review the swap again"
	case errors.Is(err, ErrAccountAnalysisFailed):
		return "could not check your token accounts, try again"
	default:
		return "internal error"
	}
}

// ErrorKind returns a short label for err, used as a metrics label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, ErrNoRouteFound):
		return "no_route"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrRelayUnauthorized):
		return "relay_unauthorized"
	case errors.Is(err, ErrStaleContext):
		return "stale_context"
	case errors.Is(err, ErrAccountAnalysisFailed):
		return "account_analysis_failed"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// HttpError represents an HTTP error with status code and message
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

// HTTP Error constructors

func HTTPErrorBadRequest(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    messageOrDefault(msg, "Bad request"),
	}
}

func HTTPErrorNotFound(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    messageOrDefault(msg, "Not found"),
	}
}

func HTTPErrorInternalError(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    messageOrDefault(msg, "Internal server error"),
	}
}

func HTTPErrorResourceConflict(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusConflict,
		Code:       "RESOURCE_CONFLICT",
		Message:    messageOrDefault(msg, "Resource conflict"),
	}
}

func HTTPErrorUnprocessable(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "UNPROCESSABLE",
		Message:    messageOrDefault(msg, "Unprocessable"),
	}
}

func HTTPErrorUnavailable(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    messageOrDefault(msg, "Service unavailable"),
	}
}

// HTTPErrorFrom converts a planning error into an HttpError carrying the user message.
func HTTPErrorFrom(err error) *HttpError {
	msg := UserMessage(err)
	switch {
	case errors.Is(err, ErrNoRouteFound):
		return HTTPErrorNotFound(msg)
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidToken):
		return HTTPErrorBadRequest(msg)
	case errors.Is(err, ErrStaleContext), errors.Is(err, ErrSuperseded):
		return HTTPErrorResourceConflict(msg)
	case errors.Is(err, ErrRelayUnauthorized), errors.Is(err, ErrAccountAnalysisFailed), errors.Is(err, ErrNotReady):
		return HTTPErrorUnavailable(msg)
	default:
		return HTTPErrorInternalError(msg)
	}
}
