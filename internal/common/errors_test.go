package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestUserMessageKeepsKindsDistinct(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no route", ErrNoRouteFound, "no route"},
		{"insufficient liquidity", ErrInsufficientLiquidity, "insufficient liquidity"},
		{"wrapped liquidity", fmt.Errorf("plan: %w", ErrInsufficientLiquidity), "insufficient liquidity"},
		{"sponsor", fmt.Errorf("load: %w", ErrRelayUnauthorized), "sponsor unavailable - you will pay network fees"},
		{"lagging node", fmt.Errorf("%w: %w", ErrRelayUnauthorized, ErrNotReady), "quote is not ready yet"},
		{"slippage", ErrInvalidSlippage, "slippage must be between 0 and 9999 bps"},
		{"amount", ErrInvalidAmount, "invalid amount"},
	}

	seen := make(map[string]string)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if got != tt.want {
				t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
		seen[tt.want] = tt.name
	}
	if len(seen) != len(tests)-1 {
		t.Errorf("expected %d distinct messages, got %d", len(tests)-1, len(seen))
	}
}

func TestInsufficientLiquidityIsNoRoute(t *testing.T) {
	if !errors.Is(ErrInsufficientLiquidity, ErrNoRouteFound) {
		t.Error("insufficient liquidity should match ErrNoRouteFound")
	}
	if errors.Is(ErrNoRouteFound, ErrInsufficientLiquidity) {
		t.Error("plain no route must not match insufficient liquidity")
	}
	if !errors.Is(ErrInvalidSlippage, ErrInvalidAmount) {
		t.Error("invalid slippage should be an input validation failure")
	}
}

func TestHTTPErrorFrom(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrNoRouteFound, http.StatusNotFound},
		{ErrInvalidSlippage, http.StatusBadRequest},
		{ErrRelayUnauthorized, http.StatusServiceUnavailable},
		{ErrStaleContext, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPErrorFrom(tt.err).StatusCode; got != tt.status {
			t.Errorf("HTTPErrorFrom(%v) status = %d, want %d", tt.err, got, tt.status)
		}
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("plan: %w", ErrInsufficientLiquidity), "insufficient_liquidity"},
		{ErrNoRouteFound, "no_route"},
		{ErrInvalidSlippage, "invalid_amount"},
		{ErrSuperseded, "superseded"},
		{fmt.Errorf("%w: %w", ErrRelayUnauthorized, ErrNotReady), "not_ready"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
