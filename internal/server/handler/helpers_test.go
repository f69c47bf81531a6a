package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aegistech/base-markets/internal/domain"
)

func TestStatusFor(t *testing.T) {
	reverted := fmt.Errorf("service: deposit: %w",
		fmt.Errorf("approve deposit: %w", fmt.Errorf("%w: approve reverted in tx 0xabc", domain.ErrChain)))

	tests := []struct {
		err  error
		want int
	}{
		{reverted, http.StatusBadGateway},
		{fmt.Errorf("wrap: %w", domain.ErrInvalidAmount), http.StatusBadRequest},
		{domain.ErrNonceExpired, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrActionInFlight, http.StatusConflict},
		{domain.ErrNotClaimable, http.StatusConflict},
		{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrWalletUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
