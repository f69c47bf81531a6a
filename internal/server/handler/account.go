package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegistech/base-markets/internal/catalog"
	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/server/middleware"
)

// AccountService reads balances and moves USDC between wallet and vault.
type AccountService interface {
	Operator() common.Address
	Balances(ctx context.Context, addr common.Address) (domain.Balances, error)
	Deposit(ctx context.Context, amount *big.Int) (domain.Activity, domain.Balances, error)
	Withdraw(ctx context.Context, amount *big.Int) (domain.Activity, domain.Balances, error)
	Activity(ctx context.Context, addr common.Address, opts domain.ListOpts) ([]domain.Activity, error)
}

// AccountHandler serves balance, activity and vault endpoints.
type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger.With(slog.String("handler", "account")),
	}
}

// Balances returns the balances of an address.
// GET /api/accounts/{address}/balances
func (h *AccountHandler) Balances(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	b, err := h.accounts.Balances(r.Context(), addr)
	if err != nil {
		writeServiceError(w, r, h.logger, "balances", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalancesView(b))
}

// Activity lists recorded actions of an address, newest first.
// GET /api/accounts/{address}/activity?limit=50&offset=0
func (h *AccountHandler) Activity(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	opts := parseListOpts(r)
	rows, err := h.accounts.Activity(r.Context(), addr, opts)
	if err != nil {
		writeServiceError(w, r, h.logger, "activity", err)
		return
	}
	out := make([]activityView, len(rows))
	for i, a := range rows {
		out[i] = toActivityView(a)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activity": out,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

type meResponse struct {
	Profile  profileView   `json:"profile"`
	Operator bool          `json:"operator"`
	Balances *balancesView `json:"balances,omitempty"`
}

// Me returns the profile and balances of the logged-in wallet.
// GET /api/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok || p.APIKey {
		writeError(w, http.StatusUnauthorized, "wallet login required")
		return
	}
	resp := meResponse{
		Profile:  toProfileView(catalog.Profile(p.Address)),
		Operator: p.Address == h.accounts.Operator(),
	}
	b, err := h.accounts.Balances(r.Context(), p.Address)
	if err != nil {
		h.logger.WarnContext(r.Context(), "balances unavailable",
			slog.String("address", p.Address.Hex()),
			slog.String("error", err.Error()),
		)
	} else {
		v := toBalancesView(b)
		resp.Balances = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// Deposit moves USDC from the operator wallet into the vault.
// POST /api/account/deposit {"amount":"10"}
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	runAmount(w, r, h.logger, "deposit", h.accounts.Deposit)
}

// Withdraw moves USDC from the vault back to the operator wallet.
// POST /api/account/withdraw {"amount":"10"}
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	runAmount(w, r, h.logger, "withdraw", h.accounts.Withdraw)
}

type amountAction func(ctx context.Context, amount *big.Int) (domain.Activity, domain.Balances, error)

// runAmount decodes the amount body, runs fn and writes the action response.
func runAmount(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, fn amountAction) {
	amt, err := readAmount(r)
	if err != nil {
		writeServiceError(w, r, logger, op, err)
		return
	}
	act, bal, err := fn(r.Context(), amt)
	if err != nil {
		writeServiceError(w, r, logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Activity: toActivityView(act), Balances: toBalancesView(bal)})
}
