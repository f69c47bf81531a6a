package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/service"
	"github.com/aegistech/base-markets/internal/unstake"
)

// StakingService reads positions and runs the staking actions.
type StakingService interface {
	Unstake(ctx context.Context, addr common.Address) (domain.PendingUnstake, unstake.Status, error)
	Position(ctx context.Context, addr common.Address) (service.StakingPosition, error)
	Stake(ctx context.Context, amount *big.Int) (domain.Activity, domain.Balances, error)
	RequestUnstake(ctx context.Context, amount *big.Int) (domain.Activity, domain.Balances, error)
	CompleteUnstake(ctx context.Context) (domain.Activity, domain.Balances, error)
	ClaimRewards(ctx context.Context) (domain.Activity, domain.Balances, error)
}

// StakingHandler serves the staking pool endpoints.
type StakingHandler struct {
	staking StakingService
	logger  *slog.Logger
}

// NewStakingHandler creates a StakingHandler.
func NewStakingHandler(staking StakingService, logger *slog.Logger) *StakingHandler {
	return &StakingHandler{
		staking: staking,
		logger:  logger.With(slog.String("handler", "staking")),
	}
}

// Unstake returns the lock status of the pending unstake of an address.
// GET /api/accounts/{address}/unstake
func (h *StakingHandler) Unstake(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	p, st, err := h.staking.Unstake(r.Context(), addr)
	if err != nil {
		writeServiceError(w, r, h.logger, "unstake status", err)
		return
	}
	writeJSON(w, http.StatusOK, toUnstakeView(p, st))
}

// Position returns the staking view of an address.
// GET /api/accounts/{address}/staking
func (h *StakingHandler) Position(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	pos, err := h.staking.Position(r.Context(), addr)
	if err != nil {
		writeServiceError(w, r, h.logger, "staking position", err)
		return
	}
	writeJSON(w, http.StatusOK, toStakingView(pos))
}

// Stake stakes USDC from the operator wallet.
// POST /api/staking/stake {"amount":"10"}
func (h *StakingHandler) Stake(w http.ResponseWriter, r *http.Request) {
	runAmount(w, r, h.logger, "stake", h.staking.Stake)
}

// RequestUnstake starts the 3-day lock on staked USDC.
// POST /api/staking/unstake {"amount":"10"}
func (h *StakingHandler) RequestUnstake(w http.ResponseWriter, r *http.Request) {
	runAmount(w, r, h.logger, "request unstake", h.staking.RequestUnstake)
}

// CompleteUnstake withdraws an unlocked request.
// POST /api/staking/complete
func (h *StakingHandler) CompleteUnstake(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "complete unstake", h.staking.CompleteUnstake)
}

// ClaimRewards collects accrued rewards.
// POST /api/staking/claim
func (h *StakingHandler) ClaimRewards(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "claim rewards", h.staking.ClaimRewards)
}

func (h *StakingHandler) run(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context) (domain.Activity, domain.Balances, error)) {
	act, bal, err := fn(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Activity: toActivityView(act), Balances: toBalancesView(bal)})
}
