package handler

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// StatusInfo describes the running instance.
type StatusInfo struct {
	Mode      string
	ChainMode string
	ChainID   int
	Operator  common.Address
	StartedAt time.Time
	// TickerFallback reports whether the ticker is serving fallback prices.
	TickerFallback func() bool
}

// StatusHandler serves the backend status for the dashboard.
type StatusHandler struct {
	info StatusInfo
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(info StatusInfo) *StatusHandler {
	return &StatusHandler{info: info}
}

// GetStatus responds with the run mode, chain backend and operator wallet.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	readOnly := h.info.Operator == (common.Address{})
	resp := map[string]any{
		"mode":           h.info.Mode,
		"chain_mode":     h.info.ChainMode,
		"chain_id":       h.info.ChainID,
		"read_only":      readOnly,
		"uptime_seconds": int64(time.Since(h.info.StartedAt).Seconds()),
	}
	if !readOnly {
		resp["operator"] = h.info.Operator.Hex()
	}
	if h.info.TickerFallback != nil {
		resp["ticker_fallback"] = h.info.TickerFallback()
	}
	writeJSON(w, http.StatusOK, resp)
}
