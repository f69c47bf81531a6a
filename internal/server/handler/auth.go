package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegistech/base-markets/internal/service"
)

// AuthService issues login challenges and tokens.
type AuthService interface {
	Nonce(ctx context.Context, addr common.Address) (service.Challenge, error)
	Verify(ctx context.Context, addr common.Address, sig string) (service.Session, error)
}

// AuthHandler serves the wallet login endpoints.
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger.With(slog.String("handler", "auth"))}
}

type nonceRequest struct {
	Address string `json:"address"`
}

// Nonce returns the message the wallet must sign.
// POST /api/auth/nonce {"address":"0x..."}
func (h *AuthHandler) Nonce(w http.ResponseWriter, r *http.Request) {
	var req nonceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !common.IsHexAddress(req.Address) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	ch, err := h.auth.Nonce(r.Context(), common.HexToAddress(req.Address))
	if err != nil {
		writeServiceError(w, r, h.logger, "nonce", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address":   ch.Address.Hex(),
		"nonce":     ch.Nonce,
		"message":   ch.Message,
		"issuedAt":  ch.IssuedAt.Format(time.RFC3339),
		"expiresAt": ch.ExpiresAt.Format(time.RFC3339),
	})
}

type verifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// Verify checks the signed challenge and returns a session token.
// POST /api/auth/verify {"address":"0x...","signature":"0x..."}
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !common.IsHexAddress(req.Address) || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "address and signature are required")
		return
	}

	sess, err := h.auth.Verify(r.Context(), common.HexToAddress(req.Address), req.Signature)
	if err != nil {
		writeServiceError(w, r, h.logger, "verify", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     sess.Token,
		"expiresAt": sess.ExpiresAt.UTC().Format(time.RFC3339),
		"profile":   toProfileView(sess.Profile),
	})
}
