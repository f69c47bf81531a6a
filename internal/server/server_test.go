package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachemem "github.com/aegistech/base-markets/internal/cache/memory"
	"github.com/aegistech/base-markets/internal/chain/sim"
	"github.com/aegistech/base-markets/internal/crypto"
	"github.com/aegistech/base-markets/internal/money"
	"github.com/aegistech/base-markets/internal/server"
	"github.com/aegistech/base-markets/internal/server/handler"
	"github.com/aegistech/base-markets/internal/service"
	storemem "github.com/aegistech/base-markets/internal/store/memory"
)

// Hardhat account #0.
const operatorKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const apiKey = "test-api-key"

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type testAPI struct {
	srv      *httptest.Server
	operator *crypto.Wallet
	auth     *service.AuthService
}

func newTestAPI(t *testing.T, limit int) *testAPI {
	t.Helper()
	return buildTestAPI(t, limit, true)
}

// buildTestAPI serves a simulated chain. Without withWallet the service runs
// read-only, as it does when no operator key is configured.
func buildTestAPI(t *testing.T, limit int, withWallet bool) *testAPI {
	t.Helper()
	key, err := crypto.ParseKey(operatorKey)
	require.NoError(t, err)
	wallet := crypto.NewWallet(key)

	var operator common.Address
	if withWallet {
		operator = wallet.Address()
	}

	faucet, err := money.ParseUSDC("1000")
	require.NoError(t, err)
	chain := sim.New(sim.Options{Account: operator, Faucet: faucet, APY: 0.125})

	log := discard()
	activity := storemem.NewActivityStore()
	runner := service.NewActionRunner(service.RunnerDeps{
		Account:  chain.Account(),
		Locks:    cachemem.NewLockManager(),
		Activity: activity,
		Audit:    storemem.NewAuditStore(100),
		Bus:      cachemem.NewSignalBus(100),
		Timeout:  5 * time.Second,
	}, log)
	accounts := service.NewAccountService(chain, nil, activity, runner, log)
	markets := service.NewMarketService(nil, nil, log)
	trades := service.NewTradeService(markets, chain, runner, accounts, log)
	staking := service.NewStakingService(chain, accounts, runner, service.DefaultStakingParams(), log)
	board := service.NewBoardService(nil, nil, nil, markets, log)
	auth := service.NewAuthService(cachemem.NewNonceStore(), service.AuthConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Issuer: "basemarkets",
	}, log)

	s := server.NewServer(server.Config{
		APIKey:        apiKey,
		RatePerMinute: limit,
		Operator:      operator,
	}, server.Handlers{
		Health:   handler.NewHealthHandler(nil, log),
		Status:   handler.NewStatusHandler(handler.StatusInfo{Mode: "server", ChainMode: "sim", Operator: operator, StartedAt: time.Now()}),
		Auth:     handler.NewAuthHandler(auth, log),
		Markets:  handler.NewMarketHandler(markets, trades, board, log),
		Accounts: handler.NewAccountHandler(accounts, log),
		Staking:  handler.NewStakingHandler(staking, log),
		Board:    handler.NewBoardHandler(board, log),
	}, nil, auth, cachemem.NewRateLimiter(), log)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testAPI{srv: ts, operator: wallet, auth: auth}
}

func (a *testAPI) do(t *testing.T, method, path, body string, header http.Header) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// login runs the nonce/verify flow for w and returns a bearer header.
func (a *testAPI) login(t *testing.T, w *crypto.Wallet) http.Header {
	t.Helper()
	code, ch := a.do(t, http.MethodPost, "/api/auth/nonce", `{"address":"`+w.Address().Hex()+`"}`, nil)
	require.Equal(t, http.StatusOK, code)

	sig, err := w.SignPersonal([]byte(ch["message"].(string)))
	require.NoError(t, err)
	body := `{"address":"` + w.Address().Hex() + `","signature":"` + hexutil.Encode(sig) + `"}`
	code, sess := a.do(t, http.MethodPost, "/api/auth/verify", body, nil)
	require.Equal(t, http.StatusOK, code, sess)

	return http.Header{"Authorization": {"Bearer " + sess["token"].(string)}}
}

func apiKeyHeader() http.Header { return http.Header{"X-Api-Key": {apiKey}} }

func TestPublicReads(t *testing.T) {
	api := newTestAPI(t, 0)

	code, body := api.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = api.do(t, http.MethodGet, "/api/markets", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["markets"])

	code, body = api.do(t, http.MethodGet, "/api/markets/1", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1", body["id"])

	code, _ = api.do(t, http.MethodGet, "/api/markets/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = api.do(t, http.MethodGet, "/api/markets/1/quote?outcome=YES&amount=10", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1", body["marketId"])

	code, _ = api.do(t, http.MethodGet, "/api/markets/1/quote?outcome=MAYBE&amount=10", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = api.do(t, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["read_only"])
	assert.Equal(t, "sim", body["chain_mode"])

	for _, path := range []string{"/api/leaderboard?limit=3", "/api/news", "/api/ticker"} {
		code, _ = api.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, code, path)
	}
}

func TestAccountReadsValidateAddress(t *testing.T) {
	api := newTestAPI(t, 0)
	addr := api.operator.Address().Hex()

	code, body := api.do(t, http.MethodGet, "/api/accounts/"+addr+"/balances", "", nil)
	require.Equal(t, http.StatusOK, code)
	wallet := body["wallet"].(map[string]any)
	assert.Equal(t, "1000", wallet["value"])

	code, body = api.do(t, http.MethodGet, "/api/accounts/"+addr+"/unstake", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "none", body["phase"])
	assert.Equal(t, false, body["pending"])

	code, _ = api.do(t, http.MethodGet, "/api/accounts/0xnothex/balances", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTransactionsRequireAuth(t *testing.T) {
	api := newTestAPI(t, 0)

	code, body := api.do(t, http.MethodPost, "/api/account/deposit", `{"amount":"10"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.NotEmpty(t, body["error"])

	code, _ = api.do(t, http.MethodPost, "/api/account/deposit", `{"amount":"10"}`,
		http.Header{"Authorization": {"Bearer not-a-token"}})
	assert.Equal(t, http.StatusUnauthorized, code)

	// A logged-in wallet that is not the operator may read /api/me but not act.
	other, err := crypto.GenerateWallet()
	require.NoError(t, err)
	hdr := api.login(t, other)

	code, body = api.do(t, http.MethodGet, "/api/me", "", hdr)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["operator"])

	code, _ = api.do(t, http.MethodPost, "/api/staking/stake", `{"amount":"10"}`, hdr)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestOperatorFlow(t *testing.T) {
	api := newTestAPI(t, 0)
	hdr := api.login(t, api.operator)

	code, body := api.do(t, http.MethodGet, "/api/me", "", hdr)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["operator"])

	code, body = api.do(t, http.MethodPost, "/api/account/deposit", `{"amount":"100"}`, hdr)
	require.Equal(t, http.StatusOK, code, body)
	bal := body["balances"].(map[string]any)
	assert.Equal(t, "900", bal["wallet"].(map[string]any)["value"])
	assert.Equal(t, "100", bal["vault"].(map[string]any)["value"])

	code, _ = api.do(t, http.MethodPost, "/api/account/withdraw", `{"amount":"500"}`, hdr)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = api.do(t, http.MethodPost, "/api/account/deposit", `{"amount":"-1"}`, hdr)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(t, http.MethodPost, "/api/staking/stake", `{"amount":"50"}`, hdr)
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do(t, http.MethodPost, "/api/staking/unstake", `{"amount":"20"}`, hdr)
	require.Equal(t, http.StatusOK, code)

	// Still inside the lock period.
	code, _ = api.do(t, http.MethodPost, "/api/staking/complete", "", hdr)
	assert.Equal(t, http.StatusConflict, code)

	addr := api.operator.Address().Hex()
	code, body = api.do(t, http.MethodGet, "/api/accounts/"+addr+"/unstake", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "locked", body["phase"])
	assert.Equal(t, true, body["showCountdown"])
	assert.Equal(t, "20", body["amount"].(map[string]any)["value"])

	code, body = api.do(t, http.MethodPost, "/api/markets/2/buy", `{"outcome":"NO","amount":"25"}`, apiKeyHeader())
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "buy_shares", body["activity"].(map[string]any)["kind"])

	code, body = api.do(t, http.MethodGet, "/api/accounts/"+addr+"/activity?limit=10", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["activity"], 4)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t, 0)
	code, _ := api.do(t, http.MethodPost, "/api/account/deposit", `{"amount":"1","to":"x"}`, apiKeyHeader())
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, 2)
	for range 2 {
		code, _ := api.do(t, http.MethodGet, "/api/health", "", nil)
		require.Equal(t, http.StatusOK, code)
	}
	code, _ := api.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, 0)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, api.srv.URL+"/api/account/deposit", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Less(t, resp.StatusCode, 300)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNoWalletIsUnavailable(t *testing.T) {
	api := buildTestAPI(t, 0, false)
	user, err := crypto.GenerateWallet()
	require.NoError(t, err)
	bearer := api.login(t, user)

	for _, h := range []http.Header{bearer, apiKeyHeader()} {
		code, body := api.do(t, http.MethodPost, "/api/account/deposit", `{"amount":"10"}`, h)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "wallet not connected", body["error"])
	}

	code, body := api.do(t, http.MethodPost, "/api/staking/complete", "", bearer)
	assert.Equal(t, http.StatusServiceUnavailable, code, body)

	code, body = api.do(t, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["read_only"])

	code, _ = api.do(t, http.MethodGet, "/api/me", "", bearer)
	assert.Equal(t, http.StatusOK, code)
}
