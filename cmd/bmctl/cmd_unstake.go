package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/aegistech/base-markets/internal/chain"
	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/money"
	"github.com/aegistech/base-markets/internal/unstake"
)

var unstakeAt string

var unstakeStatusCmd = &cobra.Command{
	Use:   "unstake-status <address>",
	Short: "Show the unstake lock of a wallet",
	Long: `Read getPendingUnstake for the address from the configured RPC node and
evaluate the lock. --at evaluates at another instant (RFC3339).`,
	Args: cobra.ExactArgs(1),
	RunE: runUnstakeStatus,
}

func init() {
	unstakeStatusCmd.Flags().StringVar(&unstakeAt, "at", "", "evaluate at this RFC3339 time instead of now")
}

func runUnstakeStatus(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("%q is not a hex address", args[0])
	}
	addr := common.HexToAddress(args[0])

	now := time.Now()
	if unstakeAt != "" {
		t, err := time.Parse(time.RFC3339, unstakeAt)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		now = t
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Simulated() {
		return errors.New("unstake-status reads a live node; set chain.mode = \"rpc\"")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	client, err := chain.Dial(ctx, cfg.Chain.RPCURL, int64(cfg.Chain.ChainID))
	if err != nil {
		return err
	}
	defer client.Close()

	gw, err := chain.NewGateway(client.Backend(), client.ChainID(), nil, chain.Addresses{
		Vault:   common.HexToAddress(cfg.Chain.VaultAddress),
		Staking: common.HexToAddress(cfg.Chain.StakingAddress),
		Market:  common.HexToAddress(cfg.Chain.MarketAddress),
		USDC:    common.HexToAddress(cfg.Chain.USDCAddress),
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	gw.LoadDecimals(ctx)

	p, err := gw.PendingUnstake(ctx, addr)
	if err != nil {
		return err
	}
	printUnstake(cmd.OutOrStdout(), addr, p, now)
	return nil
}

// printUnstake writes the evaluated lock of p at now.
func printUnstake(w io.Writer, addr common.Address, p domain.PendingUnstake, now time.Time) {
	st := unstake.Evaluate(p, now)

	fmt.Fprintf(w, "wallet:   %s\n", addr.Hex())
	fmt.Fprintf(w, "phase:    %s\n", st.Phase)
	if !st.Pending {
		return
	}
	fmt.Fprintf(w, "amount:   %s USDC\n", money.FormatUSDC(p.Amount))
	if !st.UnlockAt.IsZero() {
		fmt.Fprintf(w, "unlocks:  %s\n", st.UnlockAt.Format(time.RFC3339))
	}
	if st.ShowCountdown {
		fmt.Fprintf(w, "left:     %dd (%dh)\n", st.DaysLeft, st.HoursLeft)
	}
	fmt.Fprintf(w, "withdraw: %t\n", st.CanWithdraw)
}
