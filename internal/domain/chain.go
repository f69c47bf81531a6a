package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer signs transactions for one address.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// TxStatus is the receipt status of a mined transaction.
type TxStatus string

const (
	TxSuccess  TxStatus = "success"
	TxReverted TxStatus = "reverted"
)

// TxResult describes a mined transaction.
type TxResult struct {
	Hash        common.Hash
	BlockNumber uint64
	Status      TxStatus
}

// Ledger reads balances from the contracts.
type Ledger interface {
	WalletBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	VaultBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	Staked(ctx context.Context, addr common.Address) (*big.Int, error)
	PendingUnstake(ctx context.Context, addr common.Address) (PendingUnstake, error)
	PendingRewards(ctx context.Context, addr common.Address) (*big.Int, error)
}

// Contracts is the full external interface: reads plus the state-changing
// calls made on behalf of the signer. Each write blocks until mined.
type Contracts interface {
	Ledger
	Deposit(ctx context.Context, amount *big.Int) (TxResult, error)
	Withdraw(ctx context.Context, amount *big.Int) (TxResult, error)
	BuyShares(ctx context.Context, marketID *big.Int, outcome Outcome, amount *big.Int) (TxResult, error)
	Stake(ctx context.Context, amount *big.Int) (TxResult, error)
	RequestUnstake(ctx context.Context, amount *big.Int) (TxResult, error)
	CompleteUnstake(ctx context.Context) (TxResult, error)
	ClaimRewards(ctx context.Context) (TxResult, error)
	// Account is the address the writes act for.
	Account() common.Address
}
