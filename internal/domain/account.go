package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UserProfile is the social profile shown for a connected wallet.
type UserProfile struct {
	FID           int64
	Username      string
	PfpURL        string
	WalletAddress string
	Points        int64
}

// Balances mirrors the external balances of one address, in USDC base units.
type Balances struct {
	Address        common.Address
	Wallet         *big.Int
	Vault          *big.Int
	Staked         *big.Int
	PendingRewards *big.Int
}

// ZeroBalances returns a Balances for addr with every amount set to zero.
func ZeroBalances(addr common.Address) Balances {
	return Balances{
		Address:        addr,
		Wallet:         new(big.Int),
		Vault:          new(big.Int),
		Staked:         new(big.Int),
		PendingRewards: new(big.Int),
	}
}
