package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ERC20ABI covers the USDC calls the service makes.
const ERC20ABI = `[
 {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

// VaultABI is the deposit vault.
const VaultABI = `[
 {"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"asset","type":"string"},{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"getBalance","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"asset","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"adminWithdraw","stateMutability":"nonpayable","inputs":[{"name":"asset","type":"string"}],"outputs":[]}
]`

// StakingABI is the staking pool with its unstake lock.
const StakingABI = `[
 {"type":"function","name":"stake","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"requestUnstake","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"completeUnstake","stateMutability":"nonpayable","inputs":[],"outputs":[]},
 {"type":"function","name":"claimRewards","stateMutability":"nonpayable","inputs":[],"outputs":[]},
 {"type":"function","name":"getStaked","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"getPendingUnstake","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"amount","type":"uint256"},{"name":"unlockTime","type":"uint256"}]},
 {"type":"function","name":"pendingRewards","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// MarketABI is the prediction market.
const MarketABI = `[
 {"type":"function","name":"buyShares","stateMutability":"nonpayable","inputs":[{"name":"marketId","type":"uint256"},{"name":"isNo","type":"bool"},{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"createMarket","stateMutability":"nonpayable","inputs":[{"name":"question","type":"string"},{"name":"duration","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"claimWinnings","stateMutability":"nonpayable","inputs":[{"name":"marketId","type":"uint256"}],"outputs":[]}
]`

// VaultAsset is the asset symbol the vault keys balances by.
const VaultAsset = "USDC"

func parseABI(name, def string) (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("chain: parse %s ABI: %w", name, err)
	}
	return parsed, nil
}
