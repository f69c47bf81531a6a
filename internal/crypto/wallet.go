package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/aegistech/base-markets/internal/domain"
)

// Wallet is the operator account the service transacts for.
type Wallet struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

var _ domain.Signer = (*Wallet)(nil)

// NewWallet wraps a private key.
func NewWallet(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{key: key, addr: ethcrypto.PubkeyToAddress(key.PublicKey)}
}

// LoadWallet resolves the key from src and wraps it.
func LoadWallet(src KeySource) (*Wallet, error) {
	key, err := src.Load()
	if err != nil {
		return nil, err
	}
	return NewWallet(key), nil
}

// GenerateWallet creates a wallet with a fresh random key.
func GenerateWallet() (*Wallet, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return NewWallet(key), nil
}

func (w *Wallet) Address() common.Address { return w.addr }

// SignTx signs tx for chainID with the latest signer the chain supports.
func (w *Wallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}
	return signed, nil
}

// SignPersonal produces an EIP-191 personal_sign signature over msg with
// V in {27, 28}, the form wallets return.
func (w *Wallet) SignPersonal(msg []byte) ([]byte, error) {
	sig, err := ethcrypto.Sign(accounts.TextHash(msg), w.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}
	sig[ethcrypto.RecoveryIDOffset] += 27
	return sig, nil
}

// ExportSealed returns the encrypted key file for w.
func (w *Wallet) ExportSealed(password string) ([]byte, error) {
	return Seal(w.key, password)
}
