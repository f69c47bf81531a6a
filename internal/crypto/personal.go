package crypto

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/aegistech/base-markets/internal/domain"
)

// LoginMessage is the text a wallet signs to prove control of addr.
func LoginMessage(addr common.Address, nonce string, issuedAt time.Time) string {
	var b strings.Builder
	b.WriteString("BaseMarkets wants you to sign in with your Base account:\n")
	b.WriteString(addr.Hex())
	b.WriteString("\n\nNonce: ")
	b.WriteString(nonce)
	b.WriteString("\nIssued At: ")
	b.WriteString(issuedAt.UTC().Format(time.RFC3339))
	return b.String()
}

// RecoverPersonal returns the address that produced an EIP-191 signature
// over msg. Both V encodings (0/1 and 27/28) are accepted.
func RecoverPersonal(msg, sig []byte) (common.Address, error) {
	if len(sig) != ethcrypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: want %d bytes, got %d", domain.ErrInvalidSignature, ethcrypto.SignatureLength, len(sig))
	}
	s := make([]byte, len(sig))
	copy(s, sig)
	if s[ethcrypto.RecoveryIDOffset] >= 27 {
		s[ethcrypto.RecoveryIDOffset] -= 27
	}
	pub, err := ethcrypto.SigToPub(accounts.TextHash(msg), s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonal checks that sigHex over msg was made by addr.
func VerifyPersonal(addr common.Address, msg, sigHex string) error {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	got, err := RecoverPersonal([]byte(msg), sig)
	if err != nil {
		return err
	}
	if got != addr {
		return fmt.Errorf("%w: signed by %s", domain.ErrInvalidSignature, got.Hex())
	}
	return nil
}
