package money

import (
	"fmt"
	"math/big"

	"github.com/aegistech/base-markets/internal/domain"
)

// Validate rejects amounts that are not positive or exceed max. A nil max
// skips the upper bound.
func Validate(amount, max *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: must be greater than zero", domain.ErrInvalidAmount)
	}
	if max != nil && amount.Cmp(max) > 0 {
		return fmt.Errorf("%w: %s > %s", domain.ErrInsufficientBalance, FormatUSDC(amount), FormatUSDC(max))
	}
	return nil
}

// ParseAndValidate parses a USDC amount string and checks it against max.
func ParseAndValidate(s string, max *big.Int) (*big.Int, error) {
	v, err := ParseUSDC(s)
	if err != nil {
		return nil, err
	}
	if err := Validate(v, max); err != nil {
		return nil, err
	}
	return v, nil
}
