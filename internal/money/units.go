// Package money converts between decimal USDC amounts and on-chain base units.
package money

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/aegistech/base-markets/internal/domain"
)

// USDCDecimals is the token precision assumed when the contract cannot be asked.
const USDCDecimals = 6

// ParseUnits parses a plain decimal string such as "12.5" into base units with
// the given precision. Signs, exponents, NaN and excess fractional digits are
// rejected; zero is accepted here and rejected by Validate.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", domain.ErrInvalidAmount)
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	if !digits(whole) || !digits(frac) {
		return nil, fmt.Errorf("%w: %q is not a decimal number", domain.ErrInvalidAmount, s)
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", domain.ErrInvalidAmount, s, decimals)
	}

	v, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", decimals-len(frac)), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	return v, nil
}

// ParseUSDC is ParseUnits with USDC precision.
func ParseUSDC(s string) (*big.Int, error) {
	return ParseUnits(s, USDCDecimals)
}

// FromFloat converts a float amount, e.g. from configuration, to base units.
// Digits beyond the precision are truncated.
func FromFloat(f float64, decimals int) (*big.Int, error) {
	s := strconv.FormatFloat(f, 'f', decimals, 64)
	return ParseUnits(s, decimals)
}

// FormatUnits renders base units as a decimal string without trailing zeros.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	s := new(big.Int).Abs(v).String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-decimals], strings.TrimRight(s[len(s)-decimals:], "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatUSDC is FormatUnits with USDC precision.
func FormatUSDC(v *big.Int) string { return FormatUnits(v, USDCDecimals) }

// ToFloat converts base units to a float for display and projections.
func ToFloat(v *big.Int, decimals int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(pow10(decimals))).Float64()
	return f
}

// USDCFloat is ToFloat with USDC precision.
func USDCFloat(v *big.Int) float64 { return ToFloat(v, USDCDecimals) }

// Rescale converts v from one precision to another. Scaling down truncates
// toward zero.
func Rescale(v *big.Int, from, to int) *big.Int {
	if v == nil {
		return nil
	}
	switch {
	case to > from:
		return new(big.Int).Mul(v, pow10(to-from))
	case to < from:
		return new(big.Int).Quo(v, pow10(from-to))
	default:
		return new(big.Int).Set(v)
	}
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
