package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Outcome is one side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// ParseOutcome accepts "yes"/"no" in any case.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(strings.ToUpper(strings.TrimSpace(s))) {
	case OutcomeYes:
		return OutcomeYes, nil
	case OutcomeNo:
		return OutcomeNo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// IsNo maps the outcome to the market contract's isNo flag.
func (o Outcome) IsNo() bool { return o == OutcomeNo }

// Category groups markets for display.
type Category string

const (
	CategoryCrypto     Category = "Crypto"
	CategoryPolitics   Category = "Politics"
	CategorySports     Category = "Sports"
	CategoryPopCulture Category = "Pop Culture"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCrypto, CategoryPolitics, CategorySports, CategoryPopCulture:
		return true
	}
	return false
}

// Market is a curated binary prediction market. Prices are probabilities in
// (0, 1) and are descriptive only; buying shares does not move them.
type Market struct {
	ID          string
	Question    string
	Description string
	EndDate     time.Time
	Volume      float64
	YesPrice    float64
	NoPrice     float64
	ImageURL    string
	Category    Category
	IsResolved  bool
	Winner      Outcome // empty until resolved
	UpdatedAt   time.Time
}

// Price returns the share price for the given outcome.
func (m Market) Price(o Outcome) float64 {
	if o == OutcomeNo {
		return m.NoPrice
	}
	return m.YesPrice
}

// ContractID parses the market id as the uint256 used on-chain.
func (m Market) ContractID() (*big.Int, error) {
	id, ok := new(big.Int).SetString(m.ID, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("market %q: id is not numeric", m.ID)
	}
	return id, nil
}
