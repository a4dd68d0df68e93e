package monitor

import "math/big"

type Currency string

// ZAR is the fiat reference currency funding all purchases and reserves.
const ZAR Currency = "ZAR"

type Pair struct {
	Base, Quote Currency
}

// Symbol returns the VALR pair symbol, e.g. BTCZAR.
func (p Pair) Symbol() string {
	return string(p.Base + p.Quote)
}

type Balances map[Currency]*big.Float

func (b Balances) BalanceOf(currency Currency) *big.Float {
	if balance, exists := b[currency]; exists {
		return balance
	}

	return big.NewFloat(0)
}
