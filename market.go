package monitor

import (
	"context"
	"math/big"
)

// TradeResult is the typed outcome of a fiat-funded market purchase.
// Business failures are reported through the Success flag and the Error
// string - they never cross the Market boundary as Go errors.
type TradeResult struct {
	Success      bool
	Currency     Currency
	CryptoAmount *big.Float
	FiatSpent    *big.Float
	Price        *big.Float
	Error        string
}

type TransferResult struct {
	Success    bool
	TransferID string
	Error      string
}

// Market executes purchases against the fiat reference currency and moves
// funds out of the funding account. Implementations must report failures
// through the result types instead of raising.
type Market interface {
	// BuyWithFiat places a market order sized by fiat amount and reports
	// the actual crypto received and fiat spent, which may differ from the
	// pre-trade estimate due to slippage and fees.
	BuyWithFiat(
		ctx context.Context,
		currency Currency,
		fiatAmount *big.Float,
	) *TradeResult

	// TransferToRecipient delivers funds to an obligation recipient,
	// addressed by account id, email or cell number.
	TransferToRecipient(
		ctx context.Context,
		currency Currency,
		amount *big.Float,
		recipient Recipient,
	) *TransferResult

	// TransferToLoanAccount moves funds from the funding account into the
	// debt-servicing account where they settle revolving loans.
	TransferToLoanAccount(
		ctx context.Context,
		currency Currency,
		amount *big.Float,
	) *TransferResult

	Balance(ctx context.Context, currency Currency) (*big.Float, error)

	Balances(ctx context.Context) (Balances, error)
}
