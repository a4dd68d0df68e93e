package monitor

import (
	"fmt"
	"math/big"
	"time"
)

type PaymentKind int

const (
	PaymentInterest PaymentKind = iota
	PaymentPrincipal
)

func ParsePaymentKind(value string) (PaymentKind, error) {
	switch value {
	case "INTEREST":
		return PaymentInterest, nil
	case "PRINCIPAL":
		return PaymentPrincipal, nil
	}

	return -1, fmt.Errorf("unknown payment kind: [%v]", value)
}

func (pk PaymentKind) String() string {
	switch pk {
	case PaymentInterest:
		return "INTEREST"
	case PaymentPrincipal:
		return "PRINCIPAL"
	default:
		panic("unknown payment kind")
	}
}

// ObligationPayment is an append-only record of a settled obligation
// instalment. It is created by the executor only after a successful
// transfer, using the actual amounts reported by the trade.
type ObligationPayment struct {
	ID           ID
	ObligationID string
	Time         time.Time
	FiatAmount   *big.Float
	Currency     Currency
	CryptoAmount *big.Float
	TransferID   string
	Kind         PaymentKind
}

// PendingPayment is an instalment an obligation is due for in the current
// cycle. Ephemeral, produced fresh by the registry on every planning pass.
type PendingPayment struct {
	Obligation *Obligation
	FiatAmount *big.Float
	Currency   Currency
	Kind       PaymentKind
}

type PaymentTotals struct {
	Interest  *big.Float
	Principal *big.Float
}

type PaymentRepository interface {
	CreatePayment(payment *ObligationPayment) error

	// LastPayment returns the most recent payment for the given obligation,
	// or nil when no payment was ever recorded.
	LastPayment(obligationID string) (*ObligationPayment, error)

	PaymentsInMonth(
		obligationID string,
		year int,
		month time.Month,
	) (int, error)

	PaymentTotals(obligationID string) (*PaymentTotals, error)
}
