package monitor

import (
	"fmt"
	"math/big"
	"time"
)

type RecipientKind int

const (
	RecipientAccountID RecipientKind = iota
	RecipientEmail
	RecipientCellNumber
)

func ParseRecipientKind(value string) (RecipientKind, error) {
	switch value {
	case "accountId":
		return RecipientAccountID, nil
	case "email":
		return RecipientEmail, nil
	case "phone":
		return RecipientCellNumber, nil
	}

	return -1, fmt.Errorf("unknown recipient kind: [%v]", value)
}

func (rk RecipientKind) String() string {
	switch rk {
	case RecipientAccountID:
		return "accountId"
	case RecipientEmail:
		return "email"
	case RecipientCellNumber:
		return "phone"
	default:
		panic("unknown recipient kind")
	}
}

// Recipient describes where an obligation settlement should be delivered.
// VALR Pay accepts all three kinds as the transfer destination.
type Recipient struct {
	Kind  RecipientKind
	Value string
}

// Obligation is an informal, fixed-rate loan owed to a human recipient,
// serviced on a monthly cadence. Instances are immutable once loaded from
// the obligations document.
type Obligation struct {
	ID                 string
	Name               string
	Principal          *big.Float
	AnnualRate         *big.Float
	Start              time.Time
	SettlementCurrency Currency
	Active             bool
	Recipient          Recipient
	Notes              string
}

// MonthlyDue returns the simple-interest monthly amount,
// principal * rate / 12, in fiat.
func (o *Obligation) MonthlyDue() *big.Float {
	due := new(big.Float).Mul(o.Principal, o.AnnualRate)
	return due.Quo(due, big.NewFloat(12))
}

func (o *Obligation) validate() error {
	if len(o.ID) == 0 {
		return fmt.Errorf("obligation id is required")
	}

	if len(o.Name) == 0 {
		return fmt.Errorf("obligation [%v] name is required", o.ID)
	}

	if o.Principal == nil || o.Principal.Cmp(big.NewFloat(0)) <= 0 {
		return fmt.Errorf(
			"obligation [%v] principal must be greater than zero",
			o.ID,
		)
	}

	if o.AnnualRate == nil ||
		o.AnnualRate.Cmp(big.NewFloat(0)) < 0 ||
		o.AnnualRate.Cmp(big.NewFloat(1)) > 0 {
		return fmt.Errorf(
			"obligation [%v] annual rate must be within [0,1]",
			o.ID,
		)
	}

	if o.Start.IsZero() {
		return fmt.Errorf("obligation [%v] start time is required", o.ID)
	}

	if len(o.SettlementCurrency) == 0 {
		return fmt.Errorf(
			"obligation [%v] settlement currency is required",
			o.ID,
		)
	}

	if len(o.Recipient.Value) == 0 {
		return fmt.Errorf("obligation [%v] recipient is required", o.ID)
	}

	return nil
}
