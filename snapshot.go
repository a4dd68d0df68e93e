package monitor

import "encoding/json"

// The snapshot stored on an execution record is an opaque audit blob. Money
// amounts are serialized as strings because big.Float values do not survive
// a JSON round trip.

type planSnapshot struct {
	AvailableFiat string            `json:"availableFiat"`
	RequiredFiat  string            `json:"requiredFiat"`
	CanExecute    bool              `json:"canExecute"`
	SkipReason    string            `json:"skipReason,omitempty"`
	Actions       []*actionSnapshot `json:"actions"`
}

type actionSnapshot struct {
	Priority   int    `json:"priority"`
	Type       string `json:"type"`
	TargetID   string `json:"targetId"`
	Currency   string `json:"currency"`
	FiatAmount string `json:"fiatAmount"`
	AnnualRate string `json:"annualRate,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
}

type resultSnapshot struct {
	Action       *actionSnapshot `json:"action"`
	TradeSuccess bool            `json:"tradeSuccess"`
	CryptoAmount string          `json:"cryptoAmount,omitempty"`
	FiatSpent    string          `json:"fiatSpent,omitempty"`
	Price        string          `json:"price,omitempty"`
	TransferID   string          `json:"transferId,omitempty"`
	Error        string          `json:"error,omitempty"`
}

type cycleSnapshot struct {
	Plan    *planSnapshot     `json:"plan"`
	Results []*resultSnapshot `json:"results,omitempty"`
}

func wrapAction(action *Action) *actionSnapshot {
	snapshot := &actionSnapshot{
		Priority:   action.Priority,
		Type:       action.Type.String(),
		TargetID:   action.TargetID,
		Currency:   string(action.Currency),
		FiatAmount: action.FiatAmount.Text('f', 2),
	}

	if action.AnnualRate != nil {
		snapshot.AnnualRate = action.AnnualRate.Text('f', 4)
	}

	if action.Recipient != nil {
		snapshot.Recipient = action.Recipient.Kind.String() +
			":" + action.Recipient.Value
	}

	return snapshot
}

func wrapResult(result *ActionResult) *resultSnapshot {
	snapshot := &resultSnapshot{
		Action: wrapAction(result.Action),
		Error:  result.Error,
	}

	if result.Trade != nil {
		snapshot.TradeSuccess = result.Trade.Success

		if result.Trade.Success {
			snapshot.CryptoAmount = result.Trade.CryptoAmount.Text('f', 8)
			snapshot.FiatSpent = result.Trade.FiatSpent.Text('f', 2)
			snapshot.Price = result.Trade.Price.Text('f', 2)
		}
	}

	if result.Transfer != nil && result.Transfer.Success {
		snapshot.TransferID = result.Transfer.TransferID
	}

	return snapshot
}

func marshalSnapshot(plan *Plan, results []*ActionResult) []byte {
	planSnap := &planSnapshot{
		AvailableFiat: plan.AvailableFiat.Text('f', 2),
		RequiredFiat:  plan.RequiredFiat.Text('f', 2),
		CanExecute:    plan.CanExecute,
		SkipReason:    plan.SkipReason,
		Actions:       make([]*actionSnapshot, 0, len(plan.Actions)),
	}

	for _, action := range plan.Actions {
		planSnap.Actions = append(planSnap.Actions, wrapAction(action))
	}

	snapshot := &cycleSnapshot{Plan: planSnap}

	for _, result := range results {
		snapshot.Results = append(snapshot.Results, wrapResult(result))
	}

	// All snapshot fields are plain strings and numbers, so marshalling
	// cannot fail.
	snapshotBytes, _ := json.Marshal(snapshot)

	return snapshotBytes
}
