package monitor

import (
	"fmt"
	"strings"
)

type Event struct {
	Payload string
}

func NewCycleCompletedEvent(record *ExecutionRecord) *Event {
	status := "succeeded"
	if !record.Success {
		status = "failed"
	}

	payload := fmt.Sprintf(
		"Repayment cycle %v:\n"+
			"- ID: %v\n"+
			"- Actions executed: %v of %v\n"+
			"- Obligation payments: %v\n"+
			"- Revolving repayments: %v\n"+
			"- Fiat spent: %v",
		status,
		record.ID.String(),
		record.ActionsExecuted,
		record.ActionsPlanned,
		record.ObligationPayments,
		record.RevolvingRepayments,
		record.FiatSpent.Text('f', 2),
	)

	if len(record.Errors) > 0 {
		payload += "\n- Errors:\n  " + strings.Join(record.Errors, "\n  ")
	}

	return &Event{Payload: payload}
}

type EventService interface {
	Publish(event *Event)
}
