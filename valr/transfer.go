package valr

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	monitor "github.com/yashutanna/valr-loan-monitor"
)

type payRequest struct {
	Currency            string `json:"currency"`
	Amount              string `json:"amount"`
	RecipientAccountID  string `json:"recipientAccountId,omitempty"`
	RecipientEmail      string `json:"recipientEmail,omitempty"`
	RecipientCellNumber string `json:"recipientCellNumber,omitempty"`
}

type payResponse struct {
	Identifier string `json:"identifier"`
}

// TransferToRecipient delivers funds through VALR Pay. The recipient can be
// addressed by account id, email or cell number.
func (es *ExchangeService) TransferToRecipient(
	ctx context.Context,
	currency monitor.Currency,
	amount *big.Float,
	recipient monitor.Recipient,
) *monitor.TransferResult {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	result := &monitor.TransferResult{}

	if es.config.Simulation {
		result.Success = true
		result.TransferID = fmt.Sprintf(
			"sim-pay-%v-%v",
			currency,
			recipient.Value,
		)
		return result
	}

	request := &payRequest{
		Currency: string(currency),
		Amount:   amount.Text('f', 8),
	}

	switch recipient.Kind {
	case monitor.RecipientAccountID:
		request.RecipientAccountID = recipient.Value
	case monitor.RecipientEmail:
		request.RecipientEmail = recipient.Value
	case monitor.RecipientCellNumber:
		request.RecipientCellNumber = recipient.Value
	}

	var response payResponse

	err := es.client.call(
		requestCtx,
		http.MethodPost,
		"/v1/pay",
		request,
		&response,
	)
	if err != nil {
		result.Error = fmt.Sprintf(
			"could not pay [%v] [%v] to [%v]: [%v]",
			amount.Text('f', 8),
			currency,
			recipient.Value,
			err,
		)
		return result
	}

	result.Success = true
	result.TransferID = response.Identifier

	return result
}

type subaccountTransferRequest struct {
	FromID       string `json:"fromId"`
	ToID         string `json:"toId"`
	CurrencyCode string `json:"currencyCode"`
	Amount       string `json:"amount"`
}

type subaccountTransferResponse struct {
	TransactionID string `json:"transactionId"`
}

// TransferToLoanAccount moves funds from the funding subaccount into the
// debt-servicing subaccount.
func (es *ExchangeService) TransferToLoanAccount(
	ctx context.Context,
	currency monitor.Currency,
	amount *big.Float,
) *monitor.TransferResult {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	result := &monitor.TransferResult{}

	if es.config.Simulation {
		result.Success = true
		result.TransferID = fmt.Sprintf("sim-loan-%v", currency)
		return result
	}

	var response subaccountTransferResponse

	err := es.client.call(
		requestCtx,
		http.MethodPost,
		"/v1/account/subaccounts/transfer",
		&subaccountTransferRequest{
			FromID:       es.config.FundingAccountID,
			ToID:         es.config.LoanAccountID,
			CurrencyCode: string(currency),
			Amount:       amount.Text('f', 8),
		},
		&response,
	)
	if err != nil {
		result.Error = fmt.Sprintf(
			"could not transfer [%v] [%v] to the loan account: [%v]",
			amount.Text('f', 8),
			currency,
			err,
		)
		return result
	}

	result.Success = true
	result.TransferID = response.TransactionID

	return result
}
