package valr

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	monitor "github.com/yashutanna/valr-loan-monitor"
)

// orderSettlementWait is how long a market order is given to settle before
// its actual fill is read back.
const orderSettlementWait = 2 * time.Second

const orderStatusFilled = "Filled"

type marketOrderRequest struct {
	Pair        string `json:"pair"`
	Side        string `json:"side"`
	QuoteAmount string `json:"quoteAmount"`
}

type marketOrderResponse struct {
	ID string `json:"id"`
}

type orderStatusResponse struct {
	OrderID          string `json:"orderId"`
	OrderStatusType  string `json:"orderStatusType"`
	ExecutedQuantity string `json:"executedQuantity"`
	ExecutedTotal    string `json:"executedTotal"`
	AveragePrice     string `json:"averagePrice"`
	FailedReason     string `json:"failedReason"`
}

// BuyWithFiat places a fiat-sized market buy and reports the actual crypto
// received and fiat spent read back from the order status. In simulation
// mode it returns a price-based estimate without side effects.
func (es *ExchangeService) BuyWithFiat(
	ctx context.Context,
	currency monitor.Currency,
	fiatAmount *big.Float,
) *monitor.TradeResult {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	result := &monitor.TradeResult{Currency: currency}

	pair := monitor.Pair{Base: currency, Quote: monitor.ZAR}

	price, err := es.lastTradedPrice(requestCtx, pair)
	if err != nil {
		result.Error = fmt.Sprintf(
			"could not get market price for [%v]: [%v]",
			pair.Symbol(),
			err,
		)
		return result
	}

	if es.config.Simulation {
		result.Success = true
		result.Price = price
		result.FiatSpent = fiatAmount
		result.CryptoAmount = new(big.Float).Quo(fiatAmount, price)
		return result
	}

	var orderResponse marketOrderResponse

	err = es.client.call(
		requestCtx,
		http.MethodPost,
		"/v1/orders/market",
		&marketOrderRequest{
			Pair:        pair.Symbol(),
			Side:        "BUY",
			QuoteAmount: fiatAmount.Text('f', 2),
		},
		&orderResponse,
	)
	if err != nil {
		result.Error = fmt.Sprintf(
			"could not place market order for [%v]: [%v]",
			pair.Symbol(),
			err,
		)
		return result
	}

	time.Sleep(orderSettlementWait)

	var status orderStatusResponse

	err = es.client.call(
		requestCtx,
		http.MethodGet,
		fmt.Sprintf(
			"/v1/orders/%v/orderid/%v",
			pair.Symbol(),
			orderResponse.ID,
		),
		nil,
		&status,
	)
	if err != nil {
		result.Error = fmt.Sprintf(
			"could not get status of order [%v]: [%v]",
			orderResponse.ID,
			err,
		)
		return result
	}

	if status.OrderStatusType != orderStatusFilled {
		result.Error = fmt.Sprintf(
			"order [%v] not filled; status [%v], reason [%v]",
			orderResponse.ID,
			status.OrderStatusType,
			status.FailedReason,
		)
		return result
	}

	// The settled fill may differ from the pre-trade estimate due to
	// slippage and fees, so the executed values are what count downstream.
	cryptoAmount, err := parseAmount(status.ExecutedQuantity)
	if err != nil {
		result.Error = fmt.Sprintf(
			"could not parse executed quantity of order [%v]: [%v]",
			orderResponse.ID,
			err,
		)
		return result
	}

	fiatSpent, err := parseAmount(status.ExecutedTotal)
	if err != nil {
		result.Error = fmt.Sprintf(
			"could not parse executed total of order [%v]: [%v]",
			orderResponse.ID,
			err,
		)
		return result
	}

	averagePrice, err := parseAmount(status.AveragePrice)
	if err != nil {
		result.Error = fmt.Sprintf(
			"could not parse average price of order [%v]: [%v]",
			orderResponse.ID,
			err,
		)
		return result
	}

	result.Success = true
	result.CryptoAmount = cryptoAmount
	result.FiatSpent = fiatSpent
	result.Price = averagePrice

	return result
}
