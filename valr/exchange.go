package valr

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	monitor "github.com/yashutanna/valr-loan-monitor"
)

const requestTimeout = 1 * time.Minute

// ExchangeService implements monitor.Market against the VALR REST API.
type ExchangeService struct {
	client *Client
	config *Config
}

func NewExchangeService(config *Config) *ExchangeService {
	return &ExchangeService{
		client: NewClient(config),
		config: config,
	}
}

type marketSummaryResponse struct {
	LastTradedPrice string `json:"lastTradedPrice"`
}

func (es *ExchangeService) lastTradedPrice(
	ctx context.Context,
	pair monitor.Pair,
) (*big.Float, error) {
	var summary marketSummaryResponse

	err := es.client.call(
		ctx,
		http.MethodGet,
		fmt.Sprintf("/v1/public/%v/marketsummary", pair.Symbol()),
		nil,
		&summary,
	)
	if err != nil {
		return nil, err
	}

	price, err := parseAmount(summary.LastTradedPrice)
	if err != nil {
		return nil, fmt.Errorf(
			"could not parse last traded price for [%v]: [%v]",
			pair.Symbol(),
			err,
		)
	}

	return price, nil
}

func (es *ExchangeService) Balances(
	ctx context.Context,
) (monitor.Balances, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	entries, err := es.client.balances(requestCtx)
	if err != nil {
		return nil, err
	}

	balances := make(monitor.Balances)

	for _, entry := range entries {
		amount, err := parseAmount(entry.Available)
		if err != nil {
			return nil, fmt.Errorf(
				"could not parse balance for currency [%v]: [%v]",
				entry.Currency,
				err,
			)
		}

		if amount.Cmp(big.NewFloat(0)) == 0 {
			continue
		}

		balances[monitor.Currency(entry.Currency)] = amount
	}

	return balances, nil
}

func (es *ExchangeService) Balance(
	ctx context.Context,
	currency monitor.Currency,
) (*big.Float, error) {
	balances, err := es.Balances(ctx)
	if err != nil {
		return nil, err
	}

	return balances.BalanceOf(currency), nil
}
