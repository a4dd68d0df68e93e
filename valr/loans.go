package valr

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	monitor "github.com/yashutanna/valr-loan-monitor"
)

// LoanService implements monitor.LoanMetricsService. Loan positions are
// detected from balance signs: a negative total on a currency means that
// amount is borrowed.
type LoanService struct {
	client *Client
	logger monitor.Logger
}

func NewLoanService(config *Config, logger monitor.Logger) *LoanService {
	return &LoanService{
		client: NewClient(config),
		logger: logger,
	}
}

type borrowRateEntry struct {
	Currency            string `json:"currency"`
	EstimatedAnnualRate string `json:"estimatedAnnualRate"`
}

func (ls *LoanService) LoanMetrics(
	ctx context.Context,
) (*monitor.LoanMetrics, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	entries, err := ls.client.balances(requestCtx)
	if err != nil {
		return nil, fmt.Errorf("could not get account balances: [%v]", err)
	}

	rates, err := ls.borrowRates(requestCtx)
	if err != nil {
		return nil, fmt.Errorf("could not get borrow rates: [%v]", err)
	}

	loans := make([]*monitor.RevolvingLoan, 0)

	for _, entry := range entries {
		total, err := parseAmount(entry.Total)
		if err != nil {
			return nil, fmt.Errorf(
				"could not parse balance for currency [%v]: [%v]",
				entry.Currency,
				err,
			)
		}

		if total.Cmp(big.NewFloat(0)) >= 0 {
			continue
		}

		currency := monitor.Currency(entry.Currency)

		rate, exists := rates[currency]
		if !exists {
			ls.logger.Warningf(
				"no borrow rate for loan currency [%v]; assuming zero",
				currency,
			)
			rate = big.NewFloat(0)
		}

		loans = append(loans, &monitor.RevolvingLoan{
			Currency:   currency,
			Amount:     new(big.Float).Neg(total),
			AnnualRate: rate,
		})
	}

	return monitor.NewLoanMetrics(loans), nil
}

func (ls *LoanService) borrowRates(
	ctx context.Context,
) (map[monitor.Currency]*big.Float, error) {
	var entries []borrowRateEntry

	err := ls.client.call(
		ctx,
		http.MethodGet,
		"/v1/loans/rates",
		nil,
		&entries,
	)
	if err != nil {
		return nil, err
	}

	rates := make(map[monitor.Currency]*big.Float)

	for _, entry := range entries {
		rate, err := parseAmount(entry.EstimatedAnnualRate)
		if err != nil {
			return nil, fmt.Errorf(
				"could not parse borrow rate for currency [%v]: [%v]",
				entry.Currency,
				err,
			)
		}

		rates[monitor.Currency(entry.Currency)] = rate
	}

	return rates, nil
}
