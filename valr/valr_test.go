package valr

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	monitor "github.com/yashutanna/valr-loan-monitor"
)

type testLogger struct{}

func (tl *testLogger) Debugf(format string, args ...interface{})   {}
func (tl *testLogger) Infof(format string, args ...interface{})    {}
func (tl *testLogger) Warningf(format string, args ...interface{}) {}
func (tl *testLogger) Errorf(format string, args ...interface{})   {}
func (tl *testLogger) Fatalf(format string, args ...interface{})   {}

func (tl *testLogger) WithField(
	key string,
	value interface{},
) monitor.Logger {
	return tl
}

func (tl *testLogger) WithFields(
	fields map[string]interface{},
) monitor.Logger {
	return tl
}

func TestClient_Sign(t *testing.T) {
	client := NewClient(&Config{
		ApiKey:    "key",
		ApiSecret: "secret",
	})

	signature := client.sign(
		"1558014486185",
		http.MethodGet,
		"/v1/account/balances",
		nil,
	)

	// HMAC-SHA512 renders as 128 hex characters.
	if len(signature) != 128 {
		t.Errorf(
			"unexpected signature length\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			128,
			len(signature),
		)
	}

	repeated := client.sign(
		"1558014486185",
		http.MethodGet,
		"/v1/account/balances",
		nil,
	)
	if signature != repeated {
		t.Errorf("signing the same request twice should match")
	}

	otherSecret := NewClient(&Config{
		ApiKey:    "key",
		ApiSecret: "other-secret",
	})
	if signature == otherSecret.sign(
		"1558014486185",
		http.MethodGet,
		"/v1/account/balances",
		nil,
	) {
		t.Errorf("signatures should depend on the API secret")
	}
}

func TestClient_Call_SignedHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			if len(request.Header.Get("X-VALR-API-KEY")) == 0 {
				t.Errorf("request should carry the API key header")
			}
			if len(request.Header.Get("X-VALR-TIMESTAMP")) == 0 {
				t.Errorf("request should carry the timestamp header")
			}
			if len(request.Header.Get("X-VALR-SIGNATURE")) != 128 {
				t.Errorf("request should carry a full signature header")
			}

			fmt.Fprintln(writer, `[]`)
		},
	))
	defer server.Close()

	client := NewClient(&Config{
		ApiKey:    "key",
		ApiSecret: "secret",
		BaseURL:   server.URL,
	})

	if _, err := client.balances(context.Background()); err != nil {
		t.Fatalf("could not get balances: [%v]", err)
	}
}

func TestExchangeService_Balances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Path != "/v1/account/balances" {
				t.Errorf("unexpected path: [%v]", request.URL.Path)
			}

			fmt.Fprintln(writer, `[
				{"currency": "ZAR", "available": "1500.50", "total": "1500.50"},
				{"currency": "BTC", "available": "0", "total": "0"},
				{"currency": "USDC", "available": "12.25", "total": "12.25"}
			]`)
		},
	))
	defer server.Close()

	exchangeService := NewExchangeService(&Config{BaseURL: server.URL})

	balances, err := exchangeService.Balances(context.Background())
	if err != nil {
		t.Fatalf("could not get balances: [%v]", err)
	}

	// Zero balances are dropped.
	if len(balances) != 2 {
		t.Fatalf(
			"unexpected balances count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			2,
			len(balances),
		)
	}

	zar := balances.BalanceOf(monitor.ZAR)
	if zar.Cmp(big.NewFloat(1500.50)) != 0 {
		t.Errorf(
			"unexpected ZAR balance\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			1500.50,
			zar.Text('f', 2),
		)
	}
}

func TestExchangeService_BuyWithFiat_Simulation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Path != "/v1/public/BTCZAR/marketsummary" {
				t.Errorf("unexpected path: [%v]", request.URL.Path)
			}

			fmt.Fprintln(writer, `{"lastTradedPrice": "1000000"}`)
		},
	))
	defer server.Close()

	exchangeService := NewExchangeService(&Config{
		BaseURL:    server.URL,
		Simulation: true,
	})

	result := exchangeService.BuyWithFiat(
		context.Background(),
		monitor.Currency("BTC"),
		big.NewFloat(500),
	)

	if !result.Success {
		t.Fatalf("simulated buy should succeed: [%v]", result.Error)
	}

	if result.CryptoAmount.Cmp(big.NewFloat(0.0005)) != 0 {
		t.Errorf(
			"unexpected crypto amount\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			0.0005,
			result.CryptoAmount.Text('f', 8),
		)
	}

	if result.FiatSpent.Cmp(big.NewFloat(500)) != 0 {
		t.Errorf(
			"unexpected fiat spent\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			500,
			result.FiatSpent.Text('f', 2),
		)
	}
}

func TestExchangeService_BuyWithFiat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			switch request.URL.Path {
			case "/v1/public/USDCZAR/marketsummary":
				fmt.Fprintln(writer, `{"lastTradedPrice": "18.50"}`)
			case "/v1/orders/market":
				var order marketOrderRequest
				if err := json.NewDecoder(request.Body).Decode(&order); err != nil {
					t.Errorf("could not decode order request: [%v]", err)
				}
				if order.Pair != "USDCZAR" || order.Side != "BUY" {
					t.Errorf(
						"unexpected order request: [%v %v]",
						order.Side,
						order.Pair,
					)
				}
				if order.QuoteAmount != "120.00" {
					t.Errorf(
						"unexpected quote amount: [%v]",
						order.QuoteAmount,
					)
				}

				fmt.Fprintln(writer, `{"id": "order-1"}`)
			case "/v1/orders/USDCZAR/orderid/order-1":
				fmt.Fprintln(writer, `{
					"orderId": "order-1",
					"orderStatusType": "Filled",
					"executedQuantity": "6.45",
					"executedTotal": "119.98",
					"averagePrice": "18.60"
				}`)
			default:
				t.Errorf("unexpected path: [%v]", request.URL.Path)
			}
		},
	))
	defer server.Close()

	exchangeService := NewExchangeService(&Config{BaseURL: server.URL})

	result := exchangeService.BuyWithFiat(
		context.Background(),
		monitor.Currency("USDC"),
		big.NewFloat(120),
	)

	if !result.Success {
		t.Fatalf("buy should succeed: [%v]", result.Error)
	}

	// Executed values win over the pre-trade estimate.
	if result.CryptoAmount.Cmp(big.NewFloat(6.45)) != 0 {
		t.Errorf(
			"unexpected crypto amount\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			6.45,
			result.CryptoAmount.Text('f', 8),
		)
	}
	if result.FiatSpent.Cmp(big.NewFloat(119.98)) != 0 {
		t.Errorf(
			"unexpected fiat spent\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			119.98,
			result.FiatSpent.Text('f', 2),
		)
	}
}

func TestExchangeService_BuyWithFiat_NotFilled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			switch request.URL.Path {
			case "/v1/public/USDCZAR/marketsummary":
				fmt.Fprintln(writer, `{"lastTradedPrice": "18.50"}`)
			case "/v1/orders/market":
				fmt.Fprintln(writer, `{"id": "order-1"}`)
			case "/v1/orders/USDCZAR/orderid/order-1":
				fmt.Fprintln(writer, `{
					"orderId": "order-1",
					"orderStatusType": "Failed",
					"failedReason": "insufficient balance"
				}`)
			default:
				t.Errorf("unexpected path: [%v]", request.URL.Path)
			}
		},
	))
	defer server.Close()

	exchangeService := NewExchangeService(&Config{BaseURL: server.URL})

	result := exchangeService.BuyWithFiat(
		context.Background(),
		monitor.Currency("USDC"),
		big.NewFloat(120),
	)

	if result.Success {
		t.Errorf("unfilled order should not report success")
	}
	if len(result.Error) == 0 {
		t.Errorf("unfilled order should report an error")
	}
}

func TestExchangeService_TransferToRecipient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Path != "/v1/pay" {
				t.Errorf("unexpected path: [%v]", request.URL.Path)
			}

			var pay payRequest
			if err := json.NewDecoder(request.Body).Decode(&pay); err != nil {
				t.Errorf("could not decode pay request: [%v]", err)
			}

			if pay.RecipientEmail != "brother@example.com" {
				t.Errorf(
					"unexpected pay recipient: [%v]",
					pay.RecipientEmail,
				)
			}
			if len(pay.RecipientAccountID) > 0 ||
				len(pay.RecipientCellNumber) > 0 {
				t.Errorf("only the email recipient field should be set")
			}

			fmt.Fprintln(writer, `{"identifier": "pay-1"}`)
		},
	))
	defer server.Close()

	exchangeService := NewExchangeService(&Config{BaseURL: server.URL})

	result := exchangeService.TransferToRecipient(
		context.Background(),
		monitor.Currency("USDC"),
		big.NewFloat(6.45),
		monitor.Recipient{
			Kind:  monitor.RecipientEmail,
			Value: "brother@example.com",
		},
	)

	if !result.Success {
		t.Fatalf("transfer should succeed: [%v]", result.Error)
	}

	if result.TransferID != "pay-1" {
		t.Errorf(
			"unexpected transfer ID\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			"pay-1",
			result.TransferID,
		)
	}
}

func TestExchangeService_Transfers_Simulation(t *testing.T) {
	exchangeService := NewExchangeService(&Config{Simulation: true})

	recipient := exchangeService.TransferToRecipient(
		context.Background(),
		monitor.Currency("USDC"),
		big.NewFloat(6.45),
		monitor.Recipient{
			Kind:  monitor.RecipientEmail,
			Value: "brother@example.com",
		},
	)
	if !recipient.Success ||
		recipient.TransferID != "sim-pay-USDC-brother@example.com" {
		t.Errorf(
			"unexpected simulated pay result: [%v %v]",
			recipient.Success,
			recipient.TransferID,
		)
	}

	loan := exchangeService.TransferToLoanAccount(
		context.Background(),
		monitor.Currency("BTC"),
		big.NewFloat(0.001),
	)
	if !loan.Success || loan.TransferID != "sim-loan-BTC" {
		t.Errorf(
			"unexpected simulated loan transfer result: [%v %v]",
			loan.Success,
			loan.TransferID,
		)
	}
}

func TestLoanService_LoanMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			switch request.URL.Path {
			case "/v1/account/balances":
				fmt.Fprintln(writer, `[
					{"currency": "ZAR", "available": "1500", "total": "1500"},
					{"currency": "BTC", "available": "0", "total": "-0.05"},
					{"currency": "USDC", "available": "0", "total": "-300"},
					{"currency": "SOL", "available": "0", "total": "-2"}
				]`)
			case "/v1/loans/rates":
				fmt.Fprintln(writer, `[
					{"currency": "BTC", "estimatedAnnualRate": "0.12"},
					{"currency": "USDC", "estimatedAnnualRate": "0.25"}
				]`)
			default:
				t.Errorf("unexpected path: [%v]", request.URL.Path)
			}
		},
	))
	defer server.Close()

	loanService := NewLoanService(
		&Config{BaseURL: server.URL},
		&testLogger{},
	)

	metrics, err := loanService.LoanMetrics(context.Background())
	if err != nil {
		t.Fatalf("could not get loan metrics: [%v]", err)
	}

	loans := metrics.Loans()
	if len(loans) != 3 {
		t.Fatalf(
			"unexpected loans count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			3,
			len(loans),
		)
	}

	highest, exists := metrics.HighestRate()
	if !exists {
		t.Fatalf("highest rate loan should exist")
	}
	if highest.Currency != monitor.Currency("USDC") {
		t.Errorf(
			"unexpected highest rate loan\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			"USDC",
			highest.Currency,
		)
	}
	if highest.Amount.Cmp(big.NewFloat(300)) != 0 {
		t.Errorf(
			"unexpected loan amount\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			300,
			highest.Amount.Text('f', 2),
		)
	}

	// The SOL loan has no published borrow rate and falls back to zero.
	lowest := loans[len(loans)-1]
	if lowest.Currency != monitor.Currency("SOL") {
		t.Errorf(
			"unexpected lowest rate loan\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			"SOL",
			lowest.Currency,
		)
	}
	if lowest.AnnualRate.Cmp(big.NewFloat(0)) != 0 {
		t.Errorf("loan without a borrow rate should carry a zero rate")
	}
}
