package monitor_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	monitor "github.com/yashutanna/valr-loan-monitor"
	"github.com/yashutanna/valr-loan-monitor/inmem"
	"github.com/yashutanna/valr-loan-monitor/uuid"
)

// Shared fixtures for the registry, planner and executor tests.

type staticSource struct {
	document []byte
}

func (ss *staticSource) Read() ([]byte, error) {
	return ss.document, nil
}

type noopLogger struct{}

func (nl *noopLogger) Debugf(format string, args ...interface{})   {}
func (nl *noopLogger) Infof(format string, args ...interface{})    {}
func (nl *noopLogger) Warningf(format string, args ...interface{}) {}
func (nl *noopLogger) Errorf(format string, args ...interface{})   {}
func (nl *noopLogger) Fatalf(format string, args ...interface{})   {}

func (nl *noopLogger) WithField(
	key string,
	value interface{},
) monitor.Logger {
	return nl
}

func (nl *noopLogger) WithFields(
	fields map[string]interface{},
) monitor.Logger {
	return nl
}

// fakeMarket trades at a fixed price of 100 fiat per crypto unit and can be
// scripted to fail buys or transfers per currency.
type fakeMarket struct {
	fiatBalance *big.Float

	failBuys      map[monitor.Currency]string
	failTransfers map[monitor.Currency]string

	recipientTransfers int
	loanTransfers      int
}

func newFakeMarket(fiatBalance float64) *fakeMarket {
	return &fakeMarket{
		fiatBalance:   big.NewFloat(fiatBalance),
		failBuys:      make(map[monitor.Currency]string),
		failTransfers: make(map[monitor.Currency]string),
	}
}

func (fm *fakeMarket) BuyWithFiat(
	ctx context.Context,
	currency monitor.Currency,
	fiatAmount *big.Float,
) *monitor.TradeResult {
	if message, exists := fm.failBuys[currency]; exists {
		return &monitor.TradeResult{
			Currency: currency,
			Error:    message,
		}
	}

	price := big.NewFloat(100)

	return &monitor.TradeResult{
		Success:      true,
		Currency:     currency,
		CryptoAmount: new(big.Float).Quo(fiatAmount, price),
		FiatSpent:    fiatAmount,
		Price:        price,
	}
}

func (fm *fakeMarket) TransferToRecipient(
	ctx context.Context,
	currency monitor.Currency,
	amount *big.Float,
	recipient monitor.Recipient,
) *monitor.TransferResult {
	if message, exists := fm.failTransfers[currency]; exists {
		return &monitor.TransferResult{Error: message}
	}

	fm.recipientTransfers++

	return &monitor.TransferResult{
		Success: true,
		TransferID: fmt.Sprintf(
			"transfer-%v-%v",
			currency,
			recipient.Value,
		),
	}
}

func (fm *fakeMarket) TransferToLoanAccount(
	ctx context.Context,
	currency monitor.Currency,
	amount *big.Float,
) *monitor.TransferResult {
	if message, exists := fm.failTransfers[currency]; exists {
		return &monitor.TransferResult{Error: message}
	}

	fm.loanTransfers++

	return &monitor.TransferResult{
		Success:    true,
		TransferID: fmt.Sprintf("loan-transfer-%v", currency),
	}
}

func (fm *fakeMarket) Balance(
	ctx context.Context,
	currency monitor.Currency,
) (*big.Float, error) {
	return fm.fiatBalance, nil
}

func (fm *fakeMarket) Balances(
	ctx context.Context,
) (monitor.Balances, error) {
	return monitor.Balances{monitor.ZAR: fm.fiatBalance}, nil
}

// scriptableMetricsService serves the configured loans or, when an error is
// scripted, fails every read.
type scriptableMetricsService struct {
	loans []*monitor.RevolvingLoan
	err   error
}

func (sms *scriptableMetricsService) LoanMetrics(
	ctx context.Context,
) (*monitor.LoanMetrics, error) {
	if sms.err != nil {
		return nil, sms.err
	}

	return monitor.NewLoanMetrics(sms.loans), nil
}

type harness struct {
	registry            *monitor.ObligationRegistry
	planner             *monitor.Planner
	executor            *monitor.Executor
	metrics             *scriptableMetricsService
	paymentRepository   *inmem.PaymentRepository
	executionRepository *inmem.ExecutionRecordRepository
	revolvingRepository *inmem.RevolvingRepaymentRepository
}

func newHarness(
	t *testing.T,
	obligationsDocument string,
	market monitor.Market,
	minReserve float64,
) *harness {
	metrics := &scriptableMetricsService{}

	harness := newHarnessWithMetrics(
		t,
		obligationsDocument,
		market,
		minReserve,
		metrics,
	)
	harness.metrics = metrics

	return harness
}

func newHarnessWithMetrics(
	t *testing.T,
	obligationsDocument string,
	market monitor.Market,
	minReserve float64,
	metricsService monitor.LoanMetricsService,
) *harness {
	logger := &noopLogger{}

	paymentRepository := inmem.NewPaymentRepository()
	executionRepository := inmem.NewExecutionRecordRepository()
	revolvingRepository := inmem.NewRevolvingRepaymentRepository()

	registry := monitor.NewObligationRegistry(
		&staticSource{document: []byte(obligationsDocument)},
		paymentRepository,
		logger,
	)
	if err := registry.Load(); err != nil {
		t.Fatalf("could not load obligations: [%v]", err)
	}

	planner := monitor.NewPlanner(
		registry,
		market,
		monitor.ZAR,
		big.NewFloat(minReserve),
		logger,
	)

	executor := monitor.NewExecutor(
		planner,
		market,
		metricsService,
		paymentRepository,
		executionRepository,
		revolvingRepository,
		&uuid.IDService{},
		logger,
	)

	return &harness{
		registry:            registry,
		planner:             planner,
		executor:            executor,
		paymentRepository:   paymentRepository,
		executionRepository: executionRepository,
		revolvingRepository: revolvingRepository,
	}
}

// obligationDocument renders a versioned obligations document with a single
// obligation whose start lies the given number of days back.
func obligationDocument(
	id string,
	principal float64,
	annualRate float64,
	startDaysAgo int,
) string {
	return fmt.Sprintf(
		"version: 1\n"+
			"obligations:\n"+
			"%v",
		obligationEntry(id, principal, annualRate, startDaysAgo),
	)
}

func obligationEntry(
	id string,
	principal float64,
	annualRate float64,
	startDaysAgo int,
) string {
	start := time.Now().
		Add(-time.Duration(startDaysAgo) * 24 * time.Hour).
		Format(time.RFC3339)

	return fmt.Sprintf(
		"  - id: %v\n"+
			"    name: Loan %v\n"+
			"    principal: %v\n"+
			"    annualRate: %v\n"+
			"    start: %v\n"+
			"    settlementCurrency: USDC\n"+
			"    active: true\n"+
			"    recipient:\n"+
			"      kind: email\n"+
			"      value: %v@example.com\n",
		id,
		id,
		principal,
		annualRate,
		start,
		id,
	)
}

func assertFloatsEqual(
	t *testing.T,
	description string,
	expected float64,
	actual *big.Float,
) {
	if actual == nil {
		t.Fatalf("%v is nil", description)
	}

	if actual.Cmp(big.NewFloat(expected)) != 0 {
		t.Errorf(
			"unexpected %v\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			description,
			expected,
			actual.Text('f', 8),
		)
	}
}
