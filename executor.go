package monitor

import (
	"context"
	"fmt"
	"math/big"
	"time"
)

// ExecutionRecord is the durable audit entry of a single cycle. Exactly one
// terminal record exists per cycle; a provisional record with the same ID is
// written when execution starts and replaced on completion.
type ExecutionRecord struct {
	ID                  ID
	Time                time.Time
	ActionsPlanned      int
	ActionsExecuted     int
	FiatSpent           *big.Float
	ObligationPayments  int
	RevolvingRepayments int
	Success             bool
	Errors              []string
	Snapshot            []byte
}

type ExecutionStats struct {
	Total     int
	Succeeded int
}

func (es *ExecutionStats) SuccessRate() float64 {
	if es.Total == 0 {
		return 0
	}

	return float64(es.Succeeded) / float64(es.Total)
}

type ExecutionRecordRepository interface {
	// UpsertRecord inserts the record or, when a record with the same ID
	// already exists, replaces it.
	UpsertRecord(record *ExecutionRecord) error

	// Records returns the most recent records, newest first.
	Records(limit int) ([]*ExecutionRecord, error)

	RecordStats() (*ExecutionStats, error)
}

// RevolvingRepayment is an append-only record of funds moved into the
// debt-servicing account, linked to the owning execution record.
type RevolvingRepayment struct {
	ID           ID
	ExecutionID  ID
	Time         time.Time
	Currency     Currency
	CryptoAmount *big.Float
	FiatSpent    *big.Float
	TransferID   string
}

type RevolvingRepaymentRepository interface {
	CreateRepayment(repayment *RevolvingRepayment) error
}

// ActionResult captures the outcome of one executed action for the audit
// snapshot.
type ActionResult struct {
	Action   *Action
	Trade    *TradeResult
	Transfer *TransferResult
	Error    string
}

// Executor carries a repayment plan out action by action. Market and
// transfer failures are isolated per action and recorded; only ledger
// errors propagate and fail the cycle.
type Executor struct {
	planner             *Planner
	market              Market
	metricsService      LoanMetricsService
	paymentRepository   PaymentRepository
	executionRepository ExecutionRecordRepository
	revolvingRepository RevolvingRepaymentRepository
	idService           IDService
	logger              Logger
}

func NewExecutor(
	planner *Planner,
	market Market,
	metricsService LoanMetricsService,
	paymentRepository PaymentRepository,
	executionRepository ExecutionRecordRepository,
	revolvingRepository RevolvingRepaymentRepository,
	idService IDService,
	logger Logger,
) *Executor {
	return &Executor{
		planner:             planner,
		market:              market,
		metricsService:      metricsService,
		paymentRepository:   paymentRepository,
		executionRepository: executionRepository,
		revolvingRepository: revolvingRepository,
		idService:           idService,
		logger:              logger,
	}
}

// ExecuteCycle runs one full planning and execution pass. Every invocation
// persists exactly one terminal execution record, including deliberately
// skipped cycles.
func (e *Executor) ExecuteCycle(ctx context.Context) (*ExecutionRecord, error) {
	record := &ExecutionRecord{
		ID:        e.idService.NewID(),
		Time:      time.Now(),
		FiatSpent: big.NewFloat(0),
		Errors:    make([]string, 0),
	}

	cycleLogger := e.logger.WithField("cycleID", record.ID.String())

	// The loan-metrics read is part of the planning phase: a failing
	// metrics source still leaves a terminal record behind.
	metrics, err := e.metricsService.LoanMetrics(ctx)
	if err != nil {
		record.Errors = append(
			record.Errors,
			fmt.Sprintf("could not read loan metrics: [%v]", err),
		)

		if upsertErr := e.executionRepository.UpsertRecord(record); upsertErr != nil {
			return nil, fmt.Errorf(
				"could not persist execution record: [%v]",
				upsertErr,
			)
		}

		cycleLogger.Errorf("cycle planning failed: [%v]", err)

		return record, nil
	}

	plan, err := e.planner.Plan(ctx, metrics)
	if err != nil {
		record.Errors = append(
			record.Errors,
			fmt.Sprintf("planning failed: [%v]", err),
		)

		if upsertErr := e.executionRepository.UpsertRecord(record); upsertErr != nil {
			return nil, fmt.Errorf(
				"could not persist execution record: [%v]",
				upsertErr,
			)
		}

		cycleLogger.Errorf("cycle planning failed: [%v]", err)

		return record, nil
	}

	record.ActionsPlanned = len(plan.Actions)

	if !plan.CanExecute {
		// A skipped cycle is a deliberate abstention, not a failure.
		record.Success = true
		record.Errors = append(record.Errors, plan.SkipReason)
		record.Snapshot = marshalSnapshot(plan, nil)

		if err := e.executionRepository.UpsertRecord(record); err != nil {
			return nil, fmt.Errorf(
				"could not persist execution record: [%v]",
				err,
			)
		}

		cycleLogger.Infof("cycle skipped: %v", plan.SkipReason)

		return record, nil
	}

	// Provisional record marks the cycle start before any funds move.
	if err := e.executionRepository.UpsertRecord(record); err != nil {
		return nil, fmt.Errorf(
			"could not persist provisional execution record: [%v]",
			err,
		)
	}

	cycleLogger.Infof(
		"executing [%v] planned actions with available fiat [%v]",
		len(plan.Actions),
		plan.AvailableFiat.Text('f', 2),
	)

	results := make([]*ActionResult, 0, len(plan.Actions))

	for _, action := range plan.Actions {
		result, err := e.executeAction(ctx, cycleLogger, record, action)
		if err != nil {
			// Ledger failure - fatal to the cycle.
			return nil, err
		}

		results = append(results, result)

		if len(result.Error) > 0 {
			cycleLogger.Errorf(
				"action [%v/%v] failed: %v",
				action.Type,
				action.TargetID,
				result.Error,
			)
			record.Errors = append(record.Errors, result.Error)
			continue
		}

		record.ActionsExecuted++
	}

	record.Success = len(record.Errors) == 0
	record.Snapshot = marshalSnapshot(plan, results)

	if err := e.executionRepository.UpsertRecord(record); err != nil {
		return nil, fmt.Errorf(
			"could not persist terminal execution record: [%v]",
			err,
		)
	}

	cycleLogger.Infof(
		"cycle done; executed [%v] of [%v] actions, spent [%v] fiat",
		record.ActionsExecuted,
		record.ActionsPlanned,
		record.FiatSpent.Text('f', 2),
	)

	return record, nil
}

func (e *Executor) executeAction(
	ctx context.Context,
	cycleLogger Logger,
	record *ExecutionRecord,
	action *Action,
) (*ActionResult, error) {
	result := &ActionResult{Action: action}

	trade := e.market.BuyWithFiat(ctx, action.Currency, action.FiatAmount)
	result.Trade = trade

	if !trade.Success {
		result.Error = fmt.Sprintf(
			"could not buy [%v] for [%v] fiat: %v",
			action.Currency,
			action.FiatAmount.Text('f', 2),
			trade.Error,
		)
		return result, nil
	}

	// Fiat leaves the funding account at trade time, regardless of whether
	// the subsequent transfer succeeds.
	record.FiatSpent.Add(record.FiatSpent, trade.FiatSpent)

	switch action.Type {
	case ActionObligation:
		transfer := e.market.TransferToRecipient(
			ctx,
			action.Currency,
			trade.CryptoAmount,
			*action.Recipient,
		)
		result.Transfer = transfer

		if !transfer.Success {
			// Known gap: the fiat is spent and the crypto acquired but not
			// delivered to the lender. There is intentionally no automatic
			// sell-back or retry; the error record is the only outcome.
			result.Error = fmt.Sprintf(
				"bought [%v] [%v] but could not transfer it "+
					"to recipient [%v]: %v",
				trade.CryptoAmount.Text('f', 8),
				action.Currency,
				action.Recipient.Value,
				transfer.Error,
			)
			return result, nil
		}

		payment := &ObligationPayment{
			ID:           e.idService.NewID(),
			ObligationID: action.TargetID,
			Time:         time.Now(),
			FiatAmount:   trade.FiatSpent,
			Currency:     action.Currency,
			CryptoAmount: trade.CryptoAmount,
			TransferID:   transfer.TransferID,
			Kind:         PaymentInterest,
		}

		if err := e.paymentRepository.CreatePayment(payment); err != nil {
			return nil, fmt.Errorf(
				"could not persist payment for obligation [%v]: [%v]",
				action.TargetID,
				err,
			)
		}

		record.ObligationPayments++

		cycleLogger.Infof(
			"paid [%v] fiat as [%v] [%v] to obligation [%v]",
			trade.FiatSpent.Text('f', 2),
			trade.CryptoAmount.Text('f', 8),
			action.Currency,
			action.TargetID,
		)
	case ActionRevolvingDebt:
		transfer := e.market.TransferToLoanAccount(
			ctx,
			action.Currency,
			trade.CryptoAmount,
		)
		result.Transfer = transfer

		if !transfer.Success {
			result.Error = fmt.Sprintf(
				"bought [%v] [%v] but could not transfer it "+
					"to the loan account: %v",
				trade.CryptoAmount.Text('f', 8),
				action.Currency,
				transfer.Error,
			)
			return result, nil
		}

		repayment := &RevolvingRepayment{
			ID:           e.idService.NewID(),
			ExecutionID:  record.ID,
			Time:         time.Now(),
			Currency:     action.Currency,
			CryptoAmount: trade.CryptoAmount,
			FiatSpent:    trade.FiatSpent,
			TransferID:   transfer.TransferID,
		}

		if err := e.revolvingRepository.CreateRepayment(repayment); err != nil {
			return nil, fmt.Errorf(
				"could not persist revolving repayment for [%v]: [%v]",
				action.Currency,
				err,
			)
		}

		record.RevolvingRepayments++

		cycleLogger.Infof(
			"repaid [%v] fiat of revolving [%v] debt",
			trade.FiatSpent.Text('f', 2),
			action.Currency,
		)
	}

	return result, nil
}
