package monitor

import (
	"context"
	"fmt"
	"math/big"
	"sort"
)

type ActionType int

const (
	ActionObligation ActionType = iota
	ActionRevolvingDebt
)

func (at ActionType) String() string {
	switch at {
	case ActionObligation:
		return "OBLIGATION"
	case ActionRevolvingDebt:
		return "REVOLVING_DEBT"
	default:
		panic("unknown action type")
	}
}

const (
	priorityObligation    = 1
	priorityRevolvingDebt = 2
)

// Action is a single planned payment step. Ephemeral - constructed fresh
// each cycle and persisted only inside the plan snapshot.
type Action struct {
	Priority   int
	Type       ActionType
	TargetID   string
	Currency   Currency
	FiatAmount *big.Float
	AnnualRate *big.Float
	Recipient  *Recipient
}

type Plan struct {
	AvailableFiat *big.Float
	RequiredFiat  *big.Float
	CanExecute    bool
	Actions       []*Action
	SkipReason    string
}

// Planner builds a prioritized, budget-constrained repayment plan.
// Obligations form an all-or-nothing first tier; whatever fiat remains is
// deployed in a single action against the most expensive revolving loan.
type Planner struct {
	registry     *ObligationRegistry
	market       Market
	fiatCurrency Currency
	minReserve   *big.Float
	logger       Logger
}

func NewPlanner(
	registry *ObligationRegistry,
	market Market,
	fiatCurrency Currency,
	minReserve *big.Float,
	logger Logger,
) *Planner {
	return &Planner{
		registry:     registry,
		market:       market,
		fiatCurrency: fiatCurrency,
		minReserve:   minReserve,
		logger:       logger,
	}
}

func (p *Planner) Plan(
	ctx context.Context,
	metrics *LoanMetrics,
) (*Plan, error) {
	available, err := p.market.Balance(ctx, p.fiatCurrency)
	if err != nil {
		return nil, fmt.Errorf(
			"could not read funding account balance: [%v]",
			err,
		)
	}

	usable := new(big.Float).Sub(available, p.minReserve)

	plan := &Plan{
		AvailableFiat: available,
		RequiredFiat:  big.NewFloat(0),
		Actions:       make([]*Action, 0),
	}

	if usable.Cmp(big.NewFloat(0)) <= 0 {
		plan.SkipReason = fmt.Sprintf(
			"available fiat [%v] does not exceed the minimum reserve [%v]",
			available.Text('f', 2),
			p.minReserve.Text('f', 2),
		)
		return plan, nil
	}

	pending, err := p.registry.PaymentsDue()
	if err != nil {
		return nil, fmt.Errorf("could not compute due payments: [%v]", err)
	}

	obligationTotal := big.NewFloat(0)
	for _, payment := range pending {
		obligationTotal.Add(obligationTotal, payment.FiatAmount)

		plan.Actions = append(plan.Actions, &Action{
			Priority:   priorityObligation,
			Type:       ActionObligation,
			TargetID:   payment.Obligation.ID,
			Currency:   payment.Currency,
			FiatAmount: payment.FiatAmount,
			Recipient:  &payment.Obligation.Recipient,
		})
	}

	plan.RequiredFiat = obligationTotal

	// Obligation instalments are owed to people and are settled in full or
	// not at all - no partial payments are ever planned.
	if usable.Cmp(obligationTotal) < 0 {
		plan.SkipReason = fmt.Sprintf(
			"usable fiat [%v] does not cover due obligations [%v]",
			usable.Text('f', 2),
			obligationTotal.Text('f', 2),
		)
		return plan, nil
	}

	remaining := new(big.Float).Sub(usable, obligationTotal)

	if remaining.Cmp(big.NewFloat(0)) > 0 {
		if loan, exists := metrics.HighestRate(); exists {
			plan.Actions = append(plan.Actions, &Action{
				Priority:   priorityRevolvingDebt,
				Type:       ActionRevolvingDebt,
				TargetID:   string(loan.Currency),
				Currency:   loan.Currency,
				FiatAmount: remaining,
				AnnualRate: loan.AnnualRate,
			})
		} else {
			p.logger.Debugf(
				"no revolving loans to allocate remaining fiat [%v] to",
				remaining.Text('f', 2),
			)
		}
	}

	sort.SliceStable(plan.Actions, func(i, j int) bool {
		return plan.Actions[i].Priority < plan.Actions[j].Priority
	})

	plan.CanExecute = true

	return plan, nil
}
