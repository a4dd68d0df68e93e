package monitor

import (
	"context"
	"math/big"
	"sort"
)

// RevolvingLoan is an exchange-margin borrow position with a floating rate,
// repayable at will. On VALR such positions show up as negative balances.
type RevolvingLoan struct {
	Currency   Currency
	Amount     *big.Float
	AnnualRate *big.Float
}

// LoanMetrics is an immutable snapshot of all revolving loans taken at the
// beginning of a cycle. The planner works against a single snapshot so the
// rate ordering cannot change between plan time and execution time.
type LoanMetrics struct {
	loans []*RevolvingLoan
}

func NewLoanMetrics(loans []*RevolvingLoan) *LoanMetrics {
	snapshot := make([]*RevolvingLoan, len(loans))
	copy(snapshot, loans)

	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].AnnualRate.Cmp(snapshot[j].AnnualRate) > 0
	})

	return &LoanMetrics{loans: snapshot}
}

// Loans returns the loans ordered by annual rate, descending.
func (lm *LoanMetrics) Loans() []*RevolvingLoan {
	loans := make([]*RevolvingLoan, len(lm.loans))
	copy(loans, lm.loans)

	return loans
}

func (lm *LoanMetrics) HighestRate() (*RevolvingLoan, bool) {
	if len(lm.loans) == 0 {
		return nil, false
	}

	return lm.loans[0], true
}

type LoanMetricsService interface {
	LoanMetrics(ctx context.Context) (*LoanMetrics, error)
}
