package inmem

import (
	"context"
	"sync"

	monitor "github.com/yashutanna/valr-loan-monitor"
)

// LoanMetricsService serves a static set of revolving loans. Useful in
// tests and when running against an account with no margin facility.
type LoanMetricsService struct {
	loansMutex sync.RWMutex
	loans      []*monitor.RevolvingLoan
}

func NewLoanMetricsService(
	loans ...*monitor.RevolvingLoan,
) *LoanMetricsService {
	return &LoanMetricsService{loans: loans}
}

func (lms *LoanMetricsService) SetLoans(loans ...*monitor.RevolvingLoan) {
	lms.loansMutex.Lock()
	defer lms.loansMutex.Unlock()

	lms.loans = loans
}

func (lms *LoanMetricsService) LoanMetrics(
	ctx context.Context,
) (*monitor.LoanMetrics, error) {
	lms.loansMutex.RLock()
	defer lms.loansMutex.RUnlock()

	return monitor.NewLoanMetrics(lms.loans), nil
}
