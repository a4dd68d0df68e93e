package inmem

import (
	"sync"

	monitor "github.com/yashutanna/valr-loan-monitor"
)

type RevolvingRepaymentRepository struct {
	repaymentsMutex sync.RWMutex
	repayments      []*monitor.RevolvingRepayment
}

func NewRevolvingRepaymentRepository() *RevolvingRepaymentRepository {
	return &RevolvingRepaymentRepository{
		repayments: make([]*monitor.RevolvingRepayment, 0),
	}
}

func (rr *RevolvingRepaymentRepository) CreateRepayment(
	repayment *monitor.RevolvingRepayment,
) error {
	rr.repaymentsMutex.Lock()
	defer rr.repaymentsMutex.Unlock()

	rr.repayments = append(rr.repayments, repayment)

	return nil
}

func (rr *RevolvingRepaymentRepository) Repayments() []*monitor.RevolvingRepayment {
	rr.repaymentsMutex.RLock()
	defer rr.repaymentsMutex.RUnlock()

	snapshot := make([]*monitor.RevolvingRepayment, len(rr.repayments))
	copy(snapshot, rr.repayments)

	return snapshot
}
