package inmem

import (
	"math/big"
	"sync"
	"time"

	monitor "github.com/yashutanna/valr-loan-monitor"
)

type PaymentRepository struct {
	paymentsMutex sync.RWMutex
	payments      map[string][]*monitor.ObligationPayment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments: make(map[string][]*monitor.ObligationPayment),
	}
}

func (pr *PaymentRepository) CreatePayment(
	payment *monitor.ObligationPayment,
) error {
	pr.paymentsMutex.Lock()
	defer pr.paymentsMutex.Unlock()

	pr.payments[payment.ObligationID] = append(
		pr.payments[payment.ObligationID],
		payment,
	)

	return nil
}

func (pr *PaymentRepository) LastPayment(
	obligationID string,
) (*monitor.ObligationPayment, error) {
	pr.paymentsMutex.RLock()
	defer pr.paymentsMutex.RUnlock()

	var lastPayment *monitor.ObligationPayment

	for _, payment := range pr.payments[obligationID] {
		if lastPayment == nil || payment.Time.After(lastPayment.Time) {
			lastPayment = payment
		}
	}

	return lastPayment, nil
}

func (pr *PaymentRepository) PaymentsInMonth(
	obligationID string,
	year int,
	month time.Month,
) (int, error) {
	pr.paymentsMutex.RLock()
	defer pr.paymentsMutex.RUnlock()

	count := 0

	for _, payment := range pr.payments[obligationID] {
		if payment.Time.Year() == year && payment.Time.Month() == month {
			count++
		}
	}

	return count, nil
}

func (pr *PaymentRepository) PaymentTotals(
	obligationID string,
) (*monitor.PaymentTotals, error) {
	pr.paymentsMutex.RLock()
	defer pr.paymentsMutex.RUnlock()

	totals := &monitor.PaymentTotals{
		Interest:  big.NewFloat(0),
		Principal: big.NewFloat(0),
	}

	for _, payment := range pr.payments[obligationID] {
		switch payment.Kind {
		case monitor.PaymentInterest:
			totals.Interest.Add(totals.Interest, payment.FiatAmount)
		case monitor.PaymentPrincipal:
			totals.Principal.Add(totals.Principal, payment.FiatAmount)
		}
	}

	return totals, nil
}
