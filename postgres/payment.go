package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgtype"
	monitor "github.com/yashutanna/valr-loan-monitor"
)

type PaymentRepository struct {
	client    *Client
	idService monitor.IDService
}

func NewPaymentRepository(
	client *Client,
	idService monitor.IDService,
) *PaymentRepository {
	return &PaymentRepository{client, idService}
}

func (pr *PaymentRepository) CreatePayment(
	payment *monitor.ObligationPayment,
) error {
	query := `INSERT INTO
    	obligation_payment (id, obligation_id, time, fiat_amount, currency,
    	                    crypto_amount, transfer_id, kind)
    	VALUES (:id, :obligation_id, :time, :fiat_amount, :currency,
    	        :crypto_amount, :transfer_id, :kind)`

	paymentRow, err := new(paymentRow).wrap(payment)
	if err != nil {
		return fmt.Errorf(
			"could not convert payment [%v] to pg row: [%v]",
			payment.ID,
			err,
		)
	}

	_, err = pr.client.instance().NamedExec(query, paymentRow)
	if err != nil {
		return fmt.Errorf(
			"could not execute command for payment [%v]: [%v]",
			payment.ID,
			err,
		)
	}

	return nil
}

func (pr *PaymentRepository) LastPayment(
	obligationID string,
) (*monitor.ObligationPayment, error) {
	var paymentRow paymentRow

	query := `SELECT * FROM obligation_payment
		WHERE obligation_id = $1
		ORDER BY time DESC LIMIT 1`

	err := pr.client.instance().Get(&paymentRow, query, obligationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf(
			"could not execute query for obligation [%v]: [%v]",
			obligationID,
			err,
		)
	}

	return paymentRow.unwrap(pr.idService)
}

func (pr *PaymentRepository) PaymentsInMonth(
	obligationID string,
	year int,
	month time.Month,
) (int, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var count int

	query := `SELECT COUNT(*) FROM obligation_payment
		WHERE obligation_id = $1 AND time >= $2 AND time < $3`

	err := pr.client.instance().Get(
		&count,
		query,
		obligationID,
		monthStart,
		monthEnd,
	)
	if err != nil {
		return 0, fmt.Errorf(
			"could not execute query for obligation [%v]: [%v]",
			obligationID,
			err,
		)
	}

	return count, nil
}

func (pr *PaymentRepository) PaymentTotals(
	obligationID string,
) (*monitor.PaymentTotals, error) {
	var totalsRow struct {
		Interest  pgtype.Numeric
		Principal pgtype.Numeric
	}

	query := `SELECT
    		COALESCE(SUM(fiat_amount) FILTER (WHERE kind = 'INTEREST'), 0)
    			AS interest,
    		COALESCE(SUM(fiat_amount) FILTER (WHERE kind = 'PRINCIPAL'), 0)
    			AS principal
		FROM obligation_payment WHERE obligation_id = $1`

	err := pr.client.instance().Get(&totalsRow, query, obligationID)
	if err != nil {
		return nil, fmt.Errorf(
			"could not execute query for obligation [%v]: [%v]",
			obligationID,
			err,
		)
	}

	interest, err := numericToFloat(totalsRow.Interest)
	if err != nil {
		return nil, err
	}

	principal, err := numericToFloat(totalsRow.Principal)
	if err != nil {
		return nil, err
	}

	return &monitor.PaymentTotals{
		Interest:  interest,
		Principal: principal,
	}, nil
}

type paymentRow struct {
	ID           string
	ObligationID string `db:"obligation_id"`
	Time         time.Time
	FiatAmount   pgtype.Numeric `db:"fiat_amount"`
	Currency     string
	CryptoAmount pgtype.Numeric `db:"crypto_amount"`
	TransferID   string         `db:"transfer_id"`
	Kind         string
}

func (pr *paymentRow) wrap(
	payment *monitor.ObligationPayment,
) (*paymentRow, error) {
	fiatAmount, err := floatToNumeric(payment.FiatAmount)
	if err != nil {
		return nil, err
	}

	cryptoAmount, err := floatToNumeric(payment.CryptoAmount)
	if err != nil {
		return nil, err
	}

	pr.ID = payment.ID.String()
	pr.ObligationID = payment.ObligationID
	pr.Time = payment.Time
	pr.FiatAmount = fiatAmount
	pr.Currency = string(payment.Currency)
	pr.CryptoAmount = cryptoAmount
	pr.TransferID = payment.TransferID
	pr.Kind = payment.Kind.String()

	return pr, nil
}

func (pr *paymentRow) unwrap(
	idService monitor.IDService,
) (*monitor.ObligationPayment, error) {
	ID, err := idService.NewIDFromString(pr.ID)
	if err != nil {
		return nil, err
	}

	fiatAmount, err := numericToFloat(pr.FiatAmount)
	if err != nil {
		return nil, err
	}

	cryptoAmount, err := numericToFloat(pr.CryptoAmount)
	if err != nil {
		return nil, err
	}

	kind, err := monitor.ParsePaymentKind(pr.Kind)
	if err != nil {
		return nil, err
	}

	return &monitor.ObligationPayment{
		ID:           ID,
		ObligationID: pr.ObligationID,
		Time:         pr.Time,
		FiatAmount:   fiatAmount,
		Currency:     monitor.Currency(pr.Currency),
		CryptoAmount: cryptoAmount,
		TransferID:   pr.TransferID,
		Kind:         kind,
	}, nil
}
