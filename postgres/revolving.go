package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgtype"
	monitor "github.com/yashutanna/valr-loan-monitor"
)

type RevolvingRepaymentRepository struct {
	client *Client
}

func NewRevolvingRepaymentRepository(
	client *Client,
) *RevolvingRepaymentRepository {
	return &RevolvingRepaymentRepository{client}
}

func (rr *RevolvingRepaymentRepository) CreateRepayment(
	repayment *monitor.RevolvingRepayment,
) error {
	query := `INSERT INTO
    	revolving_repayment (id, execution_id, time, currency,
    	                     crypto_amount, fiat_spent, transfer_id)
    	VALUES (:id, :execution_id, :time, :currency,
    	        :crypto_amount, :fiat_spent, :transfer_id)`

	repaymentRow, err := new(revolvingRepaymentRow).wrap(repayment)
	if err != nil {
		return fmt.Errorf(
			"could not convert revolving repayment [%v] to pg row: [%v]",
			repayment.ID,
			err,
		)
	}

	_, err = rr.client.instance().NamedExec(query, repaymentRow)
	if err != nil {
		return fmt.Errorf(
			"could not execute command for revolving repayment [%v]: [%v]",
			repayment.ID,
			err,
		)
	}

	return nil
}

type revolvingRepaymentRow struct {
	ID           string
	ExecutionID  string `db:"execution_id"`
	Time         time.Time
	Currency     string
	CryptoAmount pgtype.Numeric `db:"crypto_amount"`
	FiatSpent    pgtype.Numeric `db:"fiat_spent"`
	TransferID   string         `db:"transfer_id"`
}

func (rr *revolvingRepaymentRow) wrap(
	repayment *monitor.RevolvingRepayment,
) (*revolvingRepaymentRow, error) {
	cryptoAmount, err := floatToNumeric(repayment.CryptoAmount)
	if err != nil {
		return nil, err
	}

	fiatSpent, err := floatToNumeric(repayment.FiatSpent)
	if err != nil {
		return nil, err
	}

	rr.ID = repayment.ID.String()
	rr.ExecutionID = repayment.ExecutionID.String()
	rr.Time = repayment.Time
	rr.Currency = string(repayment.Currency)
	rr.CryptoAmount = cryptoAmount
	rr.FiatSpent = fiatSpent
	rr.TransferID = repayment.TransferID

	return rr, nil
}
