package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgtype"
	monitor "github.com/yashutanna/valr-loan-monitor"
)

type ExecutionRecordRepository struct {
	client    *Client
	idService monitor.IDService
}

func NewExecutionRecordRepository(
	client *Client,
	idService monitor.IDService,
) *ExecutionRecordRepository {
	return &ExecutionRecordRepository{client, idService}
}

func (er *ExecutionRecordRepository) UpsertRecord(
	record *monitor.ExecutionRecord,
) error {
	query := `INSERT INTO
    	execution_record (id, time, actions_planned, actions_executed,
    	                  fiat_spent, obligation_payments,
    	                  revolving_repayments, success, errors, snapshot)
    	VALUES (:id, :time, :actions_planned, :actions_executed,
    	        :fiat_spent, :obligation_payments,
    	        :revolving_repayments, :success, :errors, :snapshot)
		ON CONFLICT (id) DO UPDATE SET
			actions_planned = EXCLUDED.actions_planned,
			actions_executed = EXCLUDED.actions_executed,
			fiat_spent = EXCLUDED.fiat_spent,
			obligation_payments = EXCLUDED.obligation_payments,
			revolving_repayments = EXCLUDED.revolving_repayments,
			success = EXCLUDED.success,
			errors = EXCLUDED.errors,
			snapshot = EXCLUDED.snapshot`

	recordRow, err := new(executionRecordRow).wrap(record)
	if err != nil {
		return fmt.Errorf(
			"could not convert execution record [%v] to pg row: [%v]",
			record.ID,
			err,
		)
	}

	_, err = er.client.instance().NamedExec(query, recordRow)
	if err != nil {
		return fmt.Errorf(
			"could not execute command for execution record [%v]: [%v]",
			record.ID,
			err,
		)
	}

	return nil
}

func (er *ExecutionRecordRepository) Records(
	limit int,
) ([]*monitor.ExecutionRecord, error) {
	var recordRows []executionRecordRow

	query := `SELECT * FROM execution_record ORDER BY time DESC LIMIT $1`

	err := er.client.instance().Select(&recordRows, query, limit)
	if err != nil {
		return nil, fmt.Errorf("could not execute query: [%v]", err)
	}

	records := make([]*monitor.ExecutionRecord, 0, len(recordRows))

	for _, recordRow := range recordRows {
		record, err := recordRow.unwrap(er.idService)
		if err != nil {
			return nil, fmt.Errorf(
				"could not convert execution record [%v] "+
					"from pg row: [%v]",
				recordRow.ID,
				err,
			)
		}

		records = append(records, record)
	}

	return records, nil
}

func (er *ExecutionRecordRepository) RecordStats() (
	*monitor.ExecutionStats,
	error,
) {
	var statsRow struct {
		Total     int
		Succeeded int
	}

	query := `SELECT
    		COUNT(*) AS total,
    		COUNT(*) FILTER (WHERE success) AS succeeded
		FROM execution_record`

	err := er.client.instance().Get(&statsRow, query)
	if err != nil {
		return nil, fmt.Errorf("could not execute query: [%v]", err)
	}

	return &monitor.ExecutionStats{
		Total:     statsRow.Total,
		Succeeded: statsRow.Succeeded,
	}, nil
}

type executionRecordRow struct {
	ID                  string
	Time                time.Time
	ActionsPlanned      int            `db:"actions_planned"`
	ActionsExecuted     int            `db:"actions_executed"`
	FiatSpent           pgtype.Numeric `db:"fiat_spent"`
	ObligationPayments  int            `db:"obligation_payments"`
	RevolvingRepayments int            `db:"revolving_repayments"`
	Success             bool
	Errors              []byte
	Snapshot            []byte
}

func (er *executionRecordRow) wrap(
	record *monitor.ExecutionRecord,
) (*executionRecordRow, error) {
	fiatSpent, err := floatToNumeric(record.FiatSpent)
	if err != nil {
		return nil, err
	}

	errors, err := json.Marshal(record.Errors)
	if err != nil {
		return nil, err
	}

	er.ID = record.ID.String()
	er.Time = record.Time
	er.ActionsPlanned = record.ActionsPlanned
	er.ActionsExecuted = record.ActionsExecuted
	er.FiatSpent = fiatSpent
	er.ObligationPayments = record.ObligationPayments
	er.RevolvingRepayments = record.RevolvingRepayments
	er.Success = record.Success
	er.Errors = errors
	er.Snapshot = record.Snapshot

	return er, nil
}

func (er *executionRecordRow) unwrap(
	idService monitor.IDService,
) (*monitor.ExecutionRecord, error) {
	ID, err := idService.NewIDFromString(er.ID)
	if err != nil {
		return nil, err
	}

	fiatSpent, err := numericToFloat(er.FiatSpent)
	if err != nil {
		return nil, err
	}

	var errors []string
	if len(er.Errors) > 0 {
		if err := json.Unmarshal(er.Errors, &errors); err != nil {
			return nil, err
		}
	}

	return &monitor.ExecutionRecord{
		ID:                  ID,
		Time:                er.Time,
		ActionsPlanned:      er.ActionsPlanned,
		ActionsExecuted:     er.ActionsExecuted,
		FiatSpent:           fiatSpent,
		ObligationPayments:  er.ObligationPayments,
		RevolvingRepayments: er.RevolvingRepayments,
		Success:             er.Success,
		Errors:              errors,
		Snapshot:            er.Snapshot,
	}, nil
}
