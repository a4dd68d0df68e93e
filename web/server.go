package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	monitor "github.com/yashutanna/valr-loan-monitor"
)

// statusRecordsLimit is how many recent execution records the status
// endpoint returns.
const statusRecordsLimit = 20

// Server exposes the outward contract of the monitor: a status query and an
// on-demand cycle trigger.
type Server struct {
	registry            *monitor.ObligationRegistry
	executionRepository monitor.ExecutionRecordRepository
	runner              *monitor.CycleRunner
	logger              monitor.Logger
}

func NewServer(
	registry *monitor.ObligationRegistry,
	executionRepository monitor.ExecutionRecordRepository,
	runner *monitor.CycleRunner,
	logger monitor.Logger,
) *Server {
	return &Server{
		registry:            registry,
		executionRepository: executionRepository,
		runner:              runner,
		logger:              logger,
	}
}

func (s *Server) Run(ctx context.Context, port int) error {
	router := chi.NewRouter()

	router.Get("/status", s.handleStatus)
	router.Post("/cycles", s.handleTriggerCycle)
	router.Post("/obligations/reload", s.handleReloadObligations)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancelShutdownCtx := context.WithTimeout(
			context.Background(),
			10*time.Second,
		)
		defer cancelShutdownCtx()

		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Infof("serving on port [%v]", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}

type obligationStatus struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Principal            string `json:"principal"`
	AnnualRate           string `json:"annualRate"`
	SettlementCurrency   string `json:"settlementCurrency"`
	MonthlyDue           string `json:"monthlyDue"`
	InterestPaid         string `json:"interestPaid"`
	PrincipalPaid        string `json:"principalPaid"`
	LastPaymentTime      string `json:"lastPaymentTime,omitempty"`
	DaysSinceLastPayment int    `json:"daysSinceLastPayment"`
	PaymentsThisMonth    int    `json:"paymentsThisMonth"`
}

type executionStatus struct {
	ID                  string   `json:"id"`
	Time                string   `json:"time"`
	ActionsPlanned      int      `json:"actionsPlanned"`
	ActionsExecuted     int      `json:"actionsExecuted"`
	FiatSpent           string   `json:"fiatSpent"`
	ObligationPayments  int      `json:"obligationPayments"`
	RevolvingRepayments int      `json:"revolvingRepayments"`
	Success             bool     `json:"success"`
	Errors              []string `json:"errors,omitempty"`
}

type statusResponse struct {
	Obligations  []*obligationStatus `json:"obligations"`
	Executions   []*executionStatus  `json:"executions"`
	SuccessRate  float64             `json:"successRate"`
	CycleRunning bool                `json:"cycleRunning"`
}

func (s *Server) handleStatus(
	writer http.ResponseWriter,
	request *http.Request,
) {
	summaries, err := s.registry.Summaries()
	if err != nil {
		s.logger.Errorf("could not get obligation summaries: [%v]", err)
		http.Error(
			writer,
			"could not get obligation summaries",
			http.StatusInternalServerError,
		)
		return
	}

	records, err := s.executionRepository.Records(statusRecordsLimit)
	if err != nil {
		s.logger.Errorf("could not get execution records: [%v]", err)
		http.Error(
			writer,
			"could not get execution records",
			http.StatusInternalServerError,
		)
		return
	}

	stats, err := s.executionRepository.RecordStats()
	if err != nil {
		s.logger.Errorf("could not get execution stats: [%v]", err)
		http.Error(
			writer,
			"could not get execution stats",
			http.StatusInternalServerError,
		)
		return
	}

	response := &statusResponse{
		Obligations:  make([]*obligationStatus, 0, len(summaries)),
		Executions:   make([]*executionStatus, 0, len(records)),
		SuccessRate:  stats.SuccessRate(),
		CycleRunning: s.runner.Running(),
	}

	for _, summary := range summaries {
		status := &obligationStatus{
			ID:                   summary.Obligation.ID,
			Name:                 summary.Obligation.Name,
			Principal:            summary.Obligation.Principal.Text('f', 2),
			AnnualRate:           summary.Obligation.AnnualRate.Text('f', 4),
			SettlementCurrency:   string(summary.Obligation.SettlementCurrency),
			MonthlyDue:           summary.MonthlyDue.Text('f', 2),
			InterestPaid:         summary.InterestPaid.Text('f', 2),
			PrincipalPaid:        summary.PrincipalPaid.Text('f', 2),
			DaysSinceLastPayment: summary.DaysSinceLastPayment,
			PaymentsThisMonth:    summary.PaymentsThisMonth,
		}

		if summary.LastPaymentTime != nil {
			status.LastPaymentTime = summary.LastPaymentTime.
				Format(time.RFC3339)
		}

		response.Obligations = append(response.Obligations, status)
	}

	for _, record := range records {
		response.Executions = append(response.Executions, &executionStatus{
			ID:                  record.ID.String(),
			Time:                record.Time.Format(time.RFC3339),
			ActionsPlanned:      record.ActionsPlanned,
			ActionsExecuted:     record.ActionsExecuted,
			FiatSpent:           record.FiatSpent.Text('f', 2),
			ObligationPayments:  record.ObligationPayments,
			RevolvingRepayments: record.RevolvingRepayments,
			Success:             record.Success,
			Errors:              record.Errors,
		})
	}

	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(response); err != nil {
		s.logger.Errorf("could not encode status response: [%v]", err)
	}
}

func (s *Server) handleTriggerCycle(
	writer http.ResponseWriter,
	request *http.Request,
) {
	if s.runner.Running() {
		http.Error(
			writer,
			"a repayment cycle is already running",
			http.StatusConflict,
		)
		return
	}

	// The cycle is detached from the request context: once started it
	// always runs to completion.
	go func() {
		record, err := s.runner.RunCycle(context.Background())
		if err != nil {
			// Losing a start race against another trigger is routine.
			if err == monitor.ErrCycleRunning {
				s.logger.Warningf("skipping triggered cycle: [%v]", err)
				return
			}

			s.logger.Errorf("triggered cycle failed: [%v]", err)
			return
		}

		s.logger.Infof("triggered cycle [%v] completed", record.ID)
	}()

	writer.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleReloadObligations(
	writer http.ResponseWriter,
	request *http.Request,
) {
	if err := s.registry.Reload(); err != nil {
		s.logger.Errorf("could not reload obligations: [%v]", err)
		http.Error(
			writer,
			fmt.Sprintf("could not reload obligations: %v", err),
			http.StatusUnprocessableEntity,
		)
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}
