package main

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/robfig/cron"
	monitor "github.com/yashutanna/valr-loan-monitor"
	"github.com/yashutanna/valr-loan-monitor/logrus"
	"github.com/yashutanna/valr-loan-monitor/postgres"
	"github.com/yashutanna/valr-loan-monitor/pubsub"
	"github.com/yashutanna/valr-loan-monitor/uuid"
	"github.com/yashutanna/valr-loan-monitor/valr"
	"github.com/yashutanna/valr-loan-monitor/web"
)

func main() {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	config, err := readConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "could not read config: [%v]", err)
		os.Exit(1)
	}

	logger := logrus.ConfigureStandardLogger(
		config.Logging.Format,
		config.Logging.Level,
	)

	postgresClient, err := connectPostgres(ctx, logger, &config.Database)
	if err != nil {
		logger.Fatalf("could not connect postgres: [%v]", err)
	}

	idService := &uuid.IDService{}

	paymentRepository := postgres.NewPaymentRepository(
		postgresClient,
		idService,
	)
	executionRepository := postgres.NewExecutionRecordRepository(
		postgresClient,
		idService,
	)
	revolvingRepository := postgres.NewRevolvingRepaymentRepository(
		postgresClient,
	)

	registry := monitor.NewObligationRegistry(
		monitor.NewFileSource(config.Repayment.ObligationsFile),
		paymentRepository,
		logger,
	)
	if err := registry.Load(); err != nil {
		logger.Fatalf("could not load obligations: [%v]", err)
	}

	valrConfig := &valr.Config{
		ApiKey:           config.Valr.ApiKey,
		ApiSecret:        config.Valr.ApiSecret,
		BaseURL:          config.Valr.BaseURL,
		FundingAccountID: config.Valr.FundingAccountID,
		LoanAccountID:    config.Valr.LoanAccountID,
		Simulation:       config.Valr.Simulation,
	}

	if config.Valr.Simulation {
		logger.Warningf(
			"running in simulation mode; no orders or transfers " +
				"will be placed",
		)
	}

	market := valr.NewExchangeService(valrConfig)
	loanService := valr.NewLoanService(valrConfig, logger)

	planner := monitor.NewPlanner(
		registry,
		market,
		monitor.Currency(config.Repayment.FiatCurrency),
		big.NewFloat(config.Repayment.MinReserve),
		logger,
	)

	executor := monitor.NewExecutor(
		planner,
		market,
		loanService,
		paymentRepository,
		executionRepository,
		revolvingRepository,
		idService,
		logger,
	)

	var eventService monitor.EventService
	if len(config.Pubsub.ProjectID) > 0 {
		pubsubClient, err := pubsub.NewClient(
			ctx,
			config.Pubsub.ProjectID,
			config.Pubsub.TopicID,
		)
		if err != nil {
			logger.Fatalf("could not create pubsub client: [%v]", err)
		}

		eventService = pubsub.NewEventService(pubsubClient, logger)
	}

	runner := monitor.NewCycleRunner(
		executor,
		registry,
		eventService,
		logger,
	)

	scheduler := cron.New()
	err = scheduler.AddFunc(
		"@every "+config.Repayment.Interval,
		func() {
			runScheduledCycle(ctx, logger, runner)
		},
	)
	if err != nil {
		logger.Fatalf("could not schedule repayment cycles: [%v]", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	logger.Infof(
		"repayment cycles scheduled every [%v]",
		config.Repayment.Interval,
	)

	server := web.NewServer(registry, executionRepository, runner, logger)
	if err := server.Run(ctx, config.Server.Port); err != nil {
		logger.Fatalf("server error: [%v]", err)
	}
}

func runScheduledCycle(
	ctx context.Context,
	logger monitor.Logger,
	runner *monitor.CycleRunner,
) {
	record, err := runner.RunCycle(ctx)
	if err != nil {
		if err == monitor.ErrCycleRunning {
			logger.Warningf("skipping scheduled cycle: [%v]", err)
			return
		}

		logger.Errorf("scheduled cycle failed: [%v]", err)
		return
	}

	logger.Infof("scheduled cycle [%v] completed", record.ID)
}

func connectPostgres(
	ctx context.Context,
	logger monitor.Logger,
	config *Database,
) (*postgres.Client, error) {
	if err := postgres.RunMigration(
		logger,
		(*postgres.Config)(config),
	); err != nil {
		return nil, fmt.Errorf(
			"could not run postgres migration: [%v]",
			err,
		)
	}

	client, err := postgres.NewClient(
		ctx,
		(*postgres.Config)(config),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"could not create postgres client: [%v]",
			err,
		)
	}

	return client, nil
}
