package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrCycleRunning is returned when a cycle trigger arrives while another
// cycle is still in flight.
var ErrCycleRunning = errors.New("a repayment cycle is already running")

// CycleRunner serializes repayment cycles. Cycles are triggered on a timer
// and on demand; the runner guarantees no two cycles execute concurrently
// since the planner and executor hold no mutual exclusion of their own.
type CycleRunner struct {
	executor     *Executor
	registry     *ObligationRegistry
	eventService EventService
	logger       Logger

	running int32
}

func NewCycleRunner(
	executor *Executor,
	registry *ObligationRegistry,
	eventService EventService,
	logger Logger,
) *CycleRunner {
	return &CycleRunner{
		executor:     executor,
		registry:     registry,
		eventService: eventService,
		logger:       logger,
	}
}

// RunCycle executes a single repayment cycle. It returns ErrCycleRunning
// when invoked while a previous cycle is still executing. Once started, a
// cycle always runs to completion.
func (cr *CycleRunner) RunCycle(ctx context.Context) (*ExecutionRecord, error) {
	if !atomic.CompareAndSwapInt32(&cr.running, 0, 1) {
		return nil, ErrCycleRunning
	}
	defer atomic.StoreInt32(&cr.running, 0)

	// The obligations document is re-read at each cycle start so definition
	// changes apply without a restart. A failed reload keeps the previous
	// set active.
	if err := cr.registry.Reload(); err != nil {
		cr.logger.Errorf("could not reload obligations: [%v]", err)
	}

	record, err := cr.executor.ExecuteCycle(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not execute cycle: [%v]", err)
	}

	if cr.eventService != nil {
		cr.eventService.Publish(NewCycleCompletedEvent(record))
	}

	return record, nil
}

func (cr *CycleRunner) Running() bool {
	return atomic.LoadInt32(&cr.running) == 1
}
