package inmem

import (
	"sort"
	"sync"

	monitor "github.com/yashutanna/valr-loan-monitor"
)

type ExecutionRecordRepository struct {
	recordsMutex sync.RWMutex
	records      map[string]*monitor.ExecutionRecord
}

func NewExecutionRecordRepository() *ExecutionRecordRepository {
	return &ExecutionRecordRepository{
		records: make(map[string]*monitor.ExecutionRecord),
	}
}

func (er *ExecutionRecordRepository) UpsertRecord(
	record *monitor.ExecutionRecord,
) error {
	er.recordsMutex.Lock()
	defer er.recordsMutex.Unlock()

	snapshot := *record
	er.records[record.ID.String()] = &snapshot

	return nil
}

func (er *ExecutionRecordRepository) Records(
	limit int,
) ([]*monitor.ExecutionRecord, error) {
	er.recordsMutex.RLock()
	defer er.recordsMutex.RUnlock()

	records := make([]*monitor.ExecutionRecord, 0, len(er.records))
	for _, record := range er.records {
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time.After(records[j].Time)
	})

	if len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

func (er *ExecutionRecordRepository) RecordStats() (
	*monitor.ExecutionStats,
	error,
) {
	er.recordsMutex.RLock()
	defer er.recordsMutex.RUnlock()

	stats := &monitor.ExecutionStats{}

	for _, record := range er.records {
		stats.Total++
		if record.Success {
			stats.Succeeded++
		}
	}

	return stats, nil
}
