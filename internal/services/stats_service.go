package services

import (
	"context"
	"fmt"
	"time"

	"keshi/internal/cache"
	"keshi/internal/civiltime"
	"keshi/internal/core"
)

// statsCacheSize bounds the cache to roughly a decade of distinct months.
const statsCacheSize = 128

// StatsService computes the monthly and all-time aggregation passes. Both are
// full scans over the store, fronted by an LRU/TTL cache that write paths
// purge; the scan sits behind RecordStore so an incrementally maintained
// rollup could replace it without changing the response shape.
type StatsService struct {
	records RecordStore
	clock   core.Clock
	cache   *cache.LRUCache[core.Stats]
}

func NewStatsService(records RecordStore, clock core.Clock, ttl time.Duration) *StatsService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &StatsService{
		records: records,
		clock:   clock,
		cache:   cache.NewLRUCache[core.Stats](statsCacheSize, ttl),
	}
}

// ComputeStats aggregates hours for the given YYYY-MM month (empty = current
// civil month): total hours plus per-course and per-grade groups, for the
// month and for all time.
func (s *StatsService) ComputeStats(ctx context.Context, month string) (core.Stats, error) {
	var m civiltime.Month
	if month == "" {
		m = civiltime.MonthOf(s.clock.Now())
	} else {
		var err error
		if m, err = civiltime.ParseMonth(month); err != nil {
			return core.Stats{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
	}

	key := m.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	monthly, err := s.records.ListRecordsInRange(ctx, m.StartOfMonth(), m.EndOfMonth())
	if err != nil {
		return core.Stats{}, fmt.Errorf("load monthly records: %w", err)
	}
	all, err := s.records.ListAllRecords(ctx)
	if err != nil {
		return core.Stats{}, fmt.Errorf("load all records: %w", err)
	}

	stats := core.Stats{
		Month:              key,
		TotalHours:         core.SumHours(monthly),
		AllTimeHours:       core.SumHours(all),
		CourseStats:        core.AggregateByCourse(monthly),
		GradeStats:         core.AggregateByGrade(monthly),
		AllTimeCourseStats: core.AggregateByCourse(all),
		AllTimeGradeStats:  core.AggregateByGrade(all),
	}

	s.cache.Set(key, stats)
	return stats, nil
}

// Invalidate drops every cached month. Called by the record and course
// services after any write that can move an aggregate.
func (s *StatsService) Invalidate() {
	s.cache.Purge()
}

// CleanExpired drops expired cache entries; the server calls this on a timer.
func (s *StatsService) CleanExpired() int {
	return s.cache.CleanExpired()
}
