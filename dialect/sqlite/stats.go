package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/velite"
)

// QueryStats holds statement execution statistics.
type QueryStats struct {
	// TotalQueries is the number of row-returning statements run.
	TotalQueries atomic.Int64
	// TotalExecs is the number of statements run for their effect.
	TotalExecs atomic.Int64
	// TotalDuration is the time spent in the engine.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed statements.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called when a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []velite.Value, duration time.Duration)

// Option configures an Engine.
type Option func(*Engine)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) Option {
	return func(e *Engine) {
		e.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) Option {
	return func(e *Engine) {
		e.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements through the engine logger.
func WithSlowQueryLog() Option {
	return func(e *Engine) {
		e.slowHook = func(ctx context.Context, query string, args []velite.Value, duration time.Duration) {
			e.logger.WarnContext(ctx, "slow query detected", "duration", duration, "query", query, "args", args)
		}
	}
}

// WithLogger sets the logger used for tracing and slow statements.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTrace logs every prepared statement and its arguments at debug level.
func WithTrace(on bool) Option {
	return func(e *Engine) {
		e.trace = on
	}
}

// QueryStats returns the engine's statistics.
func (e *Engine) QueryStats() *QueryStats {
	return e.stats
}

func (e *Engine) record(ctx context.Context, query string, args []velite.Value, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	e.tx.observe(query, err)
	if isQuery {
		e.stats.TotalQueries.Add(1)
	} else {
		e.stats.TotalExecs.Add(1)
	}
	e.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		e.stats.Errors.Add(1)
	}
	if e.trace {
		e.logger.DebugContext(ctx, "sqlite: statement", "sql", query, "args", args, "duration", duration, "err", err)
	}
	if e.slowThreshold > 0 && duration > e.slowThreshold {
		e.stats.SlowQueries.Add(1)
		if e.slowHook != nil {
			e.slowHook(ctx, query, args, duration)
		}
	}
}
