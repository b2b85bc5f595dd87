package coordinator

import (
	"time"

	"github.com/maxpert/serverconfig/telemetry"
)

// WriteMetrics records the outcome and latency of a single table write
type WriteMetrics struct {
	op        string // "update", "delete" or "insert"
	startTime time.Time
}

// NewWriteMetrics starts timing a write of kind op
func NewWriteMetrics(op string) *WriteMetrics {
	return &WriteMetrics{
		op:        op,
		startTime: time.Now(),
	}
}

// RecordFailure records a failed write and returns err unchanged.
// Common error types: "schema", "illegal_insert", "external", "cancelled"
func (m *WriteMetrics) RecordFailure(errType string, err error) error {
	m.record(errType)
	return err
}

// RecordSuccess records a completed write.
// Returns nil for convenient use in return statements.
func (m *WriteMetrics) RecordSuccess() error {
	m.record("success")
	return nil
}

// RecordNoop records a write that changed nothing
func (m *WriteMetrics) RecordNoop() error {
	m.record("noop")
	return nil
}

func (m *WriteMetrics) record(result string) {
	telemetry.WritesTotal.With(m.op, result).Inc()
	telemetry.WriteDurationSeconds.With(m.op).Observe(time.Since(m.startTime).Seconds())
}
