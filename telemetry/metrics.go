package telemetry

// Histogram bucket definitions for different latency profiles
var (
	// WriteBuckets for table writes (queueing + cluster-wide rename/retag)
	WriteBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// QueueWaitBuckets for time spent waiting on the write token
	QueueWaitBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	// NameOpBuckets for name client operations
	NameOpBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
)

// Table write metrics
var (
	// WritesTotal counts writes by op (update, delete, insert) and result
	WritesTotal CounterVec = noopCounterVec{}

	// WriteDurationSeconds measures end-to-end write latency by op
	WriteDurationSeconds HistogramVec = noopHistogramVec{}

	// WriteQueueWaitSeconds measures time spent queued for the write token
	WriteQueueWaitSeconds Histogram = NoopStat{}

	// WriteQueueDepth tracks writers holding or waiting for the token
	WriteQueueDepth Gauge = NoopStat{}

	// RowReadsTotal counts formatted rows served to readers
	RowReadsTotal Counter = NoopStat{}
)

// Name client metrics
var (
	// NameOpsTotal counts rename/retag operations by result
	NameOpsTotal CounterVec = noopCounterVec{}

	// NameOpDurationSeconds measures rename/retag latency
	NameOpDurationSeconds HistogramVec = noopHistogramVec{}
)

// Metadata view metrics
var (
	// MetadataJoinsTotal counts joins by result (changed, unchanged)
	MetadataJoinsTotal CounterVec = noopCounterVec{}

	// MetadataStoreErrorsTotal counts failed persistence attempts
	MetadataStoreErrorsTotal Counter = NoopStat{}

	// ServersKnown tracks records by state (live, deleted)
	ServersKnown GaugeVec = noopGaugeVec{}
)

// InitMetrics initializes all Prometheus metrics.
// Must be called after InitializeTelemetry().
func InitMetrics() {
	WritesTotal = NewCounterVec(
		"writes_total",
		"Table writes by operation and result",
		[]string{"op", "result"},
	)
	WriteDurationSeconds = NewHistogramVec(
		"write_duration_seconds",
		"Table write duration in seconds",
		[]string{"op"},
		WriteBuckets,
	)
	WriteQueueWaitSeconds = NewHistogramWithBuckets(
		"write_queue_wait_seconds",
		"Time spent waiting for the write token in seconds",
		QueueWaitBuckets,
	)
	WriteQueueDepth = NewGauge(
		"write_queue_depth",
		"Writers holding or waiting for the write token",
	)
	RowReadsTotal = NewCounter(
		"row_reads_total",
		"Rows formatted for readers",
	)

	NameOpsTotal = NewCounterVec(
		"name_ops_total",
		"Rename and retag operations by result",
		[]string{"op", "result"},
	)
	NameOpDurationSeconds = NewHistogramVec(
		"name_op_duration_seconds",
		"Rename and retag duration in seconds",
		[]string{"op"},
		NameOpBuckets,
	)

	MetadataJoinsTotal = NewCounterVec(
		"metadata_joins_total",
		"Metadata joins by result",
		[]string{"result"},
	)
	MetadataStoreErrorsTotal = NewCounter(
		"metadata_store_errors_total",
		"Failed metadata persistence attempts",
	)
	ServersKnown = NewGaugeVec(
		"servers_known",
		"Server records by state",
		[]string{"state"},
	)
}

// UpdateServerCounts publishes record counts
func UpdateServerCounts(live, deleted int) {
	ServersKnown.With("live").Set(float64(live))
	ServersKnown.With("deleted").Set(float64(deleted))
}
