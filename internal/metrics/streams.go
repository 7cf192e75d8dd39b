// Package metrics holds the Prometheus collectors exported by streamctl.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "streamctl"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	importRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Imported rows by result",
		},
		[]string{"result"},
	)

	importBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "batches_total",
			Help:      "Import batches processed",
		},
	)

	codecOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Connection string encode and decode operations",
		},
		[]string{"op", "mode"},
	)

	registryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "operations_total",
			Help:      "Registry operations by result",
		},
		[]string{"op", "result"},
	)

	engineSyncRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "sync_requests_total",
			Help:      "Requests sent to the streaming engine by result",
		},
		[]string{"result"},
	)
)

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// RecordImportRow counts one processed import row.
func RecordImportRow(err error) {
	importRows.WithLabelValues(result(err)).Inc()
}

// RecordImportBatch counts one finished import batch.
func RecordImportBatch() {
	importBatches.Inc()
}

// RecordCodecOperation counts an encode or decode for the given mode.
func RecordCodecOperation(op, mode string) {
	codecOperations.WithLabelValues(op, mode).Inc()
}

// RecordRegistryOperation counts a registry call.
func RecordRegistryOperation(op string, err error) {
	registryOperations.WithLabelValues(op, result(err)).Inc()
}

// RecordEngineSync counts a request to the streaming engine.
func RecordEngineSync(err error) {
	engineSyncRequests.WithLabelValues(result(err)).Inc()
}
