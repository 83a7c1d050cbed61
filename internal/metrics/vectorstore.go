package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Vector store Prometheus metrics, labelled by backend kind and operation.
var (
	VectorStoreOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvindex",
			Name:      "vectorstore_operations_total",
			Help:      "Total vector store operations",
		},
		[]string{"backend", "op", "status"},
	)

	VectorStoreOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvindex",
			Name:      "vectorstore_operation_duration_seconds",
			Help:      "Vector store operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend", "op"},
	)

	VectorStoreDocumentsInserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvindex",
			Name:      "vectorstore_documents_inserted_total",
			Help:      "Total records written to the vector store",
		},
		[]string{"backend", "collection"},
	)
)

var vsMetricsRegistered bool

// RegisterVectorStoreMetrics registers vector store metrics. Must be called once from main.
func RegisterVectorStoreMetrics() {
	if vsMetricsRegistered {
		return
	}
	prometheus.MustRegister(VectorStoreOpsTotal)
	prometheus.MustRegister(VectorStoreOpDuration)
	prometheus.MustRegister(VectorStoreDocumentsInserted)
	vsMetricsRegistered = true
}

// ObserveVectorStoreOp records one backend operation started at start.
func ObserveVectorStoreOp(backend, op string, start time.Time, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	VectorStoreOpsTotal.WithLabelValues(backend, op, status).Inc()
	VectorStoreOpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
