package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var indexedChunks = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "indexed_chunks",
	Help: "Chunks visible in the current index generation",
})

var upstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "upstream_retries_total",
	Help: "Retries of transient upstream failures by operation",
}, []string{"operation"})

var pipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rag_pipeline_outcomes_total",
	Help: "Terminal state of query and chat pipelines",
}, []string{"mode", "state"})

var embeddingsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "index_chunks_embedded_total",
	Help: "Chunks embedded or reused during upsert",
}, []string{"result"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func SetIndexedChunks(n int) {
	indexedChunks.Set(float64(n))
}

func IncrementRetry(operation string) {
	upstreamRetries.WithLabelValues(operation).Inc()
}

func CapturePipelineOutcome(mode string, state string) {
	pipelineOutcomes.WithLabelValues(mode, state).Inc()
}

func CaptureEmbeddingWork(embedded int, reused int) {
	embeddingsComputed.WithLabelValues("embedded").Add(float64(embedded))
	embeddingsComputed.WithLabelValues("reused").Add(float64(reused))
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent processing a job.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of pipeline steps and external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
