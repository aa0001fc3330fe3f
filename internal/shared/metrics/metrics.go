package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wizard",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total LLM calls by operation and outcome.",
		},
		[]string{"op", "status"},
	)
	llmCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wizard",
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM call duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"op"},
	)
	stepTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wizard",
			Subsystem: "session",
			Name:      "step_transitions_total",
			Help:      "Total wizard step transitions by target step.",
		},
		[]string{"to_step"},
	)
	speechSegmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wizard",
			Subsystem: "speech",
			Name:      "segments_total",
			Help:      "Total speech segments received by kind.",
		},
		[]string{"kind"},
	)
	ingestFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wizard",
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Total ingested files by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	registry.MustRegister(
		llmCallsTotal,
		llmCallDuration,
		stepTransitionsTotal,
		speechSegmentsTotal,
		ingestFilesTotal,
	)
}

// ObserveLLMCall records one LLM call with its outcome and duration.
func ObserveLLMCall(op, status string, elapsed time.Duration) {
	llmCallsTotal.WithLabelValues(op, status).Inc()
	llmCallDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// IncStepTransition increments the transition counter for the target step.
func IncStepTransition(toStep string) {
	stepTransitionsTotal.WithLabelValues(toStep).Inc()
}

// IncSpeechSegment counts a received speech segment.
func IncSpeechSegment(final bool) {
	kind := "partial"
	if final {
		kind = "final"
	}
	speechSegmentsTotal.WithLabelValues(kind).Inc()
}

// IncIngestedFile counts an ingested file by kind (text, pdf, docx, vision).
func IncIngestedFile(kind string) {
	ingestFilesTotal.WithLabelValues(kind).Inc()
}

// Handler exposes the metrics registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
